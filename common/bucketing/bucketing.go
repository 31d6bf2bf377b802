// Package bucketing assigns subjects to traffic slices and A/B variants.
// Assignment is a pure function of (subjectID, salt): no randomness, no
// external state, stable across processes and restarts.
package bucketing

import (
	"github.com/cespare/xxhash/v2"

	"github.com/playforge/remoteconfig/common/models"
)

// resolution gives basis-point granularity over [0,100)
const resolution = 10000

// Bucket maps a subject to a stable, uniformly distributed value in [0,100)
func Bucket(subjectID, salt string) float64 {
	h := xxhash.Sum64String(subjectID + ":" + salt)
	return float64(h%resolution) / (resolution / 100)
}

// IsInTraffic reports whether the subject falls inside a campaign's traffic
// percentage. 0 never matches, 100 always matches.
func IsInTraffic(subjectID, campaignID string, trafficPercentage float64) bool {
	if trafficPercentage <= 0 {
		return false
	}
	if trafficPercentage >= 100 {
		return true
	}
	return Bucket(subjectID, campaignID) < trafficPercentage
}

// SelectVariant partitions [0,100) into contiguous ranges sized by each
// active variant's traffic percentage, in the given order, and returns the
// variant whose range holds the subject's bucket. Returns nil when the bucket
// falls past the assigned ranges (the unassigned remainder).
//
// The variant salt is independent of the traffic salt so variant assignment
// does not correlate with traffic inclusion.
func SelectVariant(subjectID, campaignID string, variants []models.Variant) *models.Variant {
	b := Bucket(subjectID, campaignID+"#variant")

	var lower float64
	for i := range variants {
		v := &variants[i]
		if !v.IsActive {
			continue
		}
		upper := lower + v.TrafficPercentage
		if b >= lower && b < upper {
			return v
		}
		lower = upper
	}
	return nil
}
