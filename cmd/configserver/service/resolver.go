package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/playforge/remoteconfig/common/bucketing"
	"github.com/playforge/remoteconfig/common/cache"
	"github.com/playforge/remoteconfig/common/errs"
	"github.com/playforge/remoteconfig/common/logger"
	"github.com/playforge/remoteconfig/common/models"
	"github.com/playforge/remoteconfig/common/targeting"
	"github.com/playforge/remoteconfig/common/telemetry"
)

// Resolution is the outcome of resolving one config key for a subject
type Resolution struct {
	ConfigKey   string       `json:"config_key"`
	Value       models.Value `json:"value"`
	Source      string       `json:"source"` // "campaign", "variant" or "published"
	CampaignID  *uuid.UUID   `json:"campaign_id,omitempty"`
	VariantName *string      `json:"variant_name,omitempty"`
}

// Resolver selects the value a subject should see for a config key:
// the winning campaign override or variant when one matches, otherwise the
// published value. It reads only the in-memory snapshot, with an optional
// short-lived response cache in front; no storage I/O on the hot path.
type Resolver struct {
	snapshots   *SnapshotService
	expressions *targeting.ExpressionEvaluator
	cache       cache.Cache
	cacheTTL    time.Duration
	tel         *telemetry.Telemetry
	log         *logger.Logger
}

// NewResolver creates a resolver over the snapshot service. c may be nil to
// disable response caching; the snapshot service flushes the same cache on
// every snapshot refresh so stale responses are never served.
func NewResolver(snapshots *SnapshotService, c cache.Cache, cacheTTL time.Duration, tel *telemetry.Telemetry, log *logger.Logger) *Resolver {
	return &Resolver{
		snapshots:   snapshots,
		expressions: targeting.NewExpressionEvaluator(),
		cache:       c,
		cacheTTL:    cacheTTL,
		tel:         tel,
		log:         log,
	}
}

// Resolve evaluates campaigns in priority order for the given subject and
// context. A campaign that matches conditions but whose traffic slice
// excludes the subject is skipped in favor of the next campaign, not the
// published default. Evaluation failures fail closed: the campaign is
// treated as non-matching.
func (r *Resolver) Resolve(ctx context.Context, configKey string, reqCtx map[string]any, subjectID string) (*Resolution, error) {
	r.tel.RecordResolve()

	key, cacheable := r.cacheKey(configKey, subjectID, reqCtx)
	if cacheable {
		if raw, hit, err := r.cache.Get(ctx, key); err == nil && hit {
			var res Resolution
			if err := json.Unmarshal(raw, &res); err == nil {
				return &res, nil
			}
		}
	}

	res, err := r.resolve(configKey, reqCtx, subjectID)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if raw, err := json.Marshal(res); err == nil {
			if err := r.cache.Set(ctx, key, raw, r.cacheTTL); err != nil {
				r.log.Warn("resolve cache write failed", "error", err)
			}
		}
	}
	return res, nil
}

func (r *Resolver) resolve(configKey string, reqCtx map[string]any, subjectID string) (*Resolution, error) {
	snap := r.snapshots.Current()
	if snap == nil {
		return nil, errs.NotFound("config", configKey)
	}

	cfg, ok := snap.Configs[configKey]
	if !ok {
		return nil, errs.NotFound("config", configKey)
	}

	evaluator := targeting.NewEvaluator(snap.Model)
	now := time.Now().UTC()

	for _, campaign := range snap.Campaigns {
		if !campaign.InWindow(now) {
			continue
		}

		// The campaign must actually supply a value for this key
		override := campaign.OverrideFor(cfg.ID)
		variants := campaign.VariantsFor(cfg.ID)
		if override == nil && len(variants) == 0 {
			continue
		}

		matched, err := evaluator.Evaluate(campaign.TargetConditions, reqCtx)
		if err != nil {
			r.recordEvaluationFailure(campaign, err)
			continue
		}
		if !matched {
			continue
		}

		if campaign.Expression != nil && *campaign.Expression != "" {
			pass, err := r.expressions.Evaluate(*campaign.Expression, reqCtx)
			if err != nil {
				r.recordEvaluationFailure(campaign, err)
				continue
			}
			if !pass {
				continue
			}
		}

		if !bucketing.IsInTraffic(subjectID, campaign.ID.String(), campaign.TrafficPercentage) {
			continue
		}

		if len(variants) > 0 {
			if v := bucketing.SelectVariant(subjectID, campaign.ID.String(), variants); v != nil {
				return &Resolution{
					ConfigKey:   configKey,
					Value:       v.Value,
					Source:      "variant",
					CampaignID:  &campaign.ID,
					VariantName: &v.VariantName,
				}, nil
			}
			// Subject landed in the unassigned variant remainder: use the
			// plain override when present, else keep looking.
		}

		if override != nil {
			return &Resolution{
				ConfigKey:  configKey,
				Value:      override.Value,
				Source:     "campaign",
				CampaignID: &campaign.ID,
			}, nil
		}
	}

	return &Resolution{
		ConfigKey: configKey,
		Value:     cfg.Value,
		Source:    "published",
	}, nil
}

// ResolveBatch resolves several config keys for the same subject and context
func (r *Resolver) ResolveBatch(ctx context.Context, configKeys []string, reqCtx map[string]any, subjectID string) (map[string]*Resolution, error) {
	out := make(map[string]*Resolution, len(configKeys))
	for _, key := range configKeys {
		res, err := r.Resolve(ctx, key, reqCtx, subjectID)
		if err != nil {
			if errs.IsNotFound(err) {
				return nil, err
			}
			return nil, err
		}
		out[key] = res
	}
	return out, nil
}

// cacheKey builds the response cache key from the config key, subject and a
// hash of the request context. Context maps marshal with sorted keys, so the
// hash is stable across equivalent requests.
func (r *Resolver) cacheKey(configKey, subjectID string, reqCtx map[string]any) (string, bool) {
	if r.cache == nil || r.cacheTTL <= 0 {
		return "", false
	}
	ctxJSON, err := json.Marshal(reqCtx)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("resolve:%s:%s:%x", configKey, subjectID, xxhash.Sum64(ctxJSON)), true
}

func (r *Resolver) recordEvaluationFailure(campaign *models.Campaign, err error) {
	r.tel.RecordEvaluationFailure()
	r.log.WithCampaignID(campaign.ID.String()).Warn("campaign evaluation failed, treating as non-matching",
		"campaign_name", campaign.CampaignName,
		"error", err,
	)
}
