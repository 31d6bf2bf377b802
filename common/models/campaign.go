package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/playforge/remoteconfig/common/errs"
)

// CampaignStatus is the lifecycle state of a campaign
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignRunning   CampaignStatus = "running"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
)

var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignDraft:     {CampaignScheduled, CampaignRunning},
	CampaignScheduled: {CampaignRunning, CampaignDraft},
	CampaignRunning:   {CampaignPaused, CampaignCompleted},
	CampaignPaused:    {CampaignRunning, CampaignCompleted},
	CampaignCompleted: {},
}

// CanTransition reports whether the status may move to the target state
func (s CampaignStatus) CanTransition(to CampaignStatus) bool {
	for _, next := range campaignTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Campaign is a scheduled, conditionally-targeted override mechanism layered
// on top of base config values.
// Maps to: campaign table
type Campaign struct {
	ID           uuid.UUID `db:"id" json:"id"`
	CampaignName string    `db:"campaign_name" json:"campaign_name"`
	Description  string    `db:"description" json:"description"`

	StartDate *time.Time `db:"start_date" json:"start_date,omitempty"`
	EndDate   *time.Time `db:"end_date" json:"end_date,omitempty"`

	// Lower priority value is evaluated first
	Priority          int            `db:"priority" json:"priority"`
	TrafficPercentage float64        `db:"traffic_percentage" json:"traffic_percentage"`
	Status            CampaignStatus `db:"status" json:"status"`

	TargetConditions []TargetCondition `db:"target_conditions" json:"target_conditions"`

	// Optional CEL expression over the request context, evaluated in
	// addition to the flat condition list
	Expression *string `db:"expression" json:"expression,omitempty"`

	IsActive bool `db:"is_active" json:"is_active"`

	Overrides []CampaignOverride `json:"overrides,omitempty"`
	Variants  []Variant          `json:"variants,omitempty"`

	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TransitionStatus moves the campaign to the target status, rejecting
// illegal moves
func (c *Campaign) TransitionStatus(to CampaignStatus) error {
	if !c.Status.CanTransition(to) {
		return errs.InvalidState("campaign %s cannot move from %s to %s",
			c.CampaignName, c.Status, to)
	}
	c.Status = to
	return nil
}

// InWindow reports whether now falls within the campaign's schedule bounds
func (c *Campaign) InWindow(now time.Time) bool {
	if c.StartDate != nil && now.Before(*c.StartDate) {
		return false
	}
	if c.EndDate != nil && now.After(*c.EndDate) {
		return false
	}
	return true
}

// OverrideFor returns the plain override for a config, if any
func (c *Campaign) OverrideFor(configID uuid.UUID) *CampaignOverride {
	for i := range c.Overrides {
		if c.Overrides[i].ConfigID == configID {
			return &c.Overrides[i]
		}
	}
	return nil
}

// VariantsFor returns the active variants declared for a config, in
// insertion order
func (c *Campaign) VariantsFor(configID uuid.UUID) []Variant {
	var out []Variant
	for _, v := range c.Variants {
		if v.ConfigID == configID && v.IsActive {
			out = append(out, v)
		}
	}
	return out
}

// ValidateVariants checks that active variant percentages per config do not
// exceed 100
func (c *Campaign) ValidateVariants() error {
	sums := make(map[uuid.UUID]float64)
	for _, v := range c.Variants {
		if !v.IsActive {
			continue
		}
		if v.TrafficPercentage < 0 || v.TrafficPercentage > 100 {
			return errs.Validation("variants", "variant %q traffic percentage out of range: %v", v.VariantName, v.TrafficPercentage)
		}
		sums[v.ConfigID] += v.TrafficPercentage
	}
	for configID, sum := range sums {
		if sum > 100 {
			return errs.Validation("variants", "active variant percentages for config %s sum to %v (max 100)", configID, sum)
		}
	}
	return nil
}

// CampaignOverride replaces a config's published value for matched subjects.
// Maps to: campaign_override table
type CampaignOverride struct {
	ID         uuid.UUID `db:"id" json:"id"`
	CampaignID uuid.UUID `db:"campaign_id" json:"campaign_id"`
	ConfigID   uuid.UUID `db:"config_id" json:"config_id"`
	Value      Value     `db:"value" json:"value"`
}

// Variant is one arm of an A/B split within a campaign, scoped to a config.
// Maps to: campaign_variant table
type Variant struct {
	ID         uuid.UUID `db:"id" json:"id"`
	CampaignID uuid.UUID `db:"campaign_id" json:"campaign_id"`
	ConfigID   uuid.UUID `db:"config_id" json:"config_id"`

	VariantName string  `db:"variant_name" json:"variant_name"`
	Value       Value   `db:"value" json:"value"`
	// Share of the campaign's matched traffic assigned to this variant
	TrafficPercentage float64 `db:"traffic_percentage" json:"traffic_percentage"`
	IsActive          bool    `db:"is_active" json:"is_active"`
}
