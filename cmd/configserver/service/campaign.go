package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/playforge/remoteconfig/common/errs"
	"github.com/playforge/remoteconfig/common/logger"
	"github.com/playforge/remoteconfig/common/models"
	"github.com/playforge/remoteconfig/common/targeting"
)

// CampaignService manages campaigns, their targeting rules, overrides and
// variants. Every mutation that can influence resolution refreshes the
// resolution snapshot.
type CampaignService struct {
	store       Store
	snapshots   *SnapshotService
	expressions *targeting.ExpressionEvaluator
	log         *logger.Logger
}

// NewCampaignService creates a new campaign service
func NewCampaignService(store Store, snapshots *SnapshotService, log *logger.Logger) *CampaignService {
	return &CampaignService{
		store:       store,
		snapshots:   snapshots,
		expressions: targeting.NewExpressionEvaluator(),
		log:         log,
	}
}

// CreateCampaignRequest carries the fields for a new campaign
type CreateCampaignRequest struct {
	CampaignName      string                   `json:"campaign_name"`
	Description       string                   `json:"description"`
	StartDate         *time.Time               `json:"start_date,omitempty"`
	EndDate           *time.Time               `json:"end_date,omitempty"`
	Priority          int                      `json:"priority"`
	TrafficPercentage float64                  `json:"traffic_percentage"`
	TargetConditions  []models.TargetCondition `json:"target_conditions"`
	Expression        *string                  `json:"expression,omitempty"`
	CreatedBy         string                   `json:"created_by"`
}

// Create inserts a new campaign in draft status
func (s *CampaignService) Create(ctx context.Context, req *CreateCampaignRequest) (*models.Campaign, error) {
	if req.CampaignName == "" {
		return nil, errs.Validation("campaign_name", "campaign name is required")
	}
	if err := validateSchedule(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	if err := validateTraffic(req.TrafficPercentage); err != nil {
		return nil, err
	}
	if err := s.validateTargeting(ctx, req.TargetConditions, req.Expression); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	campaign := &models.Campaign{
		ID:                uuid.New(),
		CampaignName:      req.CampaignName,
		Description:       req.Description,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		Priority:          req.Priority,
		TrafficPercentage: req.TrafficPercentage,
		Status:            models.CampaignDraft,
		TargetConditions:  req.TargetConditions,
		Expression:        req.Expression,
		IsActive:          true,
		CreatedBy:         req.CreatedBy,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if campaign.TargetConditions == nil {
		campaign.TargetConditions = []models.TargetCondition{}
	}

	if err := s.store.Campaigns().Insert(ctx, campaign); err != nil {
		return nil, fmt.Errorf("insert campaign: %w", err)
	}

	s.log.WithCampaignID(campaign.ID.String()).Info("campaign created",
		"campaign_name", campaign.CampaignName,
		"priority", campaign.Priority,
	)
	return campaign, nil
}

// UpdateCampaignRequest carries mutable campaign fields. Nil pointers leave
// the current value untouched.
type UpdateCampaignRequest struct {
	CampaignName      *string                   `json:"campaign_name,omitempty"`
	Description       *string                   `json:"description,omitempty"`
	StartDate         *time.Time                `json:"start_date,omitempty"`
	EndDate           *time.Time                `json:"end_date,omitempty"`
	Priority          *int                      `json:"priority,omitempty"`
	TrafficPercentage *float64                  `json:"traffic_percentage,omitempty"`
	TargetConditions  *[]models.TargetCondition `json:"target_conditions,omitempty"`
	Expression        *string                   `json:"expression,omitempty"`
	IsActive          *bool                     `json:"is_active,omitempty"`
}

// Update modifies a campaign's attributes. Targeting changes are re-validated
// against the current context field catalog.
func (s *CampaignService) Update(ctx context.Context, id uuid.UUID, req *UpdateCampaignRequest) (*models.Campaign, error) {
	campaign, err := s.store.Campaigns().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.CampaignName != nil {
		campaign.CampaignName = *req.CampaignName
	}
	if req.Description != nil {
		campaign.Description = *req.Description
	}
	if req.StartDate != nil {
		campaign.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		campaign.EndDate = req.EndDate
	}
	if req.Priority != nil {
		campaign.Priority = *req.Priority
	}
	if req.TrafficPercentage != nil {
		campaign.TrafficPercentage = *req.TrafficPercentage
	}
	if req.TargetConditions != nil {
		campaign.TargetConditions = *req.TargetConditions
	}
	if req.Expression != nil {
		if *req.Expression == "" {
			campaign.Expression = nil
		} else {
			campaign.Expression = req.Expression
		}
	}
	if req.IsActive != nil {
		campaign.IsActive = *req.IsActive
	}

	if err := validateSchedule(campaign.StartDate, campaign.EndDate); err != nil {
		return nil, err
	}
	if err := validateTraffic(campaign.TrafficPercentage); err != nil {
		return nil, err
	}
	if err := s.validateTargeting(ctx, campaign.TargetConditions, campaign.Expression); err != nil {
		return nil, err
	}

	campaign.UpdatedAt = time.Now().UTC()
	if err := s.store.Campaigns().Update(ctx, campaign); err != nil {
		return nil, fmt.Errorf("update campaign: %w", err)
	}

	s.snapshots.NotifyChanged(ctx, "campaign update")
	return campaign, nil
}

// Transition moves a campaign along its lifecycle
func (s *CampaignService) Transition(ctx context.Context, id uuid.UUID, to models.CampaignStatus) (*models.Campaign, error) {
	campaign, err := s.store.Campaigns().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := campaign.TransitionStatus(to); err != nil {
		return nil, err
	}
	campaign.UpdatedAt = time.Now().UTC()

	if err := s.store.Campaigns().Update(ctx, campaign); err != nil {
		return nil, fmt.Errorf("update campaign status: %w", err)
	}

	s.log.WithCampaignID(campaign.ID.String()).Info("campaign transitioned",
		"campaign_name", campaign.CampaignName,
		"status", campaign.Status,
	)
	s.snapshots.NotifyChanged(ctx, "campaign transition")
	return campaign, nil
}

// Delete removes a campaign together with its overrides and variants
func (s *CampaignService) Delete(ctx context.Context, id uuid.UUID) error {
	campaign, err := s.store.Campaigns().Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Campaigns().Delete(ctx, id); err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}

	s.log.WithCampaignID(id.String()).Info("campaign deleted", "campaign_name", campaign.CampaignName)
	s.snapshots.NotifyChanged(ctx, "campaign delete")
	return nil
}

// Get returns a campaign with its overrides and variants
func (s *CampaignService) Get(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	return s.store.Campaigns().Get(ctx, id)
}

// List returns a page of campaigns plus the total count
func (s *CampaignService) List(ctx context.Context, page, limit int) ([]*models.Campaign, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	return s.store.Campaigns().List(ctx, page, limit)
}

// SetOverride attaches or replaces a campaign's plain override for a config.
// The value must satisfy the config's declared type and schema.
func (s *CampaignService) SetOverride(ctx context.Context, campaignID, configID uuid.UUID, value models.Value) (*models.CampaignOverride, error) {
	if _, err := s.store.Campaigns().Get(ctx, campaignID); err != nil {
		return nil, err
	}
	entry, err := s.store.Configs().Get(ctx, configID)
	if err != nil {
		return nil, err
	}
	if err := ValidateConfigValue(entry.ValueType, value, entry.Schema); err != nil {
		return nil, err
	}

	override := &models.CampaignOverride{
		ID:         uuid.New(),
		CampaignID: campaignID,
		ConfigID:   configID,
		Value:      value,
	}
	if err := s.store.Campaigns().UpsertOverride(ctx, override); err != nil {
		return nil, fmt.Errorf("upsert override: %w", err)
	}

	s.log.WithCampaignID(campaignID.String()).WithConfigKey(entry.KeyName).Info("campaign override set")
	s.snapshots.NotifyChanged(ctx, "override set")
	return override, nil
}

// RemoveOverride detaches a campaign's override for a config
func (s *CampaignService) RemoveOverride(ctx context.Context, campaignID, configID uuid.UUID) error {
	if _, err := s.store.Campaigns().Get(ctx, campaignID); err != nil {
		return err
	}
	if err := s.store.Campaigns().DeleteOverride(ctx, campaignID, configID); err != nil {
		return fmt.Errorf("delete override: %w", err)
	}
	s.snapshots.NotifyChanged(ctx, "override removed")
	return nil
}

// SetVariantRequest carries the fields for a campaign variant
type SetVariantRequest struct {
	ConfigID          uuid.UUID    `json:"config_id"`
	VariantName       string       `json:"variant_name"`
	Value             models.Value `json:"value"`
	TrafficPercentage float64      `json:"traffic_percentage"`
	IsActive          bool         `json:"is_active"`
}

// SetVariant attaches or replaces an A/B variant on a campaign. Active
// variant percentages per config may not sum above 100.
func (s *CampaignService) SetVariant(ctx context.Context, campaignID uuid.UUID, req *SetVariantRequest) (*models.Variant, error) {
	if req.VariantName == "" {
		return nil, errs.Validation("variant_name", "variant name is required")
	}

	campaign, err := s.store.Campaigns().Get(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	entry, err := s.store.Configs().Get(ctx, req.ConfigID)
	if err != nil {
		return nil, err
	}
	if err := ValidateConfigValue(entry.ValueType, req.Value, entry.Schema); err != nil {
		return nil, err
	}

	variant := &models.Variant{
		ID:                uuid.New(),
		CampaignID:        campaignID,
		ConfigID:          req.ConfigID,
		VariantName:       req.VariantName,
		Value:             req.Value,
		TrafficPercentage: req.TrafficPercentage,
		IsActive:          req.IsActive,
	}

	// Validate against the would-be variant set before writing
	replaced := false
	for i := range campaign.Variants {
		if campaign.Variants[i].ConfigID == req.ConfigID && campaign.Variants[i].VariantName == req.VariantName {
			variant.ID = campaign.Variants[i].ID
			campaign.Variants[i] = *variant
			replaced = true
			break
		}
	}
	if !replaced {
		campaign.Variants = append(campaign.Variants, *variant)
	}
	if err := campaign.ValidateVariants(); err != nil {
		return nil, err
	}

	if err := s.store.Campaigns().UpsertVariant(ctx, variant); err != nil {
		return nil, fmt.Errorf("upsert variant: %w", err)
	}

	s.log.WithCampaignID(campaignID.String()).WithConfigKey(entry.KeyName).Info("campaign variant set",
		"variant_name", variant.VariantName,
		"traffic_percentage", variant.TrafficPercentage,
	)
	s.snapshots.NotifyChanged(ctx, "variant set")
	return variant, nil
}

// RemoveVariant detaches a variant from its campaign
func (s *CampaignService) RemoveVariant(ctx context.Context, campaignID, variantID uuid.UUID) error {
	campaign, err := s.store.Campaigns().Get(ctx, campaignID)
	if err != nil {
		return err
	}

	found := false
	for _, v := range campaign.Variants {
		if v.ID == variantID {
			found = true
			break
		}
	}
	if !found {
		return errs.NotFound("variant", variantID.String())
	}

	if err := s.store.Campaigns().DeleteVariant(ctx, variantID); err != nil {
		return fmt.Errorf("delete variant: %w", err)
	}
	s.snapshots.NotifyChanged(ctx, "variant removed")
	return nil
}

// validateTargeting checks the condition list against the context field
// catalog and compiles the optional expression
func (s *CampaignService) validateTargeting(ctx context.Context, conditions []models.TargetCondition, expression *string) error {
	fields, err := s.store.ContextFields().List(ctx)
	if err != nil {
		return fmt.Errorf("list context fields: %w", err)
	}
	defs := make([]models.ContextFieldDefinition, 0, len(fields))
	for _, f := range fields {
		defs = append(defs, *f)
	}

	model := targeting.NewContextModel(defs)
	if err := model.ValidateConditions(conditions); err != nil {
		return err
	}

	if expression != nil && *expression != "" {
		if err := s.expressions.Check(*expression); err != nil {
			return errs.Validation("expression", "%v", err)
		}
	}
	return nil
}

func validateSchedule(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return errs.Validation("end_date", "end date is before start date")
	}
	return nil
}

func validateTraffic(pct float64) error {
	if pct < 0 || pct > 100 {
		return errs.Validation("traffic_percentage", "traffic percentage must be between 0 and 100")
	}
	return nil
}
