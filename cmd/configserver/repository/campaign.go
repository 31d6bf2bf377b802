package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/playforge/remoteconfig/common/db"
	"github.com/playforge/remoteconfig/common/errs"
	"github.com/playforge/remoteconfig/common/models"
)

// CampaignRepository handles database operations for campaigns, their
// overrides and variants
type CampaignRepository struct {
	q db.Querier
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(q db.Querier) *CampaignRepository {
	return &CampaignRepository{q: q}
}

const campaignColumns = `id, campaign_name, description, start_date, end_date, priority, traffic_percentage, status, target_conditions, expression, is_active, created_by, created_at, updated_at`

// Insert creates a new campaign
func (r *CampaignRepository) Insert(ctx context.Context, campaign *models.Campaign) error {
	query := `
		INSERT INTO campaign (` + campaignColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	conditions, err := marshalConditions(campaign.TargetConditions)
	if err != nil {
		return err
	}

	_, err = r.q.Exec(ctx, query,
		campaign.ID,
		campaign.CampaignName,
		campaign.Description,
		campaign.StartDate,
		campaign.EndDate,
		campaign.Priority,
		campaign.TrafficPercentage,
		campaign.Status,
		conditions,
		campaign.Expression,
		campaign.IsActive,
		campaign.CreatedBy,
		campaign.CreatedAt,
		campaign.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert campaign: %w", err)
	}

	return nil
}

// Update modifies an existing campaign
func (r *CampaignRepository) Update(ctx context.Context, campaign *models.Campaign) error {
	query := `
		UPDATE campaign
		SET campaign_name = $2, description = $3, start_date = $4, end_date = $5,
		    priority = $6, traffic_percentage = $7, status = $8,
		    target_conditions = $9, expression = $10, is_active = $11, updated_at = $12
		WHERE id = $1
	`

	conditions, err := marshalConditions(campaign.TargetConditions)
	if err != nil {
		return err
	}

	result, err := r.q.Exec(ctx, query,
		campaign.ID,
		campaign.CampaignName,
		campaign.Description,
		campaign.StartDate,
		campaign.EndDate,
		campaign.Priority,
		campaign.TrafficPercentage,
		campaign.Status,
		conditions,
		campaign.Expression,
		campaign.IsActive,
		campaign.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update campaign: %w", err)
	}
	if result.RowsAffected() == 0 {
		return errs.NotFound("campaign", campaign.ID.String())
	}

	return nil
}

// Delete removes a campaign. Overrides and variants cascade.
func (r *CampaignRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.q.Exec(ctx, `DELETE FROM campaign WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	if result.RowsAffected() == 0 {
		return errs.NotFound("campaign", id.String())
	}

	return nil
}

// Get retrieves a campaign with its overrides and variants loaded
func (r *CampaignRepository) Get(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaign WHERE id = $1`

	campaign, err := r.scanCampaign(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFound("campaign", id.String())
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	if err := r.loadAttachments(ctx, []*models.Campaign{campaign}); err != nil {
		return nil, err
	}
	return campaign, nil
}

// List retrieves a page of campaigns plus the total count, with overrides and
// variants loaded
func (r *CampaignRepository) List(ctx context.Context, page, limit int) ([]*models.Campaign, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM campaign`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count campaigns: %w", err)
	}

	query := `
		SELECT ` + campaignColumns + `
		FROM campaign
		ORDER BY priority ASC, created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.q.Query(ctx, query, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	campaigns, err := r.collectCampaigns(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := r.loadAttachments(ctx, campaigns); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

// ListRunnable retrieves active campaigns in running status with overrides
// and variants loaded
func (r *CampaignRepository) ListRunnable(ctx context.Context) ([]*models.Campaign, error) {
	query := `
		SELECT ` + campaignColumns + `
		FROM campaign
		WHERE is_active = TRUE AND status = 'running'
		ORDER BY priority ASC
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runnable campaigns: %w", err)
	}
	defer rows.Close()

	campaigns, err := r.collectCampaigns(rows)
	if err != nil {
		return nil, err
	}
	if err := r.loadAttachments(ctx, campaigns); err != nil {
		return nil, err
	}

	return campaigns, nil
}

// UpsertOverride inserts or replaces a campaign's override for a config
func (r *CampaignRepository) UpsertOverride(ctx context.Context, override *models.CampaignOverride) error {
	query := `
		INSERT INTO campaign_override (id, campaign_id, config_id, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (campaign_id, config_id)
		DO UPDATE SET value = EXCLUDED.value
	`

	value, err := marshalValue(override.Value)
	if err != nil {
		return err
	}

	_, err = r.q.Exec(ctx, query, override.ID, override.CampaignID, override.ConfigID, value)
	if err != nil {
		return fmt.Errorf("failed to upsert override: %w", err)
	}

	return nil
}

// DeleteOverride removes a campaign's override for a config
func (r *CampaignRepository) DeleteOverride(ctx context.Context, campaignID, configID uuid.UUID) error {
	query := `DELETE FROM campaign_override WHERE campaign_id = $1 AND config_id = $2`

	result, err := r.q.Exec(ctx, query, campaignID, configID)
	if err != nil {
		return fmt.Errorf("failed to delete override: %w", err)
	}
	if result.RowsAffected() == 0 {
		return errs.NotFound("override", configID.String())
	}

	return nil
}

// UpsertVariant inserts or replaces a campaign variant
func (r *CampaignRepository) UpsertVariant(ctx context.Context, variant *models.Variant) error {
	query := `
		INSERT INTO campaign_variant (id, campaign_id, config_id, variant_name, value, traffic_percentage, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (campaign_id, config_id, variant_name)
		DO UPDATE SET value = EXCLUDED.value,
		              traffic_percentage = EXCLUDED.traffic_percentage,
		              is_active = EXCLUDED.is_active
	`

	value, err := marshalValue(variant.Value)
	if err != nil {
		return err
	}

	_, err = r.q.Exec(ctx, query,
		variant.ID,
		variant.CampaignID,
		variant.ConfigID,
		variant.VariantName,
		value,
		variant.TrafficPercentage,
		variant.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert variant: %w", err)
	}

	return nil
}

// DeleteVariant removes a variant
func (r *CampaignRepository) DeleteVariant(ctx context.Context, id uuid.UUID) error {
	result, err := r.q.Exec(ctx, `DELETE FROM campaign_variant WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete variant: %w", err)
	}
	if result.RowsAffected() == 0 {
		return errs.NotFound("variant", id.String())
	}

	return nil
}

func (r *CampaignRepository) collectCampaigns(rows pgx.Rows) ([]*models.Campaign, error) {
	var campaigns []*models.Campaign
	for rows.Next() {
		campaign, err := r.scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, campaign)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating campaigns: %w", err)
	}
	return campaigns, nil
}

func (r *CampaignRepository) scanCampaign(row pgx.Row) (*models.Campaign, error) {
	campaign := &models.Campaign{}
	var conditions []byte

	err := row.Scan(
		&campaign.ID,
		&campaign.CampaignName,
		&campaign.Description,
		&campaign.StartDate,
		&campaign.EndDate,
		&campaign.Priority,
		&campaign.TrafficPercentage,
		&campaign.Status,
		&conditions,
		&campaign.Expression,
		&campaign.IsActive,
		&campaign.CreatedBy,
		&campaign.CreatedAt,
		&campaign.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalConditions(conditions, &campaign.TargetConditions); err != nil {
		return nil, err
	}

	return campaign, nil
}

// loadAttachments fills overrides and variants for the given campaigns in two
// queries instead of one per campaign
func (r *CampaignRepository) loadAttachments(ctx context.Context, campaigns []*models.Campaign) error {
	if len(campaigns) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*models.Campaign, len(campaigns))
	ids := make([]uuid.UUID, 0, len(campaigns))
	for _, c := range campaigns {
		byID[c.ID] = c
		ids = append(ids, c.ID)
	}

	rows, err := r.q.Query(ctx, `
		SELECT id, campaign_id, config_id, value
		FROM campaign_override
		WHERE campaign_id = ANY($1)
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load overrides: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		override := models.CampaignOverride{}
		var value []byte
		if err := rows.Scan(&override.ID, &override.CampaignID, &override.ConfigID, &value); err != nil {
			return fmt.Errorf("failed to scan override: %w", err)
		}
		if err := unmarshalValue(value, &override.Value); err != nil {
			return err
		}
		if c, ok := byID[override.CampaignID]; ok {
			c.Overrides = append(c.Overrides, override)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating overrides: %w", err)
	}

	vrows, err := r.q.Query(ctx, `
		SELECT id, campaign_id, config_id, variant_name, value, traffic_percentage, is_active
		FROM campaign_variant
		WHERE campaign_id = ANY($1)
		ORDER BY variant_name ASC
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load variants: %w", err)
	}
	defer vrows.Close()

	for vrows.Next() {
		variant := models.Variant{}
		var value []byte
		if err := vrows.Scan(
			&variant.ID,
			&variant.CampaignID,
			&variant.ConfigID,
			&variant.VariantName,
			&value,
			&variant.TrafficPercentage,
			&variant.IsActive,
		); err != nil {
			return fmt.Errorf("failed to scan variant: %w", err)
		}
		if err := unmarshalValue(value, &variant.Value); err != nil {
			return err
		}
		if c, ok := byID[variant.CampaignID]; ok {
			c.Variants = append(c.Variants, variant)
		}
	}
	if err := vrows.Err(); err != nil {
		return fmt.Errorf("error iterating variants: %w", err)
	}

	return nil
}
