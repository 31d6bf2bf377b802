package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/playforge/remoteconfig/cmd/configserver/service"
	"github.com/playforge/remoteconfig/common/db"
	"github.com/playforge/remoteconfig/common/errs"
	"github.com/playforge/remoteconfig/common/models"
)

// ConfigRepository handles database operations for config entries
type ConfigRepository struct {
	q db.Querier
}

// NewConfigRepository creates a new config repository
func NewConfigRepository(q db.Querier) *ConfigRepository {
	return &ConfigRepository{q: q}
}

const configColumns = `id, key_name, description, value_type, default_value, schema, is_active, created_by, created_at, updated_at`

// Insert creates a new config entry
func (r *ConfigRepository) Insert(ctx context.Context, entry *models.ConfigEntry) error {
	query := `
		INSERT INTO config_entry (` + configColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	defaultValue, err := marshalValue(entry.DefaultValue)
	if err != nil {
		return err
	}

	_, err = r.q.Exec(ctx, query,
		entry.ID,
		entry.KeyName,
		entry.Description,
		entry.ValueType,
		defaultValue,
		entry.Schema,
		entry.IsActive,
		entry.CreatedBy,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert config: %w", err)
	}

	return nil
}

// Update modifies an existing config entry
func (r *ConfigRepository) Update(ctx context.Context, entry *models.ConfigEntry) error {
	query := `
		UPDATE config_entry
		SET description = $2, schema = $3, is_active = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query,
		entry.ID,
		entry.Description,
		entry.Schema,
		entry.IsActive,
		entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update config: %w", err)
	}
	if result.RowsAffected() == 0 {
		return errs.NotFound("config", entry.ID.String())
	}

	return nil
}

// Delete removes a config entry. Versions cascade.
func (r *ConfigRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.q.Exec(ctx, `DELETE FROM config_entry WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete config: %w", err)
	}
	if result.RowsAffected() == 0 {
		return errs.NotFound("config", id.String())
	}

	return nil
}

// Get retrieves a config entry by id
func (r *ConfigRepository) Get(ctx context.Context, id uuid.UUID) (*models.ConfigEntry, error) {
	query := `SELECT ` + configColumns + ` FROM config_entry WHERE id = $1`
	entry, err := r.scanConfig(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFound("config", id.String())
		}
		return nil, fmt.Errorf("failed to get config: %w", err)
	}
	return entry, nil
}

// GetByKey retrieves a config entry by key name
func (r *ConfigRepository) GetByKey(ctx context.Context, keyName string) (*models.ConfigEntry, error) {
	query := `SELECT ` + configColumns + ` FROM config_entry WHERE key_name = $1`
	entry, err := r.scanConfig(r.q.QueryRow(ctx, query, keyName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFound("config", keyName)
		}
		return nil, fmt.Errorf("failed to get config by key: %w", err)
	}
	return entry, nil
}

// List retrieves config entries matching the filter plus the total count
func (r *ConfigRepository) List(ctx context.Context, filter service.ConfigFilter) ([]*models.ConfigEntry, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	arg := 1

	if filter.Search != "" {
		where += fmt.Sprintf(" AND (key_name ILIKE $%d OR description ILIKE $%d)", arg, arg)
		args = append(args, "%"+filter.Search+"%")
		arg++
	}
	if filter.ValueType != "" {
		where += fmt.Sprintf(" AND value_type = $%d", arg)
		args = append(args, filter.ValueType)
		arg++
	}
	if filter.IsActive != nil {
		where += fmt.Sprintf(" AND is_active = $%d", arg)
		args = append(args, *filter.IsActive)
		arg++
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM config_entry`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count configs: %w", err)
	}

	query := `SELECT ` + configColumns + ` FROM config_entry` + where +
		fmt.Sprintf(" ORDER BY key_name ASC LIMIT $%d OFFSET $%d", arg, arg+1)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list configs: %w", err)
	}
	defer rows.Close()

	var entries []*models.ConfigEntry
	for rows.Next() {
		entry, err := r.scanConfig(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan config: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating configs: %w", err)
	}

	return entries, total, nil
}

// ListActive retrieves all active config entries
func (r *ConfigRepository) ListActive(ctx context.Context) ([]*models.ConfigEntry, error) {
	query := `SELECT ` + configColumns + ` FROM config_entry WHERE is_active = TRUE ORDER BY key_name ASC`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active configs: %w", err)
	}
	defer rows.Close()

	var entries []*models.ConfigEntry
	for rows.Next() {
		entry, err := r.scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan config: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating configs: %w", err)
	}

	return entries, nil
}

func (r *ConfigRepository) scanConfig(row pgx.Row) (*models.ConfigEntry, error) {
	entry := &models.ConfigEntry{}
	var defaultValue []byte

	err := row.Scan(
		&entry.ID,
		&entry.KeyName,
		&entry.Description,
		&entry.ValueType,
		&defaultValue,
		&entry.Schema,
		&entry.IsActive,
		&entry.CreatedBy,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalValue(defaultValue, &entry.DefaultValue); err != nil {
		return nil, err
	}

	return entry, nil
}
