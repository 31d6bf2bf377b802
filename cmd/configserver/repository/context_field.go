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

// ContextFieldRepository handles database operations for context field
// definitions
type ContextFieldRepository struct {
	q db.Querier
}

// NewContextFieldRepository creates a new context field repository
func NewContextFieldRepository(q db.Querier) *ContextFieldRepository {
	return &ContextFieldRepository{q: q}
}

const contextFieldColumns = `id, key, name, type, operators, options, default_value, is_required, created_at, updated_at`

// Insert creates a new context field definition
func (r *ContextFieldRepository) Insert(ctx context.Context, field *models.ContextFieldDefinition) error {
	query := `
		INSERT INTO context_field (` + contextFieldColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	defaultValue, err := marshalOptionalValue(field.DefaultValue)
	if err != nil {
		return err
	}

	_, err = r.q.Exec(ctx, query,
		field.ID,
		field.Key,
		field.Name,
		field.Type,
		field.Operators,
		field.Options,
		defaultValue,
		field.IsRequired,
		field.CreatedAt,
		field.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert context field: %w", err)
	}

	return nil
}

// Update modifies an existing context field definition
func (r *ContextFieldRepository) Update(ctx context.Context, field *models.ContextFieldDefinition) error {
	query := `
		UPDATE context_field
		SET name = $2, operators = $3, options = $4, default_value = $5,
		    is_required = $6, updated_at = $7
		WHERE id = $1
	`

	defaultValue, err := marshalOptionalValue(field.DefaultValue)
	if err != nil {
		return err
	}

	result, err := r.q.Exec(ctx, query,
		field.ID,
		field.Name,
		field.Operators,
		field.Options,
		defaultValue,
		field.IsRequired,
		field.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update context field: %w", err)
	}
	if result.RowsAffected() == 0 {
		return errs.NotFound("context field", field.ID.String())
	}

	return nil
}

// Delete removes a context field definition
func (r *ContextFieldRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.q.Exec(ctx, `DELETE FROM context_field WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete context field: %w", err)
	}
	if result.RowsAffected() == 0 {
		return errs.NotFound("context field", id.String())
	}

	return nil
}

// Get retrieves a context field by id
func (r *ContextFieldRepository) Get(ctx context.Context, id uuid.UUID) (*models.ContextFieldDefinition, error) {
	query := `SELECT ` + contextFieldColumns + ` FROM context_field WHERE id = $1`

	field, err := r.scanField(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFound("context field", id.String())
		}
		return nil, fmt.Errorf("failed to get context field: %w", err)
	}
	return field, nil
}

// GetByKey retrieves a context field by key, or nil
func (r *ContextFieldRepository) GetByKey(ctx context.Context, key string) (*models.ContextFieldDefinition, error) {
	query := `SELECT ` + contextFieldColumns + ` FROM context_field WHERE key = $1`

	field, err := r.scanField(r.q.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get context field by key: %w", err)
	}
	return field, nil
}

// List retrieves all context field definitions ordered by key
func (r *ContextFieldRepository) List(ctx context.Context) ([]*models.ContextFieldDefinition, error) {
	query := `SELECT ` + contextFieldColumns + ` FROM context_field ORDER BY key ASC`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list context fields: %w", err)
	}
	defer rows.Close()

	var fields []*models.ContextFieldDefinition
	for rows.Next() {
		field, err := r.scanField(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan context field: %w", err)
		}
		fields = append(fields, field)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating context fields: %w", err)
	}

	return fields, nil
}

func (r *ContextFieldRepository) scanField(row pgx.Row) (*models.ContextFieldDefinition, error) {
	field := &models.ContextFieldDefinition{}
	var defaultValue []byte

	err := row.Scan(
		&field.ID,
		&field.Key,
		&field.Name,
		&field.Type,
		&field.Operators,
		&field.Options,
		&defaultValue,
		&field.IsRequired,
		&field.CreatedAt,
		&field.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(defaultValue) > 0 {
		field.DefaultValue = &models.Value{}
		if err := unmarshalValue(defaultValue, field.DefaultValue); err != nil {
			return nil, err
		}
	}

	return field, nil
}

func marshalOptionalValue(v *models.Value) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return marshalValue(*v)
}
