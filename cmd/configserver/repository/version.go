package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/playforge/remoteconfig/common/db"
	"github.com/playforge/remoteconfig/common/errs"
	"github.com/playforge/remoteconfig/common/models"
)

// VersionRepository handles database operations for config versions
type VersionRepository struct {
	q db.Querier
}

// NewVersionRepository creates a new version repository
func NewVersionRepository(q db.Querier) *VersionRepository {
	return &VersionRepository{q: q}
}

const versionColumns = `id, config_id, version_number, value, status, change_description, published_at, created_by, created_at`

// Insert creates a new config version
func (r *VersionRepository) Insert(ctx context.Context, version *models.ConfigVersion) error {
	query := `
		INSERT INTO config_version (` + versionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	value, err := marshalValue(version.Value)
	if err != nil {
		return err
	}

	_, err = r.q.Exec(ctx, query,
		version.ID,
		version.ConfigID,
		version.VersionNumber,
		value,
		version.Status,
		version.ChangeDescription,
		version.PublishedAt,
		version.CreatedBy,
		version.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert version: %w", err)
	}

	return nil
}

// UpdateStatus moves a version to a new lifecycle status
func (r *VersionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.VersionStatus, publishedAt *time.Time) error {
	query := `
		UPDATE config_version
		SET status = $2, published_at = COALESCE($3, published_at)
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query, id, status, publishedAt)
	if err != nil {
		return fmt.Errorf("failed to update version status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return errs.NotFound("version", id.String())
	}

	return nil
}

// Delete removes a version
func (r *VersionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.q.Exec(ctx, `DELETE FROM config_version WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete version: %w", err)
	}
	if result.RowsAffected() == 0 {
		return errs.NotFound("version", id.String())
	}

	return nil
}

// Latest retrieves the version with the highest version number, or nil
func (r *VersionRepository) Latest(ctx context.Context, configID uuid.UUID) (*models.ConfigVersion, error) {
	query := `
		SELECT ` + versionColumns + `
		FROM config_version
		WHERE config_id = $1
		ORDER BY version_number DESC
		LIMIT 1
	`

	version, err := r.scanVersion(r.q.QueryRow(ctx, query, configID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest version: %w", err)
	}
	return version, nil
}

// ByStatus retrieves the config's version in the given status, or nil
func (r *VersionRepository) ByStatus(ctx context.Context, configID uuid.UUID, status models.VersionStatus) (*models.ConfigVersion, error) {
	query := `
		SELECT ` + versionColumns + `
		FROM config_version
		WHERE config_id = $1 AND status = $2
		ORDER BY version_number DESC
		LIMIT 1
	`

	version, err := r.scanVersion(r.q.QueryRow(ctx, query, configID, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get version by status: %w", err)
	}
	return version, nil
}

// AllStaged retrieves every staged version across all configs. Rows are
// locked so concurrent publishes serialize on the same staged set.
func (r *VersionRepository) AllStaged(ctx context.Context) ([]*models.ConfigVersion, error) {
	query := `
		SELECT ` + versionColumns + `
		FROM config_version
		WHERE status = 'staged'
		ORDER BY config_id, version_number
		FOR UPDATE
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list staged versions: %w", err)
	}
	defer rows.Close()

	return r.collectVersions(rows)
}

// List retrieves all versions of a config ordered by version number ascending
func (r *VersionRepository) List(ctx context.Context, configID uuid.UUID) ([]*models.ConfigVersion, error) {
	query := `
		SELECT ` + versionColumns + `
		FROM config_version
		WHERE config_id = $1
		ORDER BY version_number ASC
	`

	rows, err := r.q.Query(ctx, query, configID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	return r.collectVersions(rows)
}

// NextVersionNumber returns max(existing)+1 for the config
func (r *VersionRepository) NextVersionNumber(ctx context.Context, configID uuid.UUID) (int, error) {
	query := `SELECT COALESCE(MAX(version_number), 0) + 1 FROM config_version WHERE config_id = $1`

	var next int
	if err := r.q.QueryRow(ctx, query, configID).Scan(&next); err != nil {
		return 0, fmt.Errorf("failed to get next version number: %w", err)
	}
	return next, nil
}

func (r *VersionRepository) collectVersions(rows pgx.Rows) ([]*models.ConfigVersion, error) {
	var versions []*models.ConfigVersion
	for rows.Next() {
		version, err := r.scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating versions: %w", err)
	}
	return versions, nil
}

func (r *VersionRepository) scanVersion(row pgx.Row) (*models.ConfigVersion, error) {
	version := &models.ConfigVersion{}
	var value []byte

	err := row.Scan(
		&version.ID,
		&version.ConfigID,
		&version.VersionNumber,
		&value,
		&version.Status,
		&version.ChangeDescription,
		&version.PublishedAt,
		&version.CreatedBy,
		&version.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalValue(value, &version.Value); err != nil {
		return nil, err
	}

	return version, nil
}
