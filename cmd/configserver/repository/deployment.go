package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/playforge/remoteconfig/common/db"
	"github.com/playforge/remoteconfig/common/errs"
	"github.com/playforge/remoteconfig/common/models"
)

// DeploymentRepository handles database operations for deployments.
// Deployments are insert-only.
type DeploymentRepository struct {
	q db.Querier
}

// NewDeploymentRepository creates a new deployment repository
func NewDeploymentRepository(q db.Querier) *DeploymentRepository {
	return &DeploymentRepository{q: q}
}

const deploymentColumns = `id, deployment_name, description, configs_snapshot, rollback_deployment_id, deployed_by, deployed_at`

// Insert records a new deployment
func (r *DeploymentRepository) Insert(ctx context.Context, deployment *models.Deployment) error {
	query := `
		INSERT INTO deployment (` + deploymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	snapshot, err := json.Marshal(deployment.ConfigsSnapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = r.q.Exec(ctx, query,
		deployment.ID,
		deployment.DeploymentName,
		deployment.Description,
		snapshot,
		deployment.RollbackDeploymentID,
		deployment.DeployedBy,
		deployment.DeployedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert deployment: %w", err)
	}

	return nil
}

// Get retrieves a deployment by id
func (r *DeploymentRepository) Get(ctx context.Context, id uuid.UUID) (*models.Deployment, error) {
	query := `SELECT ` + deploymentColumns + ` FROM deployment WHERE id = $1`

	deployment, err := r.scanDeployment(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.NotFound("deployment", id.String())
		}
		return nil, fmt.Errorf("failed to get deployment: %w", err)
	}
	return deployment, nil
}

// GetByName retrieves a deployment by name, or nil
func (r *DeploymentRepository) GetByName(ctx context.Context, name string) (*models.Deployment, error) {
	query := `SELECT ` + deploymentColumns + ` FROM deployment WHERE deployment_name = $1`

	deployment, err := r.scanDeployment(r.q.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get deployment by name: %w", err)
	}
	return deployment, nil
}

// List retrieves a page of deployments newest first plus the total count
func (r *DeploymentRepository) List(ctx context.Context, page, limit int) ([]*models.Deployment, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM deployment`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count deployments: %w", err)
	}

	query := `
		SELECT ` + deploymentColumns + `
		FROM deployment
		ORDER BY deployed_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.q.Query(ctx, query, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list deployments: %w", err)
	}
	defer rows.Close()

	var deployments []*models.Deployment
	for rows.Next() {
		deployment, err := r.scanDeployment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan deployment: %w", err)
		}
		deployments = append(deployments, deployment)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating deployments: %w", err)
	}

	return deployments, total, nil
}

func (r *DeploymentRepository) scanDeployment(row pgx.Row) (*models.Deployment, error) {
	deployment := &models.Deployment{}
	var snapshot []byte

	err := row.Scan(
		&deployment.ID,
		&deployment.DeploymentName,
		&deployment.Description,
		&snapshot,
		&deployment.RollbackDeploymentID,
		&deployment.DeployedBy,
		&deployment.DeployedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(snapshot, &deployment.ConfigsSnapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return deployment, nil
}
