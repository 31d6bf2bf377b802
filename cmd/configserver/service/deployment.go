package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/google/uuid"

	"github.com/playforge/remoteconfig/common/errs"
	"github.com/playforge/remoteconfig/common/logger"
	"github.com/playforge/remoteconfig/common/models"
)

// DeploymentService performs atomic publishes and rollbacks. Every publish
// produces an immutable deployment snapshot covering all active configs.
type DeploymentService struct {
	store     Store
	snapshots *SnapshotService
	log       *logger.Logger
}

// NewDeploymentService creates a new deployment service
func NewDeploymentService(store Store, snapshots *SnapshotService, log *logger.Logger) *DeploymentService {
	return &DeploymentService{store: store, snapshots: snapshots, log: log}
}

// Publish transitions every staged version to published in one transaction,
// archives the previously published versions, and records a deployment
// snapshot of all active configs
func (s *DeploymentService) Publish(ctx context.Context, deploymentName, description, author string) (*models.Deployment, error) {
	if deploymentName == "" {
		return nil, errs.Validation("deployment_name", "deployment name is required")
	}

	var deployment *models.Deployment
	err := s.store.WithTx(ctx, func(tx Store) error {
		existing, err := tx.Deployments().GetByName(ctx, deploymentName)
		if err != nil {
			return fmt.Errorf("check deployment name: %w", err)
		}
		if existing != nil {
			return errs.Conflict("deployment", deploymentName)
		}

		staged, err := tx.Versions().AllStaged(ctx)
		if err != nil {
			return fmt.Errorf("load staged versions: %w", err)
		}
		if len(staged) == 0 {
			return errs.ErrNothingToPublish
		}

		now := time.Now().UTC()
		for _, v := range staged {
			previous, err := tx.Versions().ByStatus(ctx, v.ConfigID, models.StatusPublished)
			if err != nil {
				return fmt.Errorf("load published version for %s: %w", v.ConfigID, err)
			}
			if previous != nil {
				if err := previous.Transition(models.StatusArchived); err != nil {
					return err
				}
				if err := tx.Versions().UpdateStatus(ctx, previous.ID, models.StatusArchived, nil); err != nil {
					return fmt.Errorf("archive version %s: %w", previous.ID, err)
				}
			}

			if err := v.Transition(models.StatusPublished); err != nil {
				return err
			}
			if err := tx.Versions().UpdateStatus(ctx, v.ID, models.StatusPublished, &now); err != nil {
				return fmt.Errorf("publish version %s: %w", v.ID, err)
			}
		}

		snapshot, err := buildSnapshot(ctx, tx)
		if err != nil {
			return err
		}

		deployment = &models.Deployment{
			ID:              uuid.New(),
			DeploymentName:  deploymentName,
			Description:     description,
			ConfigsSnapshot: snapshot,
			DeployedBy:      author,
			DeployedAt:      now,
		}
		return tx.Deployments().Insert(ctx, deployment)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithDeploymentID(deployment.ID.String()).Info("deployment published",
		"deployment_name", deployment.DeploymentName,
		"configs", len(deployment.ConfigsSnapshot),
	)
	s.snapshots.NotifyChanged(ctx, "publish")

	return deployment, nil
}

// Rollback restores a prior deployment's snapshot by republishing its values
// as new versions under a new deployment. History is never rewritten.
func (s *DeploymentService) Rollback(ctx context.Context, deploymentID uuid.UUID, author string) (*models.Deployment, error) {
	target, err := s.store.Deployments().Get(ctx, deploymentID)
	if err != nil {
		return nil, err
	}

	var deployment *models.Deployment
	err = s.store.WithTx(ctx, func(tx Store) error {
		now := time.Now().UTC()

		for configID, entry := range target.ConfigsSnapshot {
			cfg, err := tx.Configs().Get(ctx, configID)
			if err != nil {
				if errs.IsNotFound(err) {
					// Config removed since the snapshot; nothing to restore.
					s.log.Warn("skipping rollback of deleted config",
						"config_id", configID, "config_key", entry.KeyName)
					continue
				}
				return err
			}

			next, err := tx.Versions().NextVersionNumber(ctx, configID)
			if err != nil {
				return fmt.Errorf("next version number for %s: %w", cfg.KeyName, err)
			}

			previous, err := tx.Versions().ByStatus(ctx, configID, models.StatusPublished)
			if err != nil {
				return fmt.Errorf("load published version for %s: %w", cfg.KeyName, err)
			}
			if previous != nil {
				if err := previous.Transition(models.StatusArchived); err != nil {
					return err
				}
				if err := tx.Versions().UpdateStatus(ctx, previous.ID, models.StatusArchived, nil); err != nil {
					return fmt.Errorf("archive version %s: %w", previous.ID, err)
				}
			}

			// Walk the full lifecycle so illegal shortcuts stay impossible
			restored := &models.ConfigVersion{
				ID:                uuid.New(),
				ConfigID:          configID,
				VersionNumber:     next,
				Value:             entry.Value,
				Status:            models.StatusDraft,
				ChangeDescription: fmt.Sprintf("rollback to %s (version %d)", target.DeploymentName, entry.VersionNumber),
				CreatedBy:         author,
				CreatedAt:         now,
			}
			if err := restored.Transition(models.StatusStaged); err != nil {
				return err
			}
			if err := restored.Transition(models.StatusPublished); err != nil {
				return err
			}
			restored.PublishedAt = &now
			if err := tx.Versions().Insert(ctx, restored); err != nil {
				return fmt.Errorf("insert restored version for %s: %w", cfg.KeyName, err)
			}
		}

		snapshot, err := buildSnapshot(ctx, tx)
		if err != nil {
			return err
		}

		deployment = &models.Deployment{
			ID:                   uuid.New(),
			DeploymentName:       fmt.Sprintf("rollback-%s-%d", target.DeploymentName, now.Unix()),
			Description:          fmt.Sprintf("rollback to deployment %s", target.DeploymentName),
			ConfigsSnapshot:      snapshot,
			RollbackDeploymentID: &target.ID,
			DeployedBy:           author,
			DeployedAt:           now,
		}
		return tx.Deployments().Insert(ctx, deployment)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithDeploymentID(deployment.ID.String()).Info("deployment rolled back",
		"restored_deployment_id", target.ID,
	)
	s.snapshots.NotifyChanged(ctx, "rollback")

	return deployment, nil
}

// Get returns a deployment by id
func (s *DeploymentService) Get(ctx context.Context, id uuid.UUID) (*models.Deployment, error) {
	return s.store.Deployments().Get(ctx, id)
}

// List returns a page of deployments newest first, plus the total count
func (s *DeploymentService) List(ctx context.Context, page, limit int) ([]*models.Deployment, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	return s.store.Deployments().List(ctx, page, limit)
}

// Diff computes a JSON merge patch describing how deployment b's snapshot
// differs from deployment a's, keyed by config key name
func (s *DeploymentService) Diff(ctx context.Context, aID, bID uuid.UUID) (json.RawMessage, error) {
	a, err := s.store.Deployments().Get(ctx, aID)
	if err != nil {
		return nil, err
	}
	b, err := s.store.Deployments().Get(ctx, bID)
	if err != nil {
		return nil, err
	}

	aJSON, err := json.Marshal(snapshotByKey(a.ConfigsSnapshot))
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot %s: %w", a.ID, err)
	}
	bJSON, err := json.Marshal(snapshotByKey(b.ConfigsSnapshot))
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot %s: %w", b.ID, err)
	}

	patch, err := jsonpatch.CreateMergePatch(aJSON, bJSON)
	if err != nil {
		return nil, fmt.Errorf("create merge patch: %w", err)
	}
	return patch, nil
}

// buildSnapshot assembles the complete point-in-time picture of all active
// configs' published values
func buildSnapshot(ctx context.Context, tx Store) (models.ConfigsSnapshot, error) {
	configs, err := tx.Configs().ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active configs: %w", err)
	}

	snapshot := make(models.ConfigsSnapshot, len(configs))
	for _, cfg := range configs {
		published, err := tx.Versions().ByStatus(ctx, cfg.ID, models.StatusPublished)
		if err != nil {
			return nil, fmt.Errorf("load published version for %s: %w", cfg.KeyName, err)
		}
		if published == nil {
			// Never published; the config is served from its default and
			// has no place in the snapshot yet.
			continue
		}
		snapshot[cfg.ID] = models.SnapshotEntry{
			KeyName:       cfg.KeyName,
			VersionID:     published.ID,
			VersionNumber: published.VersionNumber,
			Value:         published.Value,
		}
	}
	return snapshot, nil
}

func snapshotByKey(snapshot models.ConfigsSnapshot) map[string]models.Value {
	out := make(map[string]models.Value, len(snapshot))
	for _, entry := range snapshot {
		out[entry.KeyName] = entry.Value
	}
	return out
}
