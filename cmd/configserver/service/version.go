package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/playforge/remoteconfig/common/errs"
	"github.com/playforge/remoteconfig/common/logger"
	"github.com/playforge/remoteconfig/common/models"
)

// VersionService implements the config version lifecycle: drafts are created
// on every edit, staged as publish candidates, and published by the
// deployment service. At most one staged and one published version exist per
// config at any time.
type VersionService struct {
	store Store
	log   *logger.Logger
}

// NewVersionService creates a new version service
func NewVersionService(store Store, log *logger.Logger) *VersionService {
	return &VersionService{store: store, log: log}
}

// CreateDraft inserts a new draft version with the next version number. A
// config holds at most one draft; an existing draft is superseded by the new
// one.
func (s *VersionService) CreateDraft(ctx context.Context, configID uuid.UUID, value models.Value, author string) (*models.ConfigVersion, error) {
	entry, err := s.store.Configs().Get(ctx, configID)
	if err != nil {
		return nil, err
	}

	if err := ValidateConfigValue(entry.ValueType, value, entry.Schema); err != nil {
		return nil, err
	}

	var version *models.ConfigVersion
	err = s.store.WithTx(ctx, func(tx Store) error {
		previous, err := tx.Versions().ByStatus(ctx, configID, models.StatusDraft)
		if err != nil {
			return fmt.Errorf("load draft: %w", err)
		}
		if previous != nil {
			if err := tx.Versions().Delete(ctx, previous.ID); err != nil {
				return fmt.Errorf("supersede draft: %w", err)
			}
		}

		next, err := tx.Versions().NextVersionNumber(ctx, configID)
		if err != nil {
			return fmt.Errorf("next version number: %w", err)
		}

		version = &models.ConfigVersion{
			ID:            uuid.New(),
			ConfigID:      configID,
			VersionNumber: next,
			Value:         value,
			Status:        models.StatusDraft,
			CreatedBy:     author,
			CreatedAt:     time.Now().UTC(),
		}
		return tx.Versions().Insert(ctx, version)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithConfigKey(entry.KeyName).Info("draft created", "version", version.VersionNumber)
	return version, nil
}

// Stage transitions the latest draft of each requested config to staged.
// The batch is all-or-nothing: any config without a draft, or with a
// different staged version pending, aborts the whole batch. Re-staging a
// config whose staged version already carries the draft's value is a no-op.
func (s *VersionService) Stage(ctx context.Context, configIDs []uuid.UUID, description, author string) ([]*models.ConfigVersion, error) {
	if len(configIDs) == 0 {
		return nil, errs.Validation("config_ids", "at least one config is required")
	}

	var staged []*models.ConfigVersion
	err := s.store.WithTx(ctx, func(tx Store) error {
		batch := errs.Batch("stage")
		result := make([]*models.ConfigVersion, 0, len(configIDs))
		pending := make([]*models.ConfigVersion, 0, len(configIDs))

		for _, configID := range configIDs {
			entry, err := tx.Configs().Get(ctx, configID)
			if err != nil {
				batch.Add(configID.String(), err)
				continue
			}

			draft, err := tx.Versions().ByStatus(ctx, configID, models.StatusDraft)
			if err != nil {
				return fmt.Errorf("load draft for %s: %w", entry.KeyName, err)
			}
			already, err := tx.Versions().ByStatus(ctx, configID, models.StatusStaged)
			if err != nil {
				return fmt.Errorf("load staged for %s: %w", entry.KeyName, err)
			}

			if already != nil {
				// Idempotent when the pending staged version matches the
				// requested content; otherwise the older candidate must be
				// discarded first.
				if draft == nil || already.Value.Equal(draft.Value) {
					result = append(result, already)
					continue
				}
				batch.Add(entry.KeyName, errs.InvalidState(
					"config %s already has version %d staged; discard it before staging again",
					entry.KeyName, already.VersionNumber))
				continue
			}

			if draft == nil {
				batch.Add(entry.KeyName, errs.InvalidState("config %s has no draft to stage", entry.KeyName))
				continue
			}

			if err := draft.Transition(models.StatusStaged); err != nil {
				batch.Add(entry.KeyName, err)
				continue
			}
			if description != "" {
				draft.ChangeDescription = description
			}
			pending = append(pending, draft)
			result = append(result, draft)
		}

		if !batch.Empty() {
			return batch
		}

		for _, v := range pending {
			if err := tx.Versions().UpdateStatus(ctx, v.ID, models.StatusStaged, nil); err != nil {
				return fmt.Errorf("stage version %s: %w", v.ID, err)
			}
		}

		staged = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("configs staged", "count", len(staged), "author", author)
	return staged, nil
}

// Unstage withdraws a config's staged candidate from the pending release set
// by demoting it back to draft. When a newer draft already exists the staged
// version is deleted instead, mirroring draft supersession.
func (s *VersionService) Unstage(ctx context.Context, configID uuid.UUID) (*models.ConfigVersion, error) {
	entry, err := s.store.Configs().Get(ctx, configID)
	if err != nil {
		return nil, err
	}

	var version *models.ConfigVersion
	err = s.store.WithTx(ctx, func(tx Store) error {
		staged, err := tx.Versions().ByStatus(ctx, configID, models.StatusStaged)
		if err != nil {
			return fmt.Errorf("load staged: %w", err)
		}
		if staged == nil {
			return errs.NotFound("staged version", entry.KeyName)
		}

		draft, err := tx.Versions().ByStatus(ctx, configID, models.StatusDraft)
		if err != nil {
			return fmt.Errorf("load draft: %w", err)
		}
		if draft != nil {
			if err := tx.Versions().Delete(ctx, staged.ID); err != nil {
				return fmt.Errorf("delete staged: %w", err)
			}
			version = draft
			return nil
		}

		if err := staged.Transition(models.StatusDraft); err != nil {
			return err
		}
		if err := tx.Versions().UpdateStatus(ctx, staged.ID, models.StatusDraft, nil); err != nil {
			return fmt.Errorf("unstage version %s: %w", staged.ID, err)
		}
		version = staged
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithConfigKey(entry.KeyName).Info("staged version withdrawn", "version", version.VersionNumber)
	return version, nil
}

// DiscardDraft deletes the current draft version without affecting history
func (s *VersionService) DiscardDraft(ctx context.Context, configID uuid.UUID) error {
	entry, err := s.store.Configs().Get(ctx, configID)
	if err != nil {
		return err
	}

	draft, err := s.store.Versions().ByStatus(ctx, configID, models.StatusDraft)
	if err != nil {
		return fmt.Errorf("load draft: %w", err)
	}
	if draft == nil {
		return errs.NotFound("draft version", entry.KeyName)
	}

	if err := s.store.Versions().Delete(ctx, draft.ID); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}

	s.log.WithConfigKey(entry.KeyName).Info("draft discarded", "version", draft.VersionNumber)
	return nil
}

// PublishedValue returns the currently published value of a config, or its
// static default when nothing has ever been published
func (s *VersionService) PublishedValue(ctx context.Context, configID uuid.UUID) (models.Value, error) {
	entry, err := s.store.Configs().Get(ctx, configID)
	if err != nil {
		return models.Value{}, err
	}

	published, err := s.store.Versions().ByStatus(ctx, configID, models.StatusPublished)
	if err != nil {
		return models.Value{}, fmt.Errorf("load published version: %w", err)
	}
	if published == nil {
		return entry.DefaultValue, nil
	}
	return published.Value, nil
}

// ListVersions returns a config's versions ordered by version number ascending
func (s *VersionService) ListVersions(ctx context.Context, configID uuid.UUID) ([]*models.ConfigVersion, error) {
	if _, err := s.store.Configs().Get(ctx, configID); err != nil {
		return nil, err
	}
	return s.store.Versions().List(ctx, configID)
}
