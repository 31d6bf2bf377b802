package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/playforge/remoteconfig/cmd/configserver/service"
	"github.com/playforge/remoteconfig/common/db"
)

// Store bundles the postgres repositories behind the service persistence
// boundary. A Store is either pool-backed or scoped to one transaction;
// WithTx hands fn a transaction-scoped Store whose writes commit together.
type Store struct {
	db *db.DB // nil when transaction-scoped

	configs       *ConfigRepository
	versions      *VersionRepository
	deployments   *DeploymentRepository
	campaigns     *CampaignRepository
	contextFields *ContextFieldRepository
}

var _ service.Store = (*Store)(nil)

// NewStore creates a pool-backed store
func NewStore(database *db.DB) *Store {
	s := newStore(database)
	s.db = database
	return s
}

func newStore(q db.Querier) *Store {
	return &Store{
		configs:       NewConfigRepository(q),
		versions:      NewVersionRepository(q),
		deployments:   NewDeploymentRepository(q),
		campaigns:     NewCampaignRepository(q),
		contextFields: NewContextFieldRepository(q),
	}
}

// Configs returns the config entry repository
func (s *Store) Configs() service.ConfigStore { return s.configs }

// Versions returns the config version repository
func (s *Store) Versions() service.VersionStore { return s.versions }

// Deployments returns the deployment repository
func (s *Store) Deployments() service.DeploymentStore { return s.deployments }

// Campaigns returns the campaign repository
func (s *Store) Campaigns() service.CampaignStore { return s.campaigns }

// ContextFields returns the context field repository
func (s *Store) ContextFields() service.ContextFieldStore { return s.contextFields }

// WithTx runs fn against a transaction-scoped store. Nested calls reuse the
// enclosing transaction.
func (s *Store) WithTx(ctx context.Context, fn func(service.Store) error) error {
	if s.db == nil {
		return fn(s)
	}
	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(newStore(tx))
	})
}
