package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/playforge/remoteconfig/common/models"
)

// Store is the persistence boundary of the config core. Implementations must
// be safe for concurrent use. Single-entity lookups return a NotFoundError
// when the entity does not exist; the ByStatus/Latest style lookups return
// (nil, nil) when absence is a normal outcome.
type Store interface {
	Configs() ConfigStore
	Versions() VersionStore
	Deployments() DeploymentStore
	Campaigns() CampaignStore
	ContextFields() ContextFieldStore

	// WithTx runs fn against a transaction-scoped store. All writes inside
	// fn commit together or not at all.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// ConfigFilter narrows config entry listings
type ConfigFilter struct {
	Search    string
	ValueType models.ConfigValueType
	IsActive  *bool
	Page      int
	Limit     int
}

// ConfigStore persists config entries
type ConfigStore interface {
	Insert(ctx context.Context, entry *models.ConfigEntry) error
	Update(ctx context.Context, entry *models.ConfigEntry) error
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*models.ConfigEntry, error)
	GetByKey(ctx context.Context, keyName string) (*models.ConfigEntry, error)
	List(ctx context.Context, filter ConfigFilter) ([]*models.ConfigEntry, int, error)
	ListActive(ctx context.Context) ([]*models.ConfigEntry, error)
}

// VersionStore persists config versions
type VersionStore interface {
	Insert(ctx context.Context, version *models.ConfigVersion) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.VersionStatus, publishedAt *time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error

	// Latest returns the version with the highest version number, or nil
	Latest(ctx context.Context, configID uuid.UUID) (*models.ConfigVersion, error)
	// ByStatus returns the config's version in the given status, or nil
	ByStatus(ctx context.Context, configID uuid.UUID, status models.VersionStatus) (*models.ConfigVersion, error)
	// AllStaged returns every staged version across all configs
	AllStaged(ctx context.Context) ([]*models.ConfigVersion, error)
	// List returns all versions of a config ordered by version number ascending
	List(ctx context.Context, configID uuid.UUID) ([]*models.ConfigVersion, error)
	// NextVersionNumber returns max(existing)+1 for the config
	NextVersionNumber(ctx context.Context, configID uuid.UUID) (int, error)
}

// DeploymentStore persists deployments. Deployments are immutable.
type DeploymentStore interface {
	Insert(ctx context.Context, deployment *models.Deployment) error
	Get(ctx context.Context, id uuid.UUID) (*models.Deployment, error)
	// GetByName returns the deployment with the given name, or nil
	GetByName(ctx context.Context, name string) (*models.Deployment, error)
	List(ctx context.Context, page, limit int) ([]*models.Deployment, int, error)
}

// CampaignStore persists campaigns, their overrides and variants. Get and
// list operations return campaigns with overrides and variants loaded.
type CampaignStore interface {
	Insert(ctx context.Context, campaign *models.Campaign) error
	Update(ctx context.Context, campaign *models.Campaign) error
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	List(ctx context.Context, page, limit int) ([]*models.Campaign, int, error)
	// ListRunnable returns active campaigns in running status
	ListRunnable(ctx context.Context) ([]*models.Campaign, error)

	UpsertOverride(ctx context.Context, override *models.CampaignOverride) error
	DeleteOverride(ctx context.Context, campaignID, configID uuid.UUID) error
	UpsertVariant(ctx context.Context, variant *models.Variant) error
	DeleteVariant(ctx context.Context, id uuid.UUID) error
}

// ContextFieldStore persists context field definitions
type ContextFieldStore interface {
	Insert(ctx context.Context, field *models.ContextFieldDefinition) error
	Update(ctx context.Context, field *models.ContextFieldDefinition) error
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*models.ContextFieldDefinition, error)
	// GetByKey returns the field with the given key, or nil
	GetByKey(ctx context.Context, key string) (*models.ContextFieldDefinition, error)
	List(ctx context.Context) ([]*models.ContextFieldDefinition, error)
}
