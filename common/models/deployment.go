package models

import (
	"time"

	"github.com/google/uuid"
)

// SnapshotEntry is the published state of a single config at publish time
type SnapshotEntry struct {
	KeyName       string    `json:"key_name"`
	VersionID     uuid.UUID `json:"version_id"`
	VersionNumber int       `json:"version_number"`
	Value         Value     `json:"value"`
}

// ConfigsSnapshot maps config id -> published value/version at publish time.
// A snapshot is always a complete point-in-time picture of all active
// configs, not just the ones changed by the publish.
type ConfigsSnapshot map[uuid.UUID]SnapshotEntry

// Deployment is an immutable record of one publish (or rollback) action.
// Maps to: deployment table
type Deployment struct {
	ID             uuid.UUID `db:"id" json:"id"`
	DeploymentName string    `db:"deployment_name" json:"deployment_name"`
	Description    string    `db:"description" json:"description"`

	ConfigsSnapshot ConfigsSnapshot `db:"configs_snapshot" json:"configs_snapshot"`

	// Set when this deployment was created by rolling back to a prior one
	RollbackDeploymentID *uuid.UUID `db:"rollback_deployment_id" json:"rollback_deployment_id,omitempty"`

	DeployedBy string    `db:"deployed_by" json:"deployed_by"`
	DeployedAt time.Time `db:"deployed_at" json:"deployed_at"`
}

// IsRollback reports whether the deployment was created by a rollback
func (d *Deployment) IsRollback() bool {
	return d.RollbackDeploymentID != nil
}
