package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/playforge/remoteconfig/common/errs"
)

// ConfigValueType is the declared type of a config entry's value
type ConfigValueType string

const (
	ConfigString  ConfigValueType = "string"
	ConfigNumber  ConfigValueType = "number"
	ConfigBoolean ConfigValueType = "boolean"
	ConfigJSON    ConfigValueType = "json"
	ConfigYAML    ConfigValueType = "yaml"
)

// VersionStatus is the lifecycle state of a config version
type VersionStatus string

const (
	StatusDraft     VersionStatus = "draft"
	StatusStaged    VersionStatus = "staged"
	StatusPublished VersionStatus = "published"
	StatusArchived  VersionStatus = "archived"
)

// versionTransitions is the full state machine: draft -> staged -> published
// -> archived. No transition skips a state.
var versionTransitions = map[VersionStatus][]VersionStatus{
	StatusDraft:     {StatusStaged},
	StatusStaged:    {StatusPublished, StatusDraft},
	StatusPublished: {StatusArchived},
	StatusArchived:  {},
}

// CanTransition reports whether the status may move to the target state
func (s VersionStatus) CanTransition(to VersionStatus) bool {
	for _, next := range versionTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ConfigEntry is a named, typed configuration value delivered to clients.
// Maps to: config_entry table
type ConfigEntry struct {
	ID      uuid.UUID `db:"id" json:"id"`
	KeyName string    `db:"key_name" json:"key_name"`

	Description string          `db:"description" json:"description"`
	ValueType   ConfigValueType `db:"value_type" json:"value_type"`

	// Value served before the first publish
	DefaultValue Value `db:"default_value" json:"default_value"`

	// Optional JSON Schema enforced on json-typed drafts
	Schema []byte `db:"schema" json:"schema,omitempty"`

	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ConfigVersion is one immutable revision of a config's value.
// Maps to: config_version table
//
// Invariants: version numbers increase monotonically per config; at most one
// version per config is staged and at most one is published at any time.
type ConfigVersion struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	ConfigID      uuid.UUID     `db:"config_id" json:"config_id"`
	VersionNumber int           `db:"version_number" json:"version_number"`
	Value         Value         `db:"value" json:"value"`
	Status        VersionStatus `db:"status" json:"status"`

	ChangeDescription string     `db:"change_description" json:"change_description"`
	PublishedAt       *time.Time `db:"published_at" json:"published_at,omitempty"`
	CreatedBy         string     `db:"created_by" json:"created_by"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
}

// Transition moves the version to the target status, rejecting illegal moves
func (v *ConfigVersion) Transition(to VersionStatus) error {
	if !v.Status.CanTransition(to) {
		return errs.InvalidState("config version %d cannot move from %s to %s",
			v.VersionNumber, v.Status, to)
	}
	v.Status = to
	return nil
}

// IsDraft reports whether the version is a draft
func (v *ConfigVersion) IsDraft() bool {
	return v.Status == StatusDraft
}

// IsStaged reports whether the version is staged
func (v *ConfigVersion) IsStaged() bool {
	return v.Status == StatusStaged
}

// IsPublished reports whether the version is live
func (v *ConfigVersion) IsPublished() bool {
	return v.Status == StatusPublished
}
