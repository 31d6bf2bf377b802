package repository

import (
	"context"
	"fmt"

	"github.com/playforge/remoteconfig/common/db"
)

// Migrate creates the schema if it does not exist. Statements are idempotent
// so every instance can run them on startup.
func Migrate(ctx context.Context, database *db.DB) error {
	for i, stmt := range schemaStatements {
		if _, err := database.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d: %w", i, err)
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS config_entry (
		id UUID PRIMARY KEY,
		key_name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		value_type TEXT NOT NULL,
		default_value JSONB NOT NULL,
		schema JSONB,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS config_version (
		id UUID PRIMARY KEY,
		config_id UUID NOT NULL REFERENCES config_entry(id) ON DELETE CASCADE,
		version_number INT NOT NULL,
		value JSONB NOT NULL,
		status TEXT NOT NULL,
		change_description TEXT NOT NULL DEFAULT '',
		published_at TIMESTAMPTZ,
		created_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (config_id, version_number)
	)`,

	// At most one staged and one published version per config
	`CREATE UNIQUE INDEX IF NOT EXISTS config_version_one_staged
		ON config_version (config_id) WHERE status = 'staged'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS config_version_one_published
		ON config_version (config_id) WHERE status = 'published'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS config_version_one_draft
		ON config_version (config_id) WHERE status = 'draft'`,
	`CREATE INDEX IF NOT EXISTS config_version_status_idx
		ON config_version (status)`,

	`CREATE TABLE IF NOT EXISTS deployment (
		id UUID PRIMARY KEY,
		deployment_name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		configs_snapshot JSONB NOT NULL,
		rollback_deployment_id UUID REFERENCES deployment(id),
		deployed_by TEXT NOT NULL DEFAULT '',
		deployed_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS deployment_deployed_at_idx
		ON deployment (deployed_at DESC)`,

	`CREATE TABLE IF NOT EXISTS campaign (
		id UUID PRIMARY KEY,
		campaign_name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		start_date TIMESTAMPTZ,
		end_date TIMESTAMPTZ,
		priority INT NOT NULL DEFAULT 0,
		traffic_percentage DOUBLE PRECISION NOT NULL DEFAULT 100,
		status TEXT NOT NULL,
		target_conditions JSONB NOT NULL DEFAULT '[]',
		expression TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS campaign_runnable_idx
		ON campaign (priority) WHERE is_active = TRUE AND status = 'running'`,

	`CREATE TABLE IF NOT EXISTS campaign_override (
		id UUID PRIMARY KEY,
		campaign_id UUID NOT NULL REFERENCES campaign(id) ON DELETE CASCADE,
		config_id UUID NOT NULL REFERENCES config_entry(id) ON DELETE CASCADE,
		value JSONB NOT NULL,
		UNIQUE (campaign_id, config_id)
	)`,

	`CREATE TABLE IF NOT EXISTS campaign_variant (
		id UUID PRIMARY KEY,
		campaign_id UUID NOT NULL REFERENCES campaign(id) ON DELETE CASCADE,
		config_id UUID NOT NULL REFERENCES config_entry(id) ON DELETE CASCADE,
		variant_name TEXT NOT NULL,
		value JSONB NOT NULL,
		traffic_percentage DOUBLE PRECISION NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		UNIQUE (campaign_id, config_id, variant_name)
	)`,

	`CREATE TABLE IF NOT EXISTS context_field (
		id UUID PRIMARY KEY,
		key TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		operators TEXT[] NOT NULL DEFAULT '{}',
		options TEXT[] NOT NULL DEFAULT '{}',
		default_value JSONB,
		is_required BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}
