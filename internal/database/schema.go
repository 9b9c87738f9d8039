package database

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS tracked_urls (
		id UUID PRIMARY KEY,
		url TEXT NOT NULL,
		selector TEXT NOT NULL DEFAULT '',
		material_key TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT true,
		auto_scrape BOOLEAN NOT NULL DEFAULT true,
		interval_seconds BIGINT NOT NULL,
		multiplier DOUBLE PRECISION NOT NULL DEFAULT 1.0,
		last_run TIMESTAMPTZ,
		next_due TIMESTAMPTZ,
		last_result JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tracked_urls_due
		ON tracked_urls (next_due) WHERE is_active AND auto_scrape`,
	`CREATE TABLE IF NOT EXISTS scrape_attempts (
		id UUID PRIMARY KEY,
		tracked_url_id UUID REFERENCES tracked_urls(id),
		url TEXT NOT NULL,
		success BOOLEAN NOT NULL,
		price DOUBLE PRECISION,
		title TEXT NOT NULL DEFAULT '',
		availability TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		duration_ms BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_scrape_attempts_tracked_url
		ON scrape_attempts (tracked_url_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS price_records (
		material_key TEXT PRIMARY KEY,
		unit_price DOUBLE PRECISION NOT NULL,
		source TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the schema when it does not exist yet. Statements are
// idempotent so startup can always run this.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
