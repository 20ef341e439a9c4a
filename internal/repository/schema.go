package repository

import (
	"context"
	"database/sql"
)

// schemaDDL is intentionally restricted to the dialect both engines share
// (Postgres and SQLite): TEXT/REAL/INTEGER/BOOLEAN/TIMESTAMP, $N placeholders,
// ON CONFLICT upserts.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id                 TEXT PRIMARY KEY,
		source_path        TEXT NOT NULL,
		source_format      TEXT NOT NULL,
		document_type      TEXT NOT NULL,
		supplier           TEXT NOT NULL,
		fields             TEXT NOT NULL,
		overall_confidence REAL NOT NULL,
		status             TEXT NOT NULL,
		error_message      TEXT NOT NULL DEFAULT '',
		raw_text           TEXT NOT NULL DEFAULT '',
		duration_ms        INTEGER NOT NULL DEFAULT 0,
		created_at         TIMESTAMP NOT NULL,
		updated_at         TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS learned_patterns (
		id           TEXT PRIMARY KEY,
		supplier     TEXT NOT NULL,
		field_name   TEXT NOT NULL,
		pattern      TEXT NOT NULL,
		priority     INTEGER NOT NULL,
		success_rate REAL NOT NULL,
		usage_count  INTEGER NOT NULL,
		is_active    BOOLEAN NOT NULL,
		created_at   TIMESTAMP NOT NULL,
		updated_at   TIMESTAMP NOT NULL,
		UNIQUE (supplier, field_name, pattern)
	)`,
	`CREATE TABLE IF NOT EXISTS pattern_samples (
		id             TEXT PRIMARY KEY,
		supplier       TEXT NOT NULL,
		field_name     TEXT NOT NULL,
		text           TEXT NOT NULL,
		expected_value TEXT NOT NULL,
		created_at     TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pattern_samples_key ON pattern_samples (supplier, field_name)`,
	`CREATE TABLE IF NOT EXISTS mapping_rules (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		conditions   TEXT NOT NULL,
		projections  TEXT NOT NULL,
		priority     INTEGER NOT NULL,
		success_rate REAL NOT NULL,
		usage_count  INTEGER NOT NULL,
		is_active    BOOLEAN NOT NULL,
		last_used_at TIMESTAMP NOT NULL,
		created_at   TIMESTAMP NOT NULL,
		updated_at   TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS templates (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		category   TEXT NOT NULL,
		sheet_name TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS template_field_mappings (
		template_id     TEXT NOT NULL,
		field_name      TEXT NOT NULL,
		target_location TEXT NOT NULL,
		location_type   TEXT NOT NULL,
		description     TEXT NOT NULL DEFAULT '',
		required        BOOLEAN NOT NULL,
		PRIMARY KEY (template_id, field_name)
	)`,
}

// Migrate applies the schema. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaDDL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
