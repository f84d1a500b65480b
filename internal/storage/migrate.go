package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is kept portable across sqlite and postgres. UUIDs are stored as
// text so the same DDL serves both drivers.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		source_file TEXT NOT NULL,
		content_sha256 TEXT NOT NULL,
		mime_type TEXT,
		status TEXT NOT NULL,
		chunk_count INTEGER NOT NULL DEFAULT 0,
		segment_count INTEGER NOT NULL DEFAULT 0,
		dominant_language TEXT,
		enrichment_level TEXT,
		error_message TEXT,
		summary TEXT,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		started_at TIMESTAMP NOT NULL,
		completed_at TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_sha ON runs (content_sha256)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs (started_at)`,
	`CREATE TABLE IF NOT EXISTS run_chunks (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL REFERENCES runs (id),
		chunk_index INTEGER NOT NULL,
		text TEXT NOT NULL,
		page INTEGER,
		language TEXT,
		confidence REAL,
		metadata TEXT,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_run_chunks_run ON run_chunks (run_id)`,
}

// Open connects to the database and applies the schema.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies the schema statements in order.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
