package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema statements are idempotent so mains can run EnsureSchema on
// every start. The unique index on the dose log is the authoritative
// duplicate-dose guard; the verifier's read is only an optimization.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS prescription (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		upload_time TIMESTAMP NOT NULL DEFAULT now(),
		medicine_name TEXT NOT NULL,
		medicine_dosage TEXT NOT NULL,
		num_of_times_per_day INT NOT NULL DEFAULT 0,
		time_of_day TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS dose_log (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		log_time TIMESTAMP NOT NULL,
		medicine_name TEXT NOT NULL,
		medicine_dosage TEXT NOT NULL,
		day DATE NOT NULL,
		time_of_day TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_dose_log_once
		ON dose_log (user_id, day, time_of_day, medicine_name)`,
	`CREATE TABLE IF NOT EXISTS scan_cache (
		id BIGSERIAL PRIMARY KEY,
		image_hash TEXT NOT NULL,
		engine TEXT NOT NULL,
		model TEXT NOT NULL,
		scan_text TEXT NOT NULL,
		visible_pills TEXT NOT NULL DEFAULT 'unknown',
		created_at TIMESTAMP NOT NULL DEFAULT now(),
		UNIQUE (image_hash, engine, model)
	)`,
}

// EnsureSchema creates the tables and indexes if they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
