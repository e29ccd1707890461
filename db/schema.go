// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the result archive.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// The schema sticks to types and syntax shared by PostgreSQL and SQLite.
const schema = `
-- Closed polls
CREATE TABLE IF NOT EXISTS poll_archive (
    poll_id TEXT PRIMARY KEY,
    code TEXT NOT NULL,
    title TEXT NOT NULL,
    total_votes INTEGER NOT NULL DEFAULT 0,
    participant_count INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    closed_at TIMESTAMP NOT NULL,
    archived_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_poll_archive_closed_at ON poll_archive(closed_at);
CREATE INDEX IF NOT EXISTS idx_poll_archive_code ON poll_archive(code);

-- Final per-option tallies
CREATE TABLE IF NOT EXISTS option_result (
    poll_id TEXT NOT NULL REFERENCES poll_archive(poll_id) ON DELETE CASCADE,
    option_id INTEGER NOT NULL,
    label TEXT NOT NULL,
    votes INTEGER NOT NULL CHECK (votes >= 0),
    result_rank INTEGER NOT NULL,
    PRIMARY KEY (poll_id, option_id)
);

CREATE INDEX IF NOT EXISTS idx_option_result_poll_id ON option_result(poll_id);
`
