package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables. Safe to call multiple times.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS officers (
    id UUID PRIMARY KEY,
    officer_id TEXT NOT NULL UNIQUE,
    secret TEXT NOT NULL,
    name TEXT NOT NULL,
    booth_id TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS voters (
    id UUID PRIMARY KEY,
    voter_id TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    age INTEGER NOT NULL,
    address TEXT NOT NULL,
    booth_id TEXT NOT NULL,
    photo_url TEXT,
    fingerprint_template TEXT,
    has_voted BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS candidates (
    id UUID PRIMARY KEY,
    name TEXT NOT NULL,
    party_name TEXT NOT NULL,
    party_symbol TEXT NOT NULL,
    booth_id TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_candidates_booth_id ON candidates(booth_id);

CREATE TABLE IF NOT EXISTS votes (
    id UUID PRIMARY KEY,
    voter_id TEXT NOT NULL UNIQUE REFERENCES voters(voter_id),
    candidate_id TEXT NOT NULL,
    officer_id TEXT NOT NULL,
    booth_id TEXT NOT NULL,
    face_match_score INTEGER NOT NULL CHECK (face_match_score BETWEEN 0 AND 100),
    fingerprint_match_score INTEGER NOT NULL CHECK (fingerprint_match_score BETWEEN 0 AND 100),
    cast_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_votes_booth_id ON votes(booth_id);

CREATE TABLE IF NOT EXISTS audit_logs (
    id UUID PRIMARY KEY,
    seq BIGSERIAL,
    action TEXT NOT NULL,
    voter_id TEXT,
    officer_id TEXT NOT NULL,
    booth_id TEXT NOT NULL,
    details TEXT,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_logs_booth_time ON audit_logs(booth_id, created_at DESC, seq DESC);
`
