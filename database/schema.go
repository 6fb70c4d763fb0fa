package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS operators (
		id SERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		hashed_password BYTEA NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS funnel_sessions (
		session_token TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL DEFAULT '',
		traffic_source TEXT NOT NULL DEFAULT '',
		campaign_id TEXT NOT NULL DEFAULT '',
		traffic_id TEXT NOT NULL DEFAULT '',
		utm_source TEXT NOT NULL DEFAULT '',
		utm_medium TEXT NOT NULL DEFAULT '',
		utm_campaign TEXT NOT NULL DEFAULT '',
		utm_content TEXT NOT NULL DEFAULT '',
		utm_term TEXT NOT NULL DEFAULT '',
		referrer TEXT NOT NULL DEFAULT '',
		landing_page TEXT NOT NULL DEFAULT '',
		current_step TEXT NOT NULL DEFAULT '',
		product TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		ip_address TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		last_seen_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_funnel_sessions_created ON funnel_sessions (created_at)`,
	`CREATE TABLE IF NOT EXISTS funnel_events (
		event_id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		session_token TEXT NOT NULL,
		fingerprint TEXT NOT NULL DEFAULT '',
		step TEXT NOT NULL DEFAULT '',
		product TEXT NOT NULL DEFAULT '',
		traffic_source TEXT NOT NULL DEFAULT '',
		page_path TEXT NOT NULL DEFAULT '',
		event_data JSONB,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_funnel_events_dedup ON funnel_events (session_token, event_type, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_funnel_events_created ON funnel_events (created_at)`,
	`CREATE TABLE IF NOT EXISTS abandonments (
		id BIGSERIAL PRIMARY KEY,
		fingerprint TEXT NOT NULL DEFAULT '',
		session_token TEXT NOT NULL DEFAULT '',
		traffic_id TEXT NOT NULL DEFAULT '',
		traffic_source TEXT NOT NULL DEFAULT '',
		product TEXT NOT NULL DEFAULT '',
		step TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		time_on_page_sec INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_abandonments_fingerprint ON abandonments (fingerprint, created_at)`,
	`CREATE TABLE IF NOT EXISTS leads (
		id TEXT PRIMARY KEY,
		session_token TEXT NOT NULL DEFAULT '',
		fingerprint TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		product TEXT NOT NULL DEFAULT '',
		traffic_source TEXT NOT NULL DEFAULT '',
		campaign_id TEXT NOT NULL DEFAULT '',
		traffic_id TEXT NOT NULL DEFAULT '',
		utm_source TEXT NOT NULL DEFAULT '',
		utm_medium TEXT NOT NULL DEFAULT '',
		utm_campaign TEXT NOT NULL DEFAULT '',
		utm_content TEXT NOT NULL DEFAULT '',
		utm_term TEXT NOT NULL DEFAULT '',
		referrer TEXT NOT NULL DEFAULT '',
		landing_page TEXT NOT NULL DEFAULT '',
		urgency_level TEXT NOT NULL DEFAULT '',
		diagnostic_score INTEGER NOT NULL DEFAULT 0,
		key_factors TEXT[] NOT NULL DEFAULT '{}',
		answers JSONB,
		is_valid BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_leads_session ON leads (session_token) WHERE session_token <> ''`,
	`CREATE INDEX IF NOT EXISTS idx_leads_email ON leads (email)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_fingerprint ON leads (fingerprint) WHERE is_valid`,
	`CREATE TABLE IF NOT EXISTS lead_tags (
		lead_id TEXT NOT NULL REFERENCES leads (id) ON DELETE CASCADE,
		tag TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (lead_id, tag)
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id BIGSERIAL PRIMARY KEY,
		order_id TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL,
		product TEXT NOT NULL DEFAULT '',
		amount NUMERIC(12, 2) NOT NULL DEFAULT 0,
		currency TEXT NOT NULL DEFAULT 'BRL',
		customer_name TEXT NOT NULL DEFAULT '',
		customer_email TEXT NOT NULL DEFAULT '',
		customer_phone TEXT NOT NULL DEFAULT '',
		traffic_source TEXT NOT NULL DEFAULT '',
		traffic_id TEXT NOT NULL DEFAULT '',
		utm_source TEXT NOT NULL DEFAULT '',
		utm_medium TEXT NOT NULL DEFAULT '',
		utm_campaign TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id BIGSERIAL PRIMARY KEY,
		session_token TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		text TEXT NOT NULL,
		product TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
}

const clickHouseSchema = `
	CREATE TABLE IF NOT EXISTS funnel_events (
		event_id String,
		event_type LowCardinality(String),
		session_id String,
		fingerprint String,
		step String,
		product LowCardinality(String),
		traffic_source LowCardinality(String),
		page_path String,
		event_data String,
		timestamp DateTime64(3, 'UTC')
	) ENGINE = MergeTree
	PARTITION BY toYYYYMM(timestamp)
	ORDER BY (event_type, timestamp)
`

// EnsureSchema creates the Postgres tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range postgresSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

func EnsureClickHouseSchema(ctx context.Context, conn clickhouse.Conn) error {
	if err := conn.Exec(ctx, clickHouseSchema); err != nil {
		return fmt.Errorf("failed to create clickhouse funnel_events table: %w", err)
	}
	return nil
}
