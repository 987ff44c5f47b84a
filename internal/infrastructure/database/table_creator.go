// Package database provides schema creation for the sandbox collector and the durable
// identity store.
package database

import (
	"database/sql"
	"fmt"
)

// TableCreator handles the creation of the database schema.
type TableCreator struct{}

// NewTableCreator creates a new TableCreator.
func NewTableCreator() *TableCreator {
	return &TableCreator{}
}

// CreateSchema executes all necessary queries to build the tables and indexes.
func (tc *TableCreator) CreateSchema(db *sql.DB) error {
	for _, tableSQL := range tables {
		if _, err := db.Exec(tableSQL); err != nil {
			return fmt.Errorf("failed to create table for query [%s]: %w", tableSQL, err)
		}
	}

	for _, indexSQL := range indexes {
		if _, err := db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index for query [%s]: %w", indexSQL, err)
		}
	}
	return nil
}

// CreateKeyValueSchema creates only the table used by the durable identity store.
func (tc *TableCreator) CreateKeyValueSchema(db *sql.DB) error {
	if _, err := db.Exec(kvTable); err != nil {
		return fmt.Errorf("failed to create kv table: %w", err)
	}
	return nil
}

const kvTable = `CREATE TABLE IF NOT EXISTS kv (
	scope TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (scope, key)
)`

var tables = []string{
	kvTable,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		visitor_id TEXT NOT NULL,
		referrer TEXT,
		utm_source TEXT,
		utm_medium TEXT,
		utm_campaign TEXT,
		landing_page TEXT,
		device_type TEXT,
		browser TEXT,
		os TEXT,
		screen_width INTEGER,
		screen_height INTEGER,
		language TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS pageviews (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		url TEXT,
		path TEXT NOT NULL,
		title TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS page_updates (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		path TEXT NOT NULL,
		time_on_page_seconds INTEGER NOT NULL,
		scroll_depth_percent INTEGER NOT NULL,
		clicks INTEGER NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		page_path TEXT,
		value TEXT,
		element TEXT,
		metadata TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS session_ends (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		duration_seconds INTEGER NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS consents (
		tenant_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		accepted INTEGER NOT NULL,
		terms_version TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (tenant_id, session_id)
	)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		conversation_id TEXT NOT NULL,
		role TEXT NOT NULL,
		message TEXT NOT NULL,
		confidence REAL,
		escalated INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_sessions_tenant_session ON sessions(tenant_id, session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_pageviews_tenant_session ON pageviews(tenant_id, session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_page_updates_tenant_session ON page_updates(tenant_id, session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_events_tenant_session ON events(tenant_id, session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_chat_messages_conversation ON chat_messages(conversation_id)`,
}
