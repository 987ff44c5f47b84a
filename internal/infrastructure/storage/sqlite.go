package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	schema "github.com/siteguard/widget-go/internal/infrastructure/database"
	"github.com/siteguard/widget-go/internal/infrastructure/persistence/database"
)

// SQLiteStore is a durable key/value scope backed by the kv table. Several scopes
// (one per site origin) can share a database.
type SQLiteStore struct {
	db    *database.DB
	scope string
}

// NewSQLiteStore opens the store for scope, creating the kv table when missing.
func NewSQLiteStore(db *database.DB, scope string) (*SQLiteStore, error) {
	if err := schema.NewTableCreator().CreateKeyValueSchema(db.DB); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, scope: scope}, nil
}

// Get returns the value for key.
func (s *SQLiteStore) Get(key string) (string, bool, error) {
	const query = `SELECT value FROM kv WHERE scope = ? AND key = ?`

	var value string
	err := s.db.QueryRow(query, s.scope, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key.
func (s *SQLiteStore) Set(key, value string) error {
	const query = `
		INSERT INTO kv (scope, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(scope, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	if _, err := s.db.Exec(query, s.scope, key, value, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}
