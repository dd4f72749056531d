// Package sqlite provides a key-value store backed by an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/JakeFAU/map-version-watcher/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv_entries (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (namespace, key)
)`

// KVStore implements storage.Provider on SQLite.
type KVStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*KVStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=wal;",
		"PRAGMA busy_timeout=1000;",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &KVStore{db: db}, nil
}

// Get returns the value stored under namespace/key.
func (s *KVStore) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	if err := storage.ValidateNamespace(namespace); err != nil {
		return "", false, fmt.Errorf("get %q: %w", namespace, err)
	}
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM kv_entries WHERE namespace = ? AND key = ?", namespace, key,
	).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("select entry: %w", err)
	}
	return value, true, nil
}

// Put upserts value under namespace/key.
func (s *KVStore) Put(ctx context.Context, namespace, key, value string) error {
	if err := storage.ValidateNamespace(namespace); err != nil {
		return fmt.Errorf("put %q: %w", namespace, err)
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO kv_entries (namespace, key, value, updated_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		namespace, key, value,
	)
	if err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}
	return nil
}

// List returns every entry in the namespace ordered by key.
func (s *KVStore) List(ctx context.Context, namespace string) ([]storage.Entry, error) {
	if err := storage.ValidateNamespace(namespace); err != nil {
		return nil, fmt.Errorf("list %q: %w", namespace, err)
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT key, value FROM kv_entries WHERE namespace = ? ORDER BY key", namespace,
	)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []storage.Entry
	for rows.Next() {
		var e storage.Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}

// Ping verifies the database handle is usable.
func (s *KVStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *KVStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}
