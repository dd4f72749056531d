// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/map-version-watcher/internal/storage"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const defaultTable = "kv_entries"

// KVStoreConfig controls the Postgres connection pool used for key-value rows.
type KVStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Ping(context.Context) error
	Close()
}

// KVStore stores namespaced key-value rows in a single Postgres table.
type KVStore struct {
	pool  pool
	table string
}

// NewKVStore creates a Postgres-backed KVStore and ensures its table exists.
func NewKVStore(ctx context.Context, cfg KVStoreConfig) (*KVStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("storage.postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewKVStoreWithPool(p, cfg.Table)
	if err != nil {
		p.Close()
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return store, nil
}

// NewKVStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewKVStoreWithPool(p pool, table string) (*KVStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &KVStore{pool: p, table: table}, nil
}

// EnsureSchema creates the backing table when it does not exist.
func (s *KVStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (namespace, key)
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Get returns the value stored under namespace/key.
func (s *KVStore) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	if err := storage.ValidateNamespace(namespace); err != nil {
		return "", false, fmt.Errorf("get %q: %w", namespace, err)
	}
	query := fmt.Sprintf(`SELECT value FROM %s WHERE namespace = $1 AND key = $2`, s.table)
	var value string
	err := s.pool.QueryRow(ctx, query, namespace, key).Scan(&value)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
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
	query := fmt.Sprintf(`
INSERT INTO %s (namespace, key, value, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`, s.table)
	if _, err := s.pool.Exec(ctx, query, namespace, key, value); err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}
	return nil
}

// List returns every entry in the namespace ordered by key.
func (s *KVStore) List(ctx context.Context, namespace string) ([]storage.Entry, error) {
	if err := storage.ValidateNamespace(namespace); err != nil {
		return nil, fmt.Errorf("list %q: %w", namespace, err)
	}
	query := fmt.Sprintf(`SELECT key, value FROM %s WHERE namespace = $1 ORDER BY key`, s.table)
	rows, err := s.pool.Query(ctx, query, namespace)
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

// Ping checks connectivity.
func (s *KVStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *KVStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}
