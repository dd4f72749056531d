// Package storage defines the key-value abstraction behind the version store
// and change log. Backends live in subpackages (memory, sqlite, postgres, gcs)
// so callers depend only on this interface.
package storage

import (
	"context"
	"errors"
	"regexp"
)

// Entry is a single key-value pair within a namespace.
type Entry struct {
	Key   string
	Value string
}

// Provider defines the common interface for a namespaced key-value store.
// Put is an unconditional upsert and is the only mutation primitive.
type Provider interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, namespace, key string) (string, bool, error)
	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, namespace, key, value string) error
	// List returns every entry in the namespace ordered by key.
	List(ctx context.Context, namespace string) ([]Entry, error)
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close() error
}

var validNamespace = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ErrInvalidNamespace is returned for namespaces outside [a-z][a-z0-9_]*.
var ErrInvalidNamespace = errors.New("invalid namespace")

// ValidateNamespace checks that ns is safe to embed in table rows and object paths.
func ValidateNamespace(ns string) error {
	if !validNamespace.MatchString(ns) {
		return ErrInvalidNamespace
	}
	return nil
}
