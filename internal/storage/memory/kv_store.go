// Package memory provides an in-memory key-value store for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/JakeFAU/map-version-watcher/internal/storage"
)

// KVStore keeps namespaced entries in maps guarded by a RWMutex.
type KVStore struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

// NewKVStore creates an empty store.
func NewKVStore() *KVStore {
	return &KVStore{data: make(map[string]map[string]string)}
}

// Get returns the value stored under namespace/key.
func (s *KVStore) Get(_ context.Context, namespace, key string) (string, bool, error) {
	if err := storage.ValidateNamespace(namespace); err != nil {
		return "", false, fmt.Errorf("get %q: %w", namespace, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[namespace][key]
	return v, ok, nil
}

// Put upserts value under namespace/key.
func (s *KVStore) Put(_ context.Context, namespace, key, value string) error {
	if err := storage.ValidateNamespace(namespace); err != nil {
		return fmt.Errorf("put %q: %w", namespace, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.data[namespace]
	if !ok {
		ns = make(map[string]string)
		s.data[namespace] = ns
	}
	ns[key] = value
	return nil
}

// List returns a copy of the namespace ordered by key.
func (s *KVStore) List(_ context.Context, namespace string) ([]storage.Entry, error) {
	if err := storage.ValidateNamespace(namespace); err != nil {
		return nil, fmt.Errorf("list %q: %w", namespace, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns := s.data[namespace]
	out := make([]storage.Entry, 0, len(ns))
	for k, v := range ns {
		out = append(out, storage.Entry{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Ping always succeeds.
func (s *KVStore) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *KVStore) Close() error { return nil }
