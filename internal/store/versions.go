package store

import (
	"context"

	"github.com/JakeFAU/map-version-watcher/internal/storage"
	"github.com/JakeFAU/map-version-watcher/internal/watcher"
)

// VersionsNamespace holds date → version entries.
const VersionsNamespace = "versions"

// VersionStore maps UTC date keys to observed versions. Only today's and
// yesterday's keys are consulted when looking up the latest version.
type VersionStore struct {
	kv    storage.Provider
	clock watcher.Clock
}

// NewVersionStore constructs a VersionStore.
func NewVersionStore(kv storage.Provider, clock watcher.Clock) *VersionStore {
	return &VersionStore{kv: kv, clock: clock}
}

// Latest returns today's version if present, otherwise yesterday's.
func (s *VersionStore) Latest(ctx context.Context) (watcher.Observation, bool, error) {
	for _, date := range []string{watcher.Today(s.clock), watcher.Yesterday(s.clock)} {
		version, ok, err := s.Get(ctx, date)
		if err != nil {
			return watcher.Observation{}, false, err
		}
		if ok {
			return watcher.Observation{Date: date, Version: version}, true, nil
		}
	}
	return watcher.Observation{}, false, nil
}

// Get returns the version recorded for date.
func (s *VersionStore) Get(ctx context.Context, date string) (string, bool, error) {
	version, ok, err := s.kv.Get(ctx, VersionsNamespace, date)
	if err != nil {
		return "", false, &watcher.StoreError{Op: "get", Namespace: VersionsNamespace, Key: date, Err: err}
	}
	return version, ok, nil
}

// Put records version for date, replacing any value already stored.
func (s *VersionStore) Put(ctx context.Context, date, version string) error {
	if err := s.kv.Put(ctx, VersionsNamespace, date, version); err != nil {
		return &watcher.StoreError{Op: "put", Namespace: VersionsNamespace, Key: date, Err: err}
	}
	return nil
}
