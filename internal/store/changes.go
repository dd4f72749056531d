package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JakeFAU/map-version-watcher/internal/storage"
	"github.com/JakeFAU/map-version-watcher/internal/watcher"
)

const (
	// ChangesNamespace holds date → change record entries and the latest pointer.
	ChangesNamespace = "changes"
	// LatestChangeKey stores the date key of the most recent change record.
	LatestChangeKey = "latest"
)

// ChangeLog is an append-only log of version transitions keyed by date.
type ChangeLog struct {
	kv storage.Provider
}

// NewChangeLog constructs a ChangeLog.
func NewChangeLog(kv storage.Provider) *ChangeLog {
	return &ChangeLog{kv: kv}
}

// Record writes the change under date and then moves the latest pointer to it.
func (l *ChangeLog) Record(ctx context.Context, date string, change watcher.ChangeRecord) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal change record: %w", err)
	}
	if err := l.kv.Put(ctx, ChangesNamespace, date, string(data)); err != nil {
		return &watcher.StoreError{Op: "put", Namespace: ChangesNamespace, Key: date, Err: err}
	}
	if err := l.kv.Put(ctx, ChangesNamespace, LatestChangeKey, date); err != nil {
		return &watcher.StoreError{Op: "put", Namespace: ChangesNamespace, Key: LatestChangeKey, Err: err}
	}
	return nil
}

// Latest follows the pointer key to the most recent change record.
func (l *ChangeLog) Latest(ctx context.Context) (watcher.DatedChange, bool, error) {
	date, ok, err := l.kv.Get(ctx, ChangesNamespace, LatestChangeKey)
	if err != nil {
		return watcher.DatedChange{}, false, &watcher.StoreError{Op: "get", Namespace: ChangesNamespace, Key: LatestChangeKey, Err: err}
	}
	if !ok || date == "" {
		return watcher.DatedChange{}, false, nil
	}
	raw, ok, err := l.kv.Get(ctx, ChangesNamespace, date)
	if err != nil {
		return watcher.DatedChange{}, false, &watcher.StoreError{Op: "get", Namespace: ChangesNamespace, Key: date, Err: err}
	}
	if !ok {
		return watcher.DatedChange{}, false, nil
	}
	rec, err := decodeChange(raw)
	if err != nil {
		return watcher.DatedChange{}, false, fmt.Errorf("decode change %s: %w", date, err)
	}
	return watcher.DatedChange{Date: date, Record: rec}, true, nil
}

// List returns every change record ordered by date, excluding the pointer
// key. Records that fail to decode are skipped and reported in the error.
func (l *ChangeLog) List(ctx context.Context) ([]watcher.DatedChange, error) {
	entries, err := l.kv.List(ctx, ChangesNamespace)
	if err != nil {
		return nil, &watcher.StoreError{Op: "list", Namespace: ChangesNamespace, Err: err}
	}
	out := make([]watcher.DatedChange, 0, len(entries))
	var decodeErrs []error
	for _, e := range entries {
		if e.Key == LatestChangeKey {
			continue
		}
		rec, err := decodeChange(e.Value)
		if err != nil {
			decodeErrs = append(decodeErrs, fmt.Errorf("decode change %s: %w", e.Key, err))
			continue
		}
		out = append(out, watcher.DatedChange{Date: e.Key, Record: rec})
	}
	return out, errors.Join(decodeErrs...)
}

func decodeChange(raw string) (watcher.ChangeRecord, error) {
	var rec watcher.ChangeRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return watcher.ChangeRecord{}, err
	}
	return rec, nil
}
