package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/map-version-watcher/internal/watcher"
)

func TestNewLoggers(t *testing.T) {
	t.Parallel()

	for _, dev := range []bool{true, false} {
		logger, err := New(dev)
		if err != nil {
			t.Fatalf("New(%v) error = %v", dev, err)
		}
		if logger == nil {
			t.Fatal("expected logger to be non-nil")
		}
		logger.Info("logger ready")
		_ = logger.Sync()
	}
}

func TestResultFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	logger.Info("check finished", ResultFields(watcher.Result{
		Outcome:  watcher.OutcomeChanged,
		Date:     "2024-06-02",
		Latest:   "2024",
		Previous: &watcher.Observation{Date: "2024-06-01", Version: "2023"},
	})...)
	logger.Info("check finished", ResultFields(watcher.Result{Outcome: watcher.OutcomeFailed, Date: "2024-06-02"})...)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	got := entries[0].ContextMap()
	if got["outcome"] != "changed" || got["latest_version"] != "2024" || got["previous_version"] != "2023" {
		t.Fatalf("unexpected fields: %v", got)
	}
	failed := entries[1].ContextMap()
	if _, ok := failed["latest_version"]; ok {
		t.Fatalf("failed result without version should omit latest_version: %v", failed)
	}
}
