package system

import (
	"testing"
	"time"

	"github.com/JakeFAU/map-version-watcher/internal/watcher"
)

var _ watcher.Clock = (*Clock)(nil)

// TestClockNowUTC ensures the clock returns UTC timestamps.
func TestClockNowUTC(t *testing.T) {
	t.Parallel()

	clk := New()
	before := time.Now().UTC().Add(-time.Second)
	got := clk.Now()
	after := time.Now().UTC().Add(time.Second)

	if got.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", got.Location())
	}
	if got.Before(before) || got.After(after) {
		t.Fatalf("expected %v to be between %v and %v", got, before, after)
	}
}

func TestClockDrivesDateKeys(t *testing.T) {
	t.Parallel()

	clk := New()
	today := watcher.Today(clk)
	yesterday := watcher.Yesterday(clk)
	if _, err := time.Parse(watcher.DateLayout, today); err != nil {
		t.Fatalf("today %q is not a date key: %v", today, err)
	}
	if yesterday >= today {
		t.Fatalf("expected yesterday %q before today %q", yesterday, today)
	}
}
