package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCheck(t *testing.T) {
	before := testutil.ToFloat64(checksTotal.WithLabelValues("changed"))
	ObserveCheck("changed")
	if val := testutil.ToFloat64(checksTotal.WithLabelValues("changed")) - before; val != 1 {
		t.Errorf("Expected changed counter to increase by 1, got %f", val)
	}
}

func TestObserveNotification(t *testing.T) {
	sentBefore := testutil.ToFloat64(notificationsTotal.WithLabelValues("change", "sent"))
	failedBefore := testutil.ToFloat64(notificationsTotal.WithLabelValues("failure", "failed"))

	ObserveNotification("change", nil)
	ObserveNotification("failure", errors.New("boom"))

	if val := testutil.ToFloat64(notificationsTotal.WithLabelValues("change", "sent")) - sentBefore; val != 1 {
		t.Errorf("Expected sent counter to increase by 1, got %f", val)
	}
	if val := testutil.ToFloat64(notificationsTotal.WithLabelValues("failure", "failed")) - failedBefore; val != 1 {
		t.Errorf("Expected failed counter to increase by 1, got %f", val)
	}
}

func TestSetCurrentVersion(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected float64
	}{
		{"four digits", "2024", 2024},
		{"dotted", "2025.1", 2025.1},
		{"non numeric keeps previous", "v2026", 2025.1},
	}

	for _, tc := range testCases {
		SetCurrentVersion(tc.input)
		if got := testutil.ToFloat64(currentVersion); got != tc.expected {
			t.Errorf("%s: SetCurrentVersion(%q) gauge = %f; want %f", tc.name, tc.input, got, tc.expected)
		}
	}
}
