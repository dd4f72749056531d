// Package metrics exposes Prometheus collectors for the map version watcher.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	checksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapwatch_checks_total",
			Help: "Total number of version checks, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapwatch_notifications_total",
			Help: "Total number of notifications sent, labeled by kind and status.",
		},
		[]string{"kind", "status"},
	)

	currentVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mapwatch_current_version",
			Help: "Most recently observed map version, when numeric.",
		},
	)

	fetchDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mapwatch_fetch_duration_seconds",
			Help:    "Histogram of version page fetch latencies.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapwatch_http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mapwatch_http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"method", "route"},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCheck increments the check counter for the given outcome.
func ObserveCheck(outcome string) {
	checksTotal.WithLabelValues(outcome).Inc()
}

// ObserveNotification increments the notification counter.
func ObserveNotification(kind string, err error) {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	notificationsTotal.WithLabelValues(kind, status).Inc()
}

// ObserveFetch records how long a page fetch took.
func ObserveFetch(duration time.Duration) {
	fetchDurationSeconds.Observe(duration.Seconds())
}

// SetCurrentVersion publishes the observed version when it parses as a number.
func SetCurrentVersion(version string) {
	v, err := strconv.ParseFloat(version, 64)
	if err != nil {
		return
	}
	currentVersion.Set(v)
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
