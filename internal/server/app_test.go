package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/map-version-watcher/internal/config"
	"github.com/JakeFAU/map-version-watcher/internal/watcher"
)

type emailSink struct {
	mu       sync.Mutex
	subjects []string
}

func (s *emailSink) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read email body: %v", err)
		}
		var payload struct {
			Subject string `json:"subject"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			t.Errorf("decode email body: %v", err)
		}
		s.mu.Lock()
		s.subjects = append(s.subjects, payload.Subject)
		s.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}
}

func (s *emailSink) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.subjects...)
}

func testConfig(sourceURL string) *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Port: 8080},
		Source:    config.SourceConfig{URL: sourceURL, TimeoutSeconds: 2, Mode: config.ModeColly, UserAgent: "mapwatch-test"},
		Storage:   config.StorageConfig{Backend: config.BackendMemory},
		Schedule:  config.ScheduleConfig{At: "06:00"},
		Telemetry: config.TelemetryConfig{ServiceName: "mapwatch-test"},
	}
}

func TestApp_CheckDetectsChangeAndServesIt(t *testing.T) {
	var version atomic.Value
	version.Store("2023")
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>The latest map version is <b>" + version.Load().(string) + "</b></p></body></html>"))
	}))
	defer source.Close()

	sink := &emailSink{}
	emailAPI := httptest.NewServer(sink.handler(t))
	defer emailAPI.Close()

	cfg := testConfig(source.URL)
	cfg.Notify.Email = config.EmailConfig{
		Enabled: true,
		APIURL:  emailAPI.URL,
		APIKey:  "key",
		From:    "alerts@example.com",
		To:      []string{"ops@example.com"},
	}

	ctx := context.Background()
	app, err := BuildWithLogger(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer func() { require.NoError(t, app.Close(ctx)) }()

	result, err := app.Check(ctx)
	require.NoError(t, err)
	require.Equal(t, watcher.OutcomeFirstCheck, result.Outcome)
	require.Empty(t, sink.sent())

	version.Store("2024")
	result, err = app.Check(ctx)
	require.NoError(t, err)
	require.Equal(t, watcher.OutcomeChanged, result.Outcome)
	require.Equal(t, []string{"Map version changed: 2023 to 2024"}, sink.sent())

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/current", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var current struct {
		Version *string `json:"current_map_version"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &current))
	require.NotNil(t, current.Version)
	require.Equal(t, "2024", *current.Version)

	rec = httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"from_version":"2023"`)
	require.Contains(t, rec.Body.String(), `"to_version":"2024"`)
}

func TestApp_CheckReturnsFetchFailure(t *testing.T) {
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer source.Close()

	ctx := context.Background()
	app, err := BuildWithLogger(ctx, testConfig(source.URL), nil)
	require.NoError(t, err)
	defer func() { require.NoError(t, app.Close(ctx)) }()

	result, err := app.Check(ctx)
	require.Error(t, err)
	require.Equal(t, watcher.OutcomeFailed, result.Outcome)
	var fetchErr *watcher.FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, http.StatusBadGateway, fetchErr.StatusCode)
}

func TestApp_ServeWaitsForScheduledCheck(t *testing.T) {
	requested := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	var once sync.Once
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(requested) })
		select {
		case <-release:
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
		_, _ = w.Write([]byte("<p>Latest map version is 2025</p>"))
	}))
	defer source.Close()

	cfg := testConfig(source.URL)
	cfg.Server.Port = 0
	cfg.Schedule = config.ScheduleConfig{Enabled: true, At: "06:00", RunOnStart: true}

	core, logs := observer.New(zap.InfoLevel)
	app, err := BuildWithLogger(context.Background(), cfg, zap.New(core))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx) }()

	select {
	case <-requested:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled check never fetched the source page")
	}
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	require.Equal(t, 1, logs.FilterMessageSnippet("check finished").Len(),
		"the in-flight check completes before Serve closes resources")
}

func TestApp_SQLiteBackendPersistsAcrossBuilds(t *testing.T) {
	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<p>Latest map version is 2025</p>"))
	}))
	defer source.Close()

	cfg := testConfig(source.URL)
	cfg.Storage = config.StorageConfig{
		Backend: config.BackendSQLite,
		SQLite:  config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "mapwatch.db")},
	}
	ctx := context.Background()

	first, err := BuildWithLogger(ctx, cfg, nil)
	require.NoError(t, err)
	result, err := first.Check(ctx)
	require.NoError(t, err)
	require.Equal(t, watcher.OutcomeFirstCheck, result.Outcome)
	require.NoError(t, first.Close(ctx))

	second, err := BuildWithLogger(ctx, cfg, nil)
	require.NoError(t, err)
	defer func() { require.NoError(t, second.Close(ctx)) }()
	result, err = second.Check(ctx)
	require.NoError(t, err)
	require.Equal(t, watcher.OutcomeUnchanged, result.Outcome)
}

func TestSetupStorage_RejectsUnknownBackend(t *testing.T) {
	t.Parallel()

	cfg := testConfig("https://example.com")
	cfg.Storage.Backend = "redis"
	_, err := setupStorage(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}

func TestBuild_InvalidPatternFails(t *testing.T) {
	t.Parallel()

	cfg := testConfig("https://example.com")
	cfg.Source.Pattern = "no groups"
	_, err := BuildWithLogger(context.Background(), cfg, nil)
	require.ErrorContains(t, err, "version extractor")
}
