package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/JakeFAU/map-version-watcher/internal/metrics"
	"github.com/JakeFAU/map-version-watcher/internal/watcher"
)

// VersionReader looks up the most recently stored version.
type VersionReader interface {
	Latest(ctx context.Context) (watcher.Observation, bool, error)
}

// ChangeReader reads the change log.
type ChangeReader interface {
	Latest(ctx context.Context) (watcher.DatedChange, bool, error)
	List(ctx context.Context) ([]watcher.DatedChange, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires HTTP handlers to the version store and change log.
type Server struct {
	router   chi.Router
	versions VersionReader
	changes  ChangeReader
	ready    Pinger
	logger   *zap.Logger
}

type currentResponse struct {
	CurrentMapVersion *string `json:"current_map_version"`
	LastChecked       *string `json:"last_checked"`
}

type historyEntry struct {
	Date        string `json:"date"`
	FromVersion string `json:"from_version"`
	ToVersion   string `json:"to_version"`
}

type historyResponse struct {
	VersionHistory []historyEntry `json:"version_history"`
}

// NewServer constructs a Server with middleware and routes. ready may be nil,
// in which case /readyz always succeeds.
func NewServer(versions VersionReader, changes ChangeReader, ready Pinger, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		versions: versions,
		changes:  changes,
		ready:    ready,
		logger:   logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(30 * time.Second))

	r.NotFound(s.notFound)
	r.MethodNotAllowed(s.notFound)

	r.Get("/", s.index)
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/", s.apiIndex)
		r.Get("/current", s.current)
		r.Get("/history", s.history)
	})

	s.router = r
	return s
}

// Handler returns the router wrapped with OpenTelemetry instrumentation.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "mapwatch.api",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	var page indexPage
	obs, ok, err := s.versions.Latest(r.Context())
	if err != nil {
		s.logger.Error("read latest version failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read current version")
		return
	}
	if ok {
		page.Current = &obs
	}
	change, ok, err := s.changes.Latest(r.Context())
	if err != nil {
		var storeErr *watcher.StoreError
		if errors.As(err, &storeErr) {
			s.logger.Error("read latest change failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to read latest change")
			return
		}
		s.logger.Warn("skipped undecodable latest change", zap.Error(err))
	}
	if ok {
		page.Change = &change
	}
	s.renderHTML(w, "index.html", page)
}

func (s *Server) apiIndex(w http.ResponseWriter, _ *http.Request) {
	s.renderHTML(w, "api.html", nil)
}

func (s *Server) current(w http.ResponseWriter, r *http.Request) {
	obs, ok, err := s.versions.Latest(r.Context())
	if err != nil {
		s.logger.Error("read latest version failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read current version")
		return
	}
	resp := currentResponse{}
	if ok {
		resp.CurrentMapVersion = &obs.Version
		resp.LastChecked = &obs.Date
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	changes, err := s.changes.List(r.Context())
	if err != nil {
		var storeErr *watcher.StoreError
		if errors.As(err, &storeErr) {
			s.logger.Error("list changes failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to read version history")
			return
		}
		s.logger.Warn("skipped undecodable change records", zap.Error(err))
	}
	resp := historyResponse{VersionHistory: make([]historyEntry, 0, len(changes))}
	for _, c := range changes {
		resp.VersionHistory = append(resp.VersionHistory, historyEntry{
			Date:        c.Date,
			FromVersion: c.Record.FromVersion,
			ToVersion:   c.Record.ToVersion,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			s.logger.Warn("readiness check failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "Not found")
}

func (s *Server) renderHTML(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("render page failed", zap.String("template", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Warn("write page failed", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
