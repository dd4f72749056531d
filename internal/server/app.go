// Package server builds the application's components from configuration and
// runs them.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/map-version-watcher/internal/api"
	"github.com/JakeFAU/map-version-watcher/internal/clock/system"
	"github.com/JakeFAU/map-version-watcher/internal/config"
	"github.com/JakeFAU/map-version-watcher/internal/extract"
	collyfetcher "github.com/JakeFAU/map-version-watcher/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/map-version-watcher/internal/fetcher/headless"
	"github.com/JakeFAU/map-version-watcher/internal/logging"
	"github.com/JakeFAU/map-version-watcher/internal/notify"
	"github.com/JakeFAU/map-version-watcher/internal/scheduler"
	"github.com/JakeFAU/map-version-watcher/internal/storage"
	gcsstorage "github.com/JakeFAU/map-version-watcher/internal/storage/gcs"
	memorystorage "github.com/JakeFAU/map-version-watcher/internal/storage/memory"
	pgstore "github.com/JakeFAU/map-version-watcher/internal/storage/postgres"
	sqlitestore "github.com/JakeFAU/map-version-watcher/internal/storage/sqlite"
	"github.com/JakeFAU/map-version-watcher/internal/store"
	"github.com/JakeFAU/map-version-watcher/internal/telemetry"
	"github.com/JakeFAU/map-version-watcher/internal/watcher"
)

// App contains the application's dependencies.
type App struct {
	cfg            *config.Config
	logger         *zap.Logger
	clock          *system.Clock
	kv             storage.Provider
	checker        *watcher.Checker
	apiServer      *api.Server
	pubsubClient   *pubsub.Client
	pubsubNotifier *notify.PubSub
	headless       *headlessfetcher.Fetcher
	tracerShutdown func(context.Context) error
}

// Build creates the application's dependencies, including its logger.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return BuildWithLogger(ctx, cfg, logger)
}

// BuildWithLogger creates the application's dependencies using logger.
func BuildWithLogger(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{
		cfg:    cfg,
		logger: logger,
		clock:  system.New(),
	}
	logger.Info("building application dependencies",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("source_url", cfg.Source.URL),
		zap.String("source_mode", cfg.Source.Mode),
		zap.String("storage_backend", cfg.Storage.Backend),
	)

	tp, err := telemetry.InitTracerProvider(ctx, cfg.Telemetry.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("tracer init failed: %w", err)
	}
	app.tracerShutdown = tp.Shutdown

	if err := app.build(ctx); err != nil {
		if cerr := app.Close(ctx); cerr != nil {
			logger.Warn("cleanup after failed build", zap.Error(cerr))
		}
		return nil, err
	}
	return app, nil
}

func (a *App) build(ctx context.Context) error {
	var err error
	a.kv, err = setupStorage(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}

	source, err := a.setupSource()
	if err != nil {
		return err
	}

	notifier, err := a.setupNotifier(ctx)
	if err != nil {
		return err
	}

	versions := store.NewVersionStore(a.kv, a.clock)
	changes := store.NewChangeLog(a.kv)
	a.checker = watcher.NewChecker(
		source,
		versions,
		changes,
		notifier,
		a.clock,
		watcher.CheckerConfig{SourceURL: source.URL()},
		a.logger.Named("checker"),
	)
	a.apiServer = api.NewServer(versions, changes, a.kv, a.logger.Named("api"))
	return nil
}

func setupStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Provider, error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		kv, err := sqlitestore.Open(ctx, cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("sqlite store init failed: %w", err)
		}
		logger.Info("using sqlite storage backend", zap.String("path", cfg.Storage.SQLite.Path))
		return kv, nil
	case config.BackendPostgres:
		kv, err := pgstore.NewKVStore(ctx, pgstore.KVStoreConfig{
			DSN:      cfg.Storage.Postgres.DSN,
			Table:    cfg.Storage.Postgres.Table,
			MaxConns: cfg.Storage.Postgres.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres store init failed: %w", err)
		}
		logger.Info("using postgres storage backend", zap.String("table", cfg.Storage.Postgres.Table))
		return kv, nil
	case config.BackendGCS:
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		kv, err := gcsstorage.New(client, gcsstorage.Config{
			Bucket: cfg.Storage.GCS.Bucket,
			Prefix: cfg.Storage.GCS.Prefix,
		})
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("gcs store init failed: %w", err)
		}
		logger.Info("using GCS storage backend", zap.String("bucket", cfg.Storage.GCS.Bucket))
		return kv, nil
	case config.BackendMemory:
		logger.Warn("using in-memory storage backend, versions are lost on restart")
		return memorystorage.NewKVStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}

func (a *App) setupSource() (*watcher.PageSource, error) {
	extractor, err := extract.New(a.cfg.Source.Pattern)
	if err != nil {
		return nil, fmt.Errorf("version extractor init failed: %w", err)
	}

	var fetcher watcher.PageFetcher
	switch a.cfg.Source.Mode {
	case config.ModeHeadless:
		a.headless, err = headlessfetcher.NewChromedp(headlessfetcher.Config{
			UserAgent:         a.cfg.Source.UserAgent,
			NavigationTimeout: time.Duration(a.cfg.Headless.NavTimeoutSec) * time.Second,
			SettleDelay:       time.Duration(a.cfg.Headless.SettleMillis) * time.Millisecond,
			ExecPath:          a.cfg.Headless.ExecPath,
		})
		if err != nil {
			return nil, fmt.Errorf("headless fetcher init failed: %w", err)
		}
		fetcher = a.headless
		a.logger.Info("using headless fetcher",
			zap.Int("nav_timeout_seconds", a.cfg.Headless.NavTimeoutSec),
			zap.Duration("timeout", a.cfg.SourceTimeout()),
		)
	default:
		fetcher = collyfetcher.New(collyfetcher.Config{
			UserAgent:     a.cfg.Source.UserAgent,
			RespectRobots: a.cfg.Source.RespectRobots,
			Timeout:       a.cfg.SourceTimeout(),
		})
		a.logger.Info("using colly fetcher",
			zap.String("user_agent", a.cfg.Source.UserAgent),
			zap.Duration("timeout", a.cfg.SourceTimeout()),
		)
	}

	source, err := watcher.NewPageSource(a.cfg.Source.URL, fetcher, extractor,
		watcher.WithFetchTimeout(a.cfg.SourceTimeout()))
	if err != nil {
		return nil, fmt.Errorf("version source init failed: %w", err)
	}
	return source, nil
}

func (a *App) setupNotifier(ctx context.Context) (watcher.Notifier, error) {
	var channels []watcher.Notifier

	if e := a.cfg.Notify.Email; e.Enabled {
		email, err := notify.NewEmail(notify.EmailConfig{
			APIURL:  e.APIURL,
			APIKey:  e.APIKey,
			From:    e.From,
			To:      e.To,
			Timeout: time.Duration(e.TimeoutSeconds) * time.Second,
		}, nil, a.logger.Named("email"))
		if err != nil {
			return nil, fmt.Errorf("email notifier init failed: %w", err)
		}
		channels = append(channels, email)
		a.logger.Info("email notifications enabled", zap.Int("recipients", len(e.To)))
	}

	if p := a.cfg.Notify.PubSub; p.Enabled {
		var err error
		a.pubsubClient, err = pubsub.NewClient(ctx, p.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("pubsub client init failed: %w", err)
		}
		a.pubsubNotifier, err = notify.NewPubSub(a.pubsubClient.Topic(p.TopicID), a.logger.Named("pubsub"))
		if err != nil {
			return nil, fmt.Errorf("pubsub notifier init failed: %w", err)
		}
		channels = append(channels, a.pubsubNotifier)
		a.logger.Info("Pub/Sub notifications enabled",
			zap.String("project", p.ProjectID),
			zap.String("topic", p.TopicID),
		)
	}

	if len(channels) == 0 {
		a.logger.Warn("no notification channel configured, messages will only be logged")
		return notify.NewNoop(a.logger.Named("notify")), nil
	}
	return notify.NewFanout(channels...), nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Check runs a single version check.
func (a *App) Check(ctx context.Context) (watcher.Result, error) {
	result, err := a.checker.Run(ctx)
	if err != nil {
		a.logger.Error("check finished with error", append(logging.ResultFields(result), zap.Error(err))...)
		return result, fmt.Errorf("version check failed: %w", err)
	}
	a.logger.Info("check finished", logging.ResultFields(result)...)
	return result, nil
}

// Serve starts the HTTP server, and the daily scheduler when enabled, and
// blocks until ctx is canceled or a termination signal arrives.
func (a *App) Serve(ctx context.Context) error {
	a.logger.Info("application started")
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var scheduled sync.WaitGroup
	if a.cfg.Schedule.Enabled {
		daily, err := scheduler.New(scheduler.Config{
			At:         a.cfg.Schedule.At,
			RunOnStart: a.cfg.Schedule.RunOnStart,
		}, func(ctx context.Context) error {
			_, err := a.Check(ctx)
			return err
		}, a.clock, a.logger.Named("scheduler"))
		if err != nil {
			return fmt.Errorf("scheduler init failed: %w", err)
		}
		scheduled.Add(1)
		go func() {
			defer scheduled.Done()
			a.logger.Info("scheduler started", zap.String("at_utc", a.cfg.Schedule.At))
			daily.Run(ctx)
		}()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	// An in-flight check must finish before storage and Pub/Sub are closed.
	scheduled.Wait()

	select {
	case err := <-serveErr:
		return errors.Join(fmt.Errorf("http server: %w", err), a.Close(shutdownCtx))
	default:
		return a.Close(shutdownCtx)
	}
}

// Close releases every resource the App opened.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.headless != nil {
		a.headless.Close()
	}
	if a.pubsubNotifier != nil {
		a.pubsubNotifier.Stop()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pubsub client: %w", err))
		}
	}
	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	if err := a.logger.Sync(); err != nil {
		// Sync on a console fd returns EINVAL on Linux.
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}
