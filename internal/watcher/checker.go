package watcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/map-version-watcher/internal/metrics"
	"github.com/JakeFAU/map-version-watcher/internal/telemetry"
)

// CheckerConfig carries presentation details for notifications.
type CheckerConfig struct {
	SourceURL string
}

// Checker runs one fetch, compare, persist and notify pass per call to Run.
type Checker struct {
	source   VersionFetcher
	versions VersionStore
	changes  ChangeLog
	notifier Notifier
	clock    Clock
	cfg      CheckerConfig
	logger   *zap.Logger
}

// NewChecker constructs a Checker.
func NewChecker(
	source VersionFetcher,
	versions VersionStore,
	changes ChangeLog,
	notifier Notifier,
	clock Clock,
	cfg CheckerConfig,
	logger *zap.Logger,
) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{
		source:   source,
		versions: versions,
		changes:  changes,
		notifier: notifier,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run performs a single check. Fetch, persist, change-log and notification
// failures are returned so the caller can report the run as failed.
func (c *Checker) Run(ctx context.Context) (Result, error) {
	ctx, span := telemetry.StartSpan(ctx, "check.run")
	defer span.End()

	now := c.clock.Now().UTC()
	result := Result{Outcome: OutcomeFailed, Date: DateKey(now)}

	previous, known := c.readPrevious(ctx)
	if known {
		result.Previous = &previous
		span.SetAttributes(attribute.String("mapwatch.previous_version", previous.Version))
	}

	latest, err := c.fetchLatest(ctx)
	if err != nil {
		c.logger.Error("fetch latest version failed", zap.Error(err))
		if known {
			err = c.reportFailure(ctx, result.Date, "fetch", err)
		}
		return c.finish(span, result, err)
	}
	result.Latest = latest
	span.SetAttributes(attribute.String("mapwatch.latest_version", latest))
	metrics.SetCurrentVersion(latest)

	if err := c.versions.Put(ctx, result.Date, latest); err != nil {
		c.logger.Error("persist latest version failed",
			zap.String("date", result.Date),
			zap.String("version", latest),
			zap.Error(err),
		)
		return c.finish(span, result, c.reportFailure(ctx, result.Date, "persist", err))
	}

	switch {
	case !known:
		c.logger.Info("first check, no previous version recorded",
			zap.String("date", result.Date),
			zap.String("version", latest),
		)
		result.Outcome = OutcomeFirstCheck
		return c.finish(span, result, nil)
	case previous.Version == latest:
		c.logger.Info("map version unchanged",
			zap.String("version", latest),
			zap.String("previous_date", previous.Date),
		)
		result.Outcome = OutcomeUnchanged
		return c.finish(span, result, nil)
	}

	change := ChangeRecord{
		CreatedAt:   now.UnixMilli(),
		FromVersion: previous.Version,
		ToVersion:   latest,
	}
	if err := c.changes.Record(ctx, result.Date, change); err != nil {
		c.logger.Error("record version change failed", zap.String("date", result.Date), zap.Error(err))
		return c.finish(span, result, err)
	}
	c.logger.Info("map version changed",
		zap.String("from", previous.Version),
		zap.String("to", latest),
		zap.String("date", result.Date),
	)
	result.Outcome = OutcomeChanged

	if err := c.send(ctx, c.changeMessage(result.Date, change)); err != nil {
		c.logger.Error("change notification failed", zap.Error(err))
		return c.finish(span, result, err)
	}
	return c.finish(span, result, nil)
}

func (c *Checker) readPrevious(ctx context.Context) (Observation, bool) {
	ctx, span := telemetry.StartSpan(ctx, "check.read_previous")
	defer span.End()

	obs, ok, err := c.versions.Latest(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		c.logger.Warn("lookup of previous version failed, treating as unknown", zap.Error(err))
		return Observation{}, false
	}
	return obs, ok
}

func (c *Checker) fetchLatest(ctx context.Context) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "check.fetch_latest")
	defer span.End()

	start := time.Now()
	version, err := c.source.FetchLatest(ctx)
	metrics.ObserveFetch(time.Since(start))
	if err != nil {
		telemetry.RecordError(span, err)
		return "", err
	}
	return version, nil
}

// reportFailure sends a failure notification for a step and returns the
// original error, joined with the notification error when sending failed.
func (c *Checker) reportFailure(ctx context.Context, date, step string, cause error) error {
	msg := Message{
		Kind:    MessageKindFailure,
		Subject: fmt.Sprintf("Map version check failed (%s)", step),
		Body: fmt.Sprintf(
			"The map version check on %s failed during the %s step.\n\nError: %v\n%s",
			date, step, cause, c.sourceLine(),
		),
		Date: date,
	}
	if err := c.send(ctx, msg); err != nil {
		c.logger.Error("failure notification failed", zap.String("step", step), zap.Error(err))
		return errors.Join(cause, err)
	}
	return cause
}

func (c *Checker) changeMessage(date string, change ChangeRecord) Message {
	return Message{
		Kind:    MessageKindChange,
		Subject: fmt.Sprintf("Map version changed: %s to %s", change.FromVersion, change.ToVersion),
		Body: fmt.Sprintf(
			"The latest map version changed from %s to %s on %s.\n%s",
			change.FromVersion, change.ToVersion, date, c.sourceLine(),
		),
		Date:   date,
		Change: &change,
	}
}

func (c *Checker) sourceLine() string {
	if c.cfg.SourceURL == "" {
		return ""
	}
	return "\nSource: " + c.cfg.SourceURL + "\n"
}

func (c *Checker) send(ctx context.Context, msg Message) error {
	ctx, span := telemetry.StartSpan(ctx, "check.notify", attribute.String("mapwatch.message_kind", string(msg.Kind)))
	defer span.End()

	err := c.notifier.Notify(ctx, msg)
	metrics.ObserveNotification(string(msg.Kind), err)
	if err != nil {
		telemetry.RecordError(span, err)
		var notifyErr *NotificationError
		if errors.As(err, &notifyErr) {
			return err
		}
		return &NotificationError{Err: err}
	}
	return nil
}

func (c *Checker) finish(span trace.Span, result Result, err error) (Result, error) {
	if err != nil {
		result.Outcome = OutcomeFailed
		telemetry.RecordError(span, err)
	}
	span.SetAttributes(attribute.String("mapwatch.outcome", string(result.Outcome)))
	metrics.ObserveCheck(string(result.Outcome))
	return result, err
}
