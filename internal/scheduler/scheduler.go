// Package scheduler triggers a job once per day at a fixed UTC time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Job is the unit of work run on each tick.
type Job func(ctx context.Context) error

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// Config controls the daily trigger.
type Config struct {
	// At is the UTC wall-clock time as HH:MM.
	At         string
	RunOnStart bool
}

// Daily runs a Job every day at a fixed UTC time of day.
type Daily struct {
	offset     time.Duration
	runOnStart bool
	job        Job
	clock      Clock
	logger     *zap.Logger
	after      func(time.Duration) <-chan time.Time
}

// New validates cfg and builds a Daily scheduler.
func New(cfg Config, job Job, clock Clock, logger *zap.Logger) (*Daily, error) {
	if job == nil {
		return nil, errors.New("scheduler job is required")
	}
	if clock == nil {
		return nil, errors.New("scheduler clock is required")
	}
	offset, err := ParseAt(cfg.At)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Daily{
		offset:     offset,
		runOnStart: cfg.RunOnStart,
		job:        job,
		clock:      clock,
		logger:     logger,
		after:      time.After,
	}, nil
}

// ParseAt converts an HH:MM string into an offset from midnight.
func ParseAt(at string) (time.Duration, error) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return 0, fmt.Errorf("parse schedule time %q: %w", at, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// NextRun returns the first instant strictly after now that falls at offset
// past a UTC midnight.
func NextRun(now time.Time, offset time.Duration) time.Time {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	next := midnight.Add(offset)
	if !next.After(now) {
		next = midnight.AddDate(0, 0, 1).Add(offset)
	}
	return next
}

// Run blocks, invoking the job at each scheduled time until ctx finishes.
// Job errors are logged; the next day's run still happens.
func (d *Daily) Run(ctx context.Context) {
	if d.runOnStart {
		d.tick(ctx)
	}
	for {
		next := NextRun(d.clock.Now(), d.offset)
		wait := next.Sub(d.clock.Now())
		d.logger.Info("next check scheduled", zap.Time("at", next), zap.Duration("in", wait))
		select {
		case <-ctx.Done():
			return
		case <-d.after(wait):
			d.tick(ctx)
		}
	}
}

func (d *Daily) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := d.job(ctx); err != nil {
		d.logger.Error("scheduled check failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return
	}
	d.logger.Info("scheduled check completed", zap.Duration("elapsed", time.Since(start)))
}
