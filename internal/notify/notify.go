// Package notify delivers watcher messages to subscribers.
package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/JakeFAU/map-version-watcher/internal/watcher"
)

// Noop logs messages instead of sending them.
type Noop struct {
	logger *zap.Logger
}

// NewNoop returns a Noop notifier.
func NewNoop(logger *zap.Logger) *Noop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Noop{logger: logger}
}

// Notify logs the message and returns nil.
func (n *Noop) Notify(_ context.Context, msg watcher.Message) error {
	n.logger.Info("notification not sent, no channel configured",
		zap.String("kind", string(msg.Kind)),
		zap.String("subject", msg.Subject),
	)
	return nil
}

// Fanout sends every message to each wrapped notifier.
type Fanout struct {
	notifiers []watcher.Notifier
}

// NewFanout returns a Fanout over the non-nil notifiers.
func NewFanout(notifiers ...watcher.Notifier) *Fanout {
	f := &Fanout{}
	for _, n := range notifiers {
		if n != nil {
			f.notifiers = append(f.notifiers, n)
		}
	}
	return f
}

// Len reports how many notifiers are attached.
func (f *Fanout) Len() int { return len(f.notifiers) }

// Notify delivers msg to all notifiers. A failing channel does not stop the
// others; the failures are joined.
func (f *Fanout) Notify(ctx context.Context, msg watcher.Message) error {
	var errs []error
	for _, n := range f.notifiers {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
