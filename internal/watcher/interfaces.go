package watcher

import (
	"context"
	"time"
)

// VersionFetcher returns the currently published map version.
type VersionFetcher interface {
	FetchLatest(ctx context.Context) (string, error)
}

// PageFetcher retrieves the raw body of a page.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) ([]byte, error)
}

// Extractor pulls a version string out of a page body.
type Extractor interface {
	Extract(body []byte) (string, error)
}

// VersionStore persists one observed version per date.
type VersionStore interface {
	Latest(ctx context.Context) (Observation, bool, error)
	Put(ctx context.Context, date, version string) error
}

// ChangeLog persists version transitions and tracks the most recent one.
type ChangeLog interface {
	Record(ctx context.Context, date string, change ChangeRecord) error
	Latest(ctx context.Context) (DatedChange, bool, error)
	List(ctx context.Context) ([]DatedChange, error)
}

// Notifier delivers a message to subscribers.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
