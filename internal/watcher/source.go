package watcher

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// PageSource fetches a configured page and extracts the version from it.
type PageSource struct {
	url       string
	fetcher   PageFetcher
	extractor Extractor
	timeout   time.Duration
}

// PageSourceOption customizes a PageSource.
type PageSourceOption func(*PageSource)

// WithFetchTimeout bounds every page fetch, whichever PageFetcher is used.
func WithFetchTimeout(d time.Duration) PageSourceOption {
	return func(s *PageSource) {
		s.timeout = d
	}
}

// NewPageSource constructs a PageSource.
func NewPageSource(url string, fetcher PageFetcher, extractor Extractor, opts ...PageSourceOption) (*PageSource, error) {
	if url == "" {
		return nil, errors.New("source url is required")
	}
	if fetcher == nil {
		return nil, errors.New("page fetcher is required")
	}
	if extractor == nil {
		return nil, errors.New("extractor is required")
	}
	s := &PageSource{url: url, fetcher: fetcher, extractor: extractor}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// URL returns the page being watched.
func (s *PageSource) URL() string {
	return s.url
}

// FetchLatest retrieves the page and returns the version it advertises.
func (s *PageSource) FetchLatest(ctx context.Context) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	body, err := s.fetcher.FetchPage(ctx, s.url)
	if err != nil {
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			return "", err
		}
		return "", &FetchError{URL: s.url, Err: err}
	}
	version, err := s.extractor.Extract(body)
	if err != nil {
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			if parseErr.Source == "" {
				parseErr.Source = s.url
			}
			return "", parseErr
		}
		return "", fmt.Errorf("extract version: %w", err)
	}
	return version, nil
}
