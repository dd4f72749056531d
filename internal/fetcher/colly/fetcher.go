// Package collyfetcher retrieves pages over plain HTTP using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/map-version-watcher/internal/watcher"
)

// DefaultTimeout bounds a page fetch when Config.Timeout is unset.
const DefaultTimeout = 5 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// Fetcher implements watcher.PageFetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

type fetchState struct {
	status int
	body   []byte
	err    error
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Transport == nil {
		cfg.Transport = newHTTPTransport()
	}
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(cfg.Transport)
	return &Fetcher{cfg: cfg, baseCollector: c}
}

// FetchPage performs a single GET and returns the body. Non-2xx responses
// and transport failures are reported as *watcher.FetchError.
func (f *Fetcher) FetchPage(ctx context.Context, url string) ([]byte, error) {
	state := &fetchState{}
	collector := f.buildCollector(state)

	if err := f.runCollector(ctx, collector, url); err != nil {
		return nil, &watcher.FetchError{URL: url, StatusCode: state.status, Err: err}
	}
	if state.err != nil {
		return nil, &watcher.FetchError{URL: url, StatusCode: state.status, Err: state.err}
	}
	if state.status < 200 || state.status > 299 {
		return nil, &watcher.FetchError{URL: url, StatusCode: state.status}
	}
	return state.body, nil
}

func (f *Fetcher) buildCollector(state *fetchState) *colly.Collector {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	collector.AllowURLRevisit = true
	collector.ParseHTTPErrorResponse = true
	collector.SetRequestTimeout(f.cfg.Timeout)
	collector.WithTransport(f.cfg.Transport)

	configureCollectorHooks(collector, state)
	return collector
}

func configureCollectorHooks(hooks collectorHooks, state *fetchState) {
	hooks.OnResponse(func(r *colly.Response) {
		state.status = r.StatusCode
		state.body = append([]byte(nil), r.Body...)
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			state.status = r.StatusCode
		}
		state.err = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
}
