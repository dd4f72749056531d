package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/JakeFAU/map-version-watcher/internal/watcher"
)

// DefaultEmailAPIURL is the transactional email endpoint used when none is configured.
const DefaultEmailAPIURL = "https://api.resend.com/emails"

const maxErrorBody = 4 << 10

// EmailConfig configures the Email notifier.
type EmailConfig struct {
	APIURL  string
	APIKey  string
	From    string
	To      []string
	Timeout time.Duration
}

// Email posts messages to a transactional email HTTP API.
type Email struct {
	cfg    EmailConfig
	client *http.Client
	logger *zap.Logger
}

type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

// NewEmail validates cfg and builds an Email notifier. A nil client gets an
// otelhttp-instrumented default.
func NewEmail(cfg EmailConfig, client *http.Client, logger *zap.Logger) (*Email, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("email api key is required")
	}
	if cfg.From == "" {
		return nil, errors.New("email sender is required")
	}
	if len(cfg.To) == 0 {
		return nil, errors.New("at least one email recipient is required")
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultEmailAPIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Email{cfg: cfg, client: client, logger: logger}, nil
}

// Notify sends msg as a single email. Any non-2xx response is returned as a
// *watcher.NotificationError carrying the status and response body.
func (e *Email) Notify(ctx context.Context, msg watcher.Message) error {
	payload, err := json.Marshal(emailRequest{
		From:    e.cfg.From,
		To:      e.cfg.To,
		Subject: msg.Subject,
		Text:    msg.Body,
	})
	if err != nil {
		return &watcher.NotificationError{Channel: "email", Err: fmt.Errorf("marshal email: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.APIURL, bytes.NewReader(payload))
	if err != nil {
		return &watcher.NotificationError{Channel: "email", Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return &watcher.NotificationError{Channel: "email", Err: fmt.Errorf("send email: %w", err)}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			e.logger.Warn("close email response body", zap.Error(cerr))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &watcher.NotificationError{
			Channel:    "email",
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}
	e.logger.Info("email sent",
		zap.String("kind", string(msg.Kind)),
		zap.Int("recipients", len(e.cfg.To)),
	)
	return nil
}
