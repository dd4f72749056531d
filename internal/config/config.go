// Package config loads and validates watcher configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends understood by the server wiring.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendGCS      = "gcs"
)

// Page fetch modes.
const (
	ModeColly    = "colly"
	ModeHeadless = "headless"
)

// ScheduleLayout is the clock format accepted by schedule.at.
const ScheduleLayout = "15:04"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Source    SourceConfig    `mapstructure:"source"`
	Headless  HeadlessConfig  `mapstructure:"headless"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                   int `mapstructure:"port"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
}

// SourceConfig describes the page carrying the map version marker.
type SourceConfig struct {
	URL            string `mapstructure:"url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	Mode           string `mapstructure:"mode"`
	Pattern        string `mapstructure:"pattern"`
	RespectRobots  bool   `mapstructure:"respect_robots"`
}

// HeadlessConfig configures the chromedp fetcher used in headless mode.
type HeadlessConfig struct {
	NavTimeoutSec int    `mapstructure:"nav_timeout_seconds"`
	SettleMillis  int    `mapstructure:"settle_millis"`
	ExecPath      string `mapstructure:"exec_path"`
}

// StorageConfig selects and configures the key-value backend.
type StorageConfig struct {
	Backend  string         `mapstructure:"backend"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	GCS      GCSConfig      `mapstructure:"gcs"`
}

// SQLiteConfig points at the database file.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// PostgresConfig controls access to the relational database.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// GCSConfig names the bucket and object prefix for the GCS backend.
type GCSConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// NotifyConfig lists the notification channels.
type NotifyConfig struct {
	Email  EmailConfig  `mapstructure:"email"`
	PubSub PubSubConfig `mapstructure:"pubsub"`
}

// EmailConfig configures the transactional email API.
type EmailConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	APIURL         string   `mapstructure:"api_url"`
	APIKey         string   `mapstructure:"api_key"`
	From           string   `mapstructure:"from"`
	To             []string `mapstructure:"to"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// ScheduleConfig controls the in-process daily trigger used by serve.
type ScheduleConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	At         string `mapstructure:"at"`
	RunOnStart bool   `mapstructure:"run_on_start"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// TelemetryConfig names the service in traces.
type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MAPWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Cloud Run injects PORT; the prefixed variable still wins.
	if err := v.BindEnv("server.port", "PORT"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("source.url", "")
	v.SetDefault("source.timeout_seconds", 5)
	v.SetDefault("source.user_agent", "mapwatch/0.1")
	v.SetDefault("source.mode", ModeColly)
	v.SetDefault("source.pattern", "")
	v.SetDefault("source.respect_robots", false)
	v.SetDefault("headless.nav_timeout_seconds", 5)
	v.SetDefault("headless.settle_millis", 500)
	v.SetDefault("headless.exec_path", "")
	v.SetDefault("storage.backend", BackendSQLite)
	v.SetDefault("storage.sqlite.path", "mapwatch.db")
	v.SetDefault("storage.postgres.dsn", "")
	v.SetDefault("storage.postgres.table", "kv_entries")
	v.SetDefault("storage.postgres.max_conns", 4)
	v.SetDefault("storage.gcs.bucket", "")
	v.SetDefault("storage.gcs.prefix", "mapwatch")
	v.SetDefault("notify.email.enabled", false)
	v.SetDefault("notify.email.api_url", "https://api.resend.com/emails")
	v.SetDefault("notify.email.api_key", "")
	v.SetDefault("notify.email.from", "")
	v.SetDefault("notify.email.to", []string{})
	v.SetDefault("notify.email.timeout_seconds", 10)
	v.SetDefault("notify.pubsub.enabled", false)
	v.SetDefault("notify.pubsub.project_id", "")
	v.SetDefault("notify.pubsub.topic_id", "")
	v.SetDefault("schedule.enabled", false)
	v.SetDefault("schedule.at", "06:00")
	v.SetDefault("schedule.run_on_start", false)
	v.SetDefault("logging.development", true)
	v.SetDefault("telemetry.service_name", "mapwatch")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if err := c.Source.validate(); err != nil {
		return err
	}
	if err := c.Storage.validate(); err != nil {
		return err
	}
	if e := c.Notify.Email; e.Enabled {
		if e.APIKey == "" {
			return fmt.Errorf("notify.email.api_key must be set when email is enabled")
		}
		if e.From == "" {
			return fmt.Errorf("notify.email.from must be set when email is enabled")
		}
		if len(e.To) == 0 {
			return fmt.Errorf("notify.email.to must list at least one recipient when email is enabled")
		}
	}
	if p := c.Notify.PubSub; p.Enabled && (p.ProjectID == "" || p.TopicID == "") {
		return fmt.Errorf("notify.pubsub.project_id and notify.pubsub.topic_id must be set when pubsub is enabled")
	}
	if c.Schedule.Enabled {
		if _, err := time.Parse(ScheduleLayout, c.Schedule.At); err != nil {
			return fmt.Errorf("schedule.at must be HH:MM: %w", err)
		}
	}
	return nil
}

func (s SourceConfig) validate() error {
	if s.URL == "" {
		return fmt.Errorf("source.url must be set")
	}
	u, err := url.Parse(s.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("source.url must be an absolute http(s) URL, got %q", s.URL)
	}
	if s.TimeoutSeconds <= 0 {
		return fmt.Errorf("source.timeout_seconds must be > 0")
	}
	switch s.Mode {
	case ModeColly, ModeHeadless:
	default:
		return fmt.Errorf("source.mode must be %q or %q, got %q", ModeColly, ModeHeadless, s.Mode)
	}
	return nil
}

func (s StorageConfig) validate() error {
	switch s.Backend {
	case BackendMemory:
	case BackendSQLite:
		if s.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path must be set for the sqlite backend")
		}
	case BackendPostgres:
		if s.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn must be set for the postgres backend")
		}
	case BackendGCS:
		if s.GCS.Bucket == "" {
			return fmt.Errorf("storage.gcs.bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("storage.backend %q is not supported", s.Backend)
	}
	return nil
}

// SourceTimeout converts the fetch timeout into a duration.
func (c Config) SourceTimeout() time.Duration {
	return time.Duration(c.Source.TimeoutSeconds) * time.Second
}

// ShutdownTimeout is the graceful shutdown window for the HTTP server.
func (c Config) ShutdownTimeout() time.Duration {
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}
