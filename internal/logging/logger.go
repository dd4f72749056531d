// Package logging builds the service's zap loggers.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/map-version-watcher/internal/watcher"
)

// ServiceName is attached to every production log line.
const ServiceName = "mapwatch"

// New builds a zap.Logger configured for development or production.
// Production logs are JSON, unsampled, and tagged with the service name.
func New(development bool) (*zap.Logger, error) {
	if development {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		logger, err := cfg.Build()
		if err != nil {
			return nil, fmt.Errorf("build dev logger: %w", err)
		}
		return logger, nil
	}
	cfg := zap.NewProductionConfig()
	cfg.Sampling = nil
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.InitialFields = map[string]any{"service": ServiceName}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build prod logger: %w", err)
	}
	return logger, nil
}

// ResultFields renders a check result as structured log fields.
func ResultFields(r watcher.Result) []zap.Field {
	fields := []zap.Field{
		zap.String("outcome", string(r.Outcome)),
		zap.String("date", r.Date),
	}
	if r.Latest != "" {
		fields = append(fields, zap.String("latest_version", r.Latest))
	}
	if r.Previous != nil {
		fields = append(fields,
			zap.String("previous_version", r.Previous.Version),
			zap.String("previous_date", r.Previous.Date),
		)
	}
	return fields
}
