package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/JakeFAU/map-version-watcher/internal/watcher"
)

// PubSub publishes messages as JSON events on a Pub/Sub topic.
type PubSub struct {
	topic  *pubsub.Topic
	logger *zap.Logger
}

// NewPubSub wraps an existing topic handle. The caller owns the client.
func NewPubSub(topic *pubsub.Topic, logger *zap.Logger) (*PubSub, error) {
	if topic == nil {
		return nil, errors.New("pubsub topic is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PubSub{topic: topic, logger: logger}, nil
}

// Notify publishes msg and waits for the server to acknowledge it.
func (p *PubSub) Notify(ctx context.Context, msg watcher.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return &watcher.NotificationError{Channel: "pubsub", Err: fmt.Errorf("marshal message: %w", err)}
	}

	attrs := map[string]string{
		"kind": string(msg.Kind),
		"date": msg.Date,
	}
	otel.GetTextMapPropagator().Inject(ctx, &attributeCarrier{attrs: attrs})

	id, err := p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs}).Get(ctx)
	if err != nil {
		return &watcher.NotificationError{Channel: "pubsub", Err: fmt.Errorf("publish message: %w", err)}
	}
	p.logger.Info("event published",
		zap.String("topic", p.topic.ID()),
		zap.String("message_id", id),
		zap.String("kind", string(msg.Kind)),
	)
	return nil
}

// Stop flushes pending publishes.
func (p *PubSub) Stop() {
	p.topic.Stop()
}

// attributeCarrier implements propagation.TextMapCarrier for message attributes.
type attributeCarrier struct {
	attrs map[string]string
}

func (c *attributeCarrier) Get(key string) string {
	return c.attrs[key]
}

func (c *attributeCarrier) Set(key, value string) {
	c.attrs[key] = value
}

func (c *attributeCarrier) Keys() []string {
	keys := make([]string, 0, len(c.attrs))
	for k := range c.attrs {
		keys = append(keys, k)
	}
	return keys
}
