package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/railinspect/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Envelope is the pub/sub message wrapping a serialized event
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Publisher is the subset of the redis client used for forwarding
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisEventForwarder republishes domain events on a Redis channel
// so that dashboards outside the process can follow inspections.
type RedisEventForwarder struct {
	client     Publisher
	channel    string
	serializer *EventSerializer
	logger     *zap.Logger
}

// NewRedisEventForwarder creates a forwarder for the given channel
func NewRedisEventForwarder(client Publisher, channel string, serializer *EventSerializer, logger *zap.Logger) *RedisEventForwarder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisEventForwarder{
		client:     client,
		channel:    channel,
		serializer: serializer,
		logger:     logger,
	}
}

// EventTypes returns the registered types; an empty serializer forwards everything
func (f *RedisEventForwarder) EventTypes() []string {
	return f.serializer.RegisteredTypes()
}

// Handle publishes the event envelope
func (f *RedisEventForwarder) Handle(ctx context.Context, event shared.DomainEvent) error {
	payload, err := f.serializer.Serialize(event)
	if err != nil {
		return fmt.Errorf("serialize %s: %w", event.EventType(), err)
	}
	msg, err := json.Marshal(Envelope{Type: event.EventType(), Payload: payload})
	if err != nil {
		return err
	}
	if err := f.client.Publish(ctx, f.channel, msg).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", f.channel, err)
	}
	f.logger.Debug("event forwarded",
		zap.String("channel", f.channel),
		zap.String("event_type", event.EventType()))
	return nil
}

// Decode turns a received message back into a domain event
func (f *RedisEventForwarder) Decode(data []byte) (shared.DomainEvent, error) {
	return DecodeEnvelope(f.serializer, data)
}

// DecodeEnvelope parses an Envelope and deserializes its payload
func DecodeEnvelope(serializer *EventSerializer, data []byte) (shared.DomainEvent, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}
	return serializer.Deserialize(env.Type, env.Payload)
}

var _ shared.EventHandler = (*RedisEventForwarder)(nil)
