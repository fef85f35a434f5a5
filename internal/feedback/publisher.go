package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/inkwell-ai/scholar-discovery/internal/config"
	"github.com/inkwell-ai/scholar-discovery/internal/domain"
)

const defaultPublishTimeout = 5 * time.Second

// Publisher emits recorded feedback events for downstream consumers
// (analytics, model training). Publishing is best-effort: a failed publish
// never fails the recording path.
type Publisher interface {
	Publish(ctx context.Context, event *domain.FeedbackEvent) error
	Close() error
}

// KafkaPublisher publishes feedback events as JSON messages keyed by user
// ID, so one user's events land on one partition in order.
type KafkaPublisher struct {
	writer  *kafka.Writer
	timeout time.Duration
	logger  zerolog.Logger
}

// NewKafkaPublisher creates a Kafka-backed feedback publisher.
func NewKafkaPublisher(cfg config.KafkaConfig, logger zerolog.Logger) *KafkaPublisher {
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: timeout,
		RequiredAcks: kafka.RequireOne,
	}

	return &KafkaPublisher{
		writer:  writer,
		timeout: timeout,
		logger:  logger.With().Str("component", "feedback-publisher").Logger(),
	}
}

// Publish writes one feedback event to the configured topic.
func (p *KafkaPublisher) Publish(ctx context.Context, event *domain.FeedbackEvent) error {
	if event == nil {
		return domain.NewValidationError("event", "feedback event is required")
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding feedback event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.UserID),
		Value: value,
		Time:  event.CreatedAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing feedback event: %w", err)
	}

	p.logger.Debug().
		Str("event_id", event.ID.String()).
		Str("user_id", event.UserID).
		Str("action", string(event.Action)).
		Msg("feedback event published")

	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher discards events. Used when Kafka publishing is disabled.
type NoopPublisher struct{}

// Publish discards the event.
func (NoopPublisher) Publish(context.Context, *domain.FeedbackEvent) error { return nil }

// Close is a no-op.
func (NoopPublisher) Close() error { return nil }

// NewPublisher returns a Kafka publisher when enabled, a no-op otherwise.
func NewPublisher(cfg config.KafkaConfig, logger zerolog.Logger) Publisher {
	if !cfg.Enabled {
		return NoopPublisher{}
	}
	return NewKafkaPublisher(cfg, logger)
}
