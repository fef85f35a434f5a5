package feedback

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/inkwell-ai/scholar-discovery/internal/domain"
	"github.com/inkwell-ai/scholar-discovery/internal/observability"
)

// Service records feedback events durably and fans them out to the
// publisher. The durable write is authoritative: a publish failure is logged
// and counted but never surfaced to the caller.
type Service struct {
	store     Store
	publisher Publisher
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

// NewService creates a feedback service.
func NewService(store Store, publisher Publisher, metrics *observability.Metrics, logger zerolog.Logger) *Service {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &Service{
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.With().Str("component", "feedback-service").Logger(),
	}
}

// Record persists the event and publishes it best-effort.
func (s *Service) Record(ctx context.Context, event *domain.FeedbackEvent) error {
	if err := s.store.Record(ctx, event); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.FeedbackRecorded.WithLabelValues(string(event.Action)).Inc()
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn().
			Err(err).
			Str("event_id", event.ID.String()).
			Msg("feedback event recorded but not published")
	}

	return nil
}

// ListBySession returns a session's feedback events in chronological order.
func (s *Service) ListBySession(ctx context.Context, sessionID string) ([]domain.FeedbackEvent, error) {
	return s.store.ListBySession(ctx, sessionID)
}
