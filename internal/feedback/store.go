// Package feedback persists per-result user actions and learns per-user
// preference patterns that re-rank future search results.
package feedback

import (
	"context"

	"github.com/inkwell-ai/scholar-discovery/internal/domain"
)

// DefaultListLimit bounds how many events a single listing returns.
const DefaultListLimit = 500

// Store is the durable feedback history keyed by session and result
// identity. The pipeline depends on this interface; the PostgreSQL
// implementation lives in this package.
type Store interface {
	// Record persists one feedback event.
	Record(ctx context.Context, event *domain.FeedbackEvent) error

	// ListBySession returns all events recorded in a session, oldest first.
	ListBySession(ctx context.Context, sessionID string) ([]domain.FeedbackEvent, error)

	// ListByUser returns a user's most recent events, oldest first,
	// bounded by limit (DefaultListLimit when limit <= 0).
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.FeedbackEvent, error)
}
