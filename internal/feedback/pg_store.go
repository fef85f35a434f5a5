package feedback

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/inkwell-ai/scholar-discovery/internal/database"
	"github.com/inkwell-ai/scholar-discovery/internal/domain"
)

// Compile-time interface verification.
var _ Store = (*PgStore)(nil)

// PgStore is the PostgreSQL implementation of Store.
type PgStore struct {
	db database.DBTX
}

// NewPgStore creates a PostgreSQL feedback store.
func NewPgStore(db database.DBTX) *PgStore {
	return &PgStore{db: db}
}

// Record persists one feedback event. The result snapshot is stored as JSONB
// so patterns can be aggregated without re-fetching results.
func (s *PgStore) Record(ctx context.Context, event *domain.FeedbackEvent) error {
	if event == nil {
		return domain.NewValidationError("event", "event is required")
	}
	if event.SessionID == "" {
		return domain.NewValidationError("session_id", "session id is required")
	}
	if event.UserID == "" {
		return domain.NewValidationError("user_id", "user id is required")
	}
	if !event.Action.IsValid() {
		return domain.NewValidationError("action", fmt.Sprintf("unknown feedback action %q", event.Action))
	}

	snapshot, err := json.Marshal(event.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result snapshot: %w", err)
	}

	query := `
		INSERT INTO feedback_events (id, session_id, user_id, result_id, action, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = s.db.Exec(ctx, query,
		event.ID, event.SessionID, event.UserID, event.ResultID,
		string(event.Action), snapshot, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record feedback event: %w", err)
	}

	return nil
}

// ListBySession returns all events recorded in a session, oldest first.
func (s *PgStore) ListBySession(ctx context.Context, sessionID string) ([]domain.FeedbackEvent, error) {
	if sessionID == "" {
		return nil, domain.NewValidationError("session_id", "session id is required")
	}

	query := `
		SELECT id, session_id, user_id, result_id, action, result, created_at
		FROM feedback_events
		WHERE session_id = $1
		ORDER BY created_at ASC`

	rows, err := s.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback by session: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListByUser returns a user's most recent events, oldest first.
func (s *PgStore) ListByUser(ctx context.Context, userID string, limit int) ([]domain.FeedbackEvent, error) {
	if userID == "" {
		return nil, domain.NewValidationError("user_id", "user id is required")
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT id, session_id, user_id, result_id, action, result, created_at
		FROM (
			SELECT id, session_id, user_id, result_id, action, result, created_at
			FROM feedback_events
			WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC`

	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback by user: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// rowScanner matches both pgx.Rows and pgx.Row for scanning.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanEvents(rows rowScanner) ([]domain.FeedbackEvent, error) {
	events := make([]domain.FeedbackEvent, 0)
	for rows.Next() {
		var (
			event    domain.FeedbackEvent
			action   string
			snapshot []byte
		)
		if err := rows.Scan(&event.ID, &event.SessionID, &event.UserID,
			&event.ResultID, &action, &snapshot, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback event: %w", err)
		}
		event.Action = domain.FeedbackAction(action)
		if len(snapshot) > 0 {
			if err := json.Unmarshal(snapshot, &event.Result); err != nil {
				return nil, fmt.Errorf("failed to unmarshal result snapshot: %w", err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feedback events: %w", err)
	}
	return events, nil
}
