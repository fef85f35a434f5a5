package feedback

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-ai/scholar-discovery/internal/domain"
)

func sampleResult() domain.ScholarResult {
	return domain.ScholarResult{
		Title:     "Attention Is All You Need",
		Authors:   []string{"Ashish Vaswani", "Noam Shazeer"},
		Journal:   "NeurIPS",
		Year:      2017,
		Citations: 90000,
		DOI:       "10.5555/3295222.3295349",
		Keywords:  []string{"transformers", "attention"},
	}
}

func sampleEvent(action domain.FeedbackAction) *domain.FeedbackEvent {
	event := domain.NewFeedbackEvent("session-1", "user-1", sampleResult(), action)
	event.CreatedAt = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	return event
}

func eventRow(event *domain.FeedbackEvent) []any {
	snapshot, _ := json.Marshal(event.Result)
	return []any{
		event.ID, event.SessionID, event.UserID, event.ResultID,
		string(event.Action), snapshot, event.CreatedAt,
	}
}

func TestPgStoreRecord(t *testing.T) {
	t.Run("inserts event with snapshot", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		event := sampleEvent(domain.ActionAdded)
		snapshot, err := json.Marshal(event.Result)
		require.NoError(t, err)

		mock.ExpectExec("INSERT INTO feedback_events").
			WithArgs(event.ID, event.SessionID, event.UserID, event.ResultID,
				string(event.Action), snapshot, event.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		store := NewPgStore(mock)
		err = store.Record(context.Background(), event)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects nil event", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := NewPgStore(mock)
		err = store.Record(context.Background(), nil)

		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "event", verr.Field)
	})

	t.Run("rejects missing session id", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		event := sampleEvent(domain.ActionAdded)
		event.SessionID = ""

		store := NewPgStore(mock)
		err = store.Record(context.Background(), event)

		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "session_id", verr.Field)
	})

	t.Run("rejects unknown action", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		event := sampleEvent("starred")

		store := NewPgStore(mock)
		err = store.Record(context.Background(), event)

		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "action", verr.Field)
	})
}

func TestPgStoreListBySession(t *testing.T) {
	t.Run("returns events oldest first", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		first := sampleEvent(domain.ActionViewed)
		second := sampleEvent(domain.ActionAdded)
		second.ID = uuid.New()
		second.CreatedAt = first.CreatedAt.Add(time.Minute)

		columns := []string{"id", "session_id", "user_id", "result_id", "action", "result", "created_at"}
		mock.ExpectQuery("SELECT (.+) FROM feedback_events").
			WithArgs("session-1").
			WillReturnRows(pgxmock.NewRows(columns).
				AddRow(eventRow(first)...).
				AddRow(eventRow(second)...))

		store := NewPgStore(mock)
		events, err := store.ListBySession(context.Background(), "session-1")
		require.NoError(t, err)
		require.Len(t, events, 2)

		assert.Equal(t, domain.ActionViewed, events[0].Action)
		assert.Equal(t, domain.ActionAdded, events[1].Action)
		assert.Equal(t, "Attention Is All You Need", events[0].Result.Title)
		assert.Equal(t, 90000, events[0].Result.Citations)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects empty session id", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := NewPgStore(mock)
		_, err = store.ListBySession(context.Background(), "")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("empty result set yields empty slice", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		columns := []string{"id", "session_id", "user_id", "result_id", "action", "result", "created_at"}
		mock.ExpectQuery("SELECT (.+) FROM feedback_events").
			WithArgs("session-2").
			WillReturnRows(pgxmock.NewRows(columns))

		store := NewPgStore(mock)
		events, err := store.ListBySession(context.Background(), "session-2")
		require.NoError(t, err)
		assert.NotNil(t, events)
		assert.Empty(t, events)
	})
}

func TestPgStoreListByUser(t *testing.T) {
	t.Run("applies default limit", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		columns := []string{"id", "session_id", "user_id", "result_id", "action", "result", "created_at"}
		mock.ExpectQuery("SELECT (.+) FROM feedback_events").
			WithArgs("user-1", DefaultListLimit).
			WillReturnRows(pgxmock.NewRows(columns))

		store := NewPgStore(mock)
		_, err = store.ListByUser(context.Background(), "user-1", 0)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("passes explicit limit", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		event := sampleEvent(domain.ActionBookmarked)
		columns := []string{"id", "session_id", "user_id", "result_id", "action", "result", "created_at"}
		mock.ExpectQuery("SELECT (.+) FROM feedback_events").
			WithArgs("user-1", 25).
			WillReturnRows(pgxmock.NewRows(columns).AddRow(eventRow(event)...))

		store := NewPgStore(mock)
		events, err := store.ListByUser(context.Background(), "user-1", 25)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, domain.ActionBookmarked, events[0].Action)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects empty user id", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		store := NewPgStore(mock)
		_, err = store.ListByUser(context.Background(), "", 10)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
