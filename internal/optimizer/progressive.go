package optimizer

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/inkwell-ai/scholar-discovery/internal/domain"
)

// LoadBatch is one slice of a progressively loaded result set.
type LoadBatch struct {
	SessionID string                `json:"session_id"`
	Results   []domain.RankedResult `json:"results"`

	// LoadedCount is the number of results delivered so far, this batch
	// included.
	LoadedCount int `json:"loaded_count"`

	TotalCount int  `json:"total_count"`
	IsComplete bool `json:"is_complete"`
}

type loadSession struct {
	results   []domain.RankedResult
	batchSize int
	offset    int
	createdAt time.Time
}

// ProgressiveLoader hands out ranked results in fixed-size batches keyed by
// session. Sessions hold the full ranked set; callers pull batches until
// IsComplete.
type ProgressiveLoader struct {
	mu               sync.Mutex
	sessions         map[string]*loadSession
	defaultBatchSize int
	logger           zerolog.Logger
	now              func() time.Time
}

// NewProgressiveLoader creates a loader with the given default batch size.
func NewProgressiveLoader(defaultBatchSize int, logger zerolog.Logger) *ProgressiveLoader {
	return &ProgressiveLoader{
		sessions:         make(map[string]*loadSession),
		defaultBatchSize: defaultBatchSize,
		logger:           logger.With().Str("component", "progressive-loader").Logger(),
		now:              time.Now,
	}
}

// InitSession registers a ranked result set and returns the session ID plus
// the first batch. A non-positive batchSize falls back to the default.
func (l *ProgressiveLoader) InitSession(results []domain.RankedResult, batchSize int) (string, *LoadBatch) {
	if batchSize <= 0 {
		batchSize = l.defaultBatchSize
	}

	id := uuid.NewString()
	session := &loadSession{
		results:   CloneRankedResults(results),
		batchSize: batchSize,
		createdAt: l.now(),
	}

	l.mu.Lock()
	l.sessions[id] = session
	batch := l.nextLocked(id, session)
	l.mu.Unlock()

	l.logger.Debug().
		Str("session_id", id).
		Int("total", len(results)).
		Int("batch_size", batchSize).
		Msg("progressive session started")

	return id, batch
}

// NextBatch returns the next slice of the session's results. Once all
// results are delivered it keeps returning empty complete batches until the
// session is ended.
func (l *ProgressiveLoader) NextBatch(sessionID string) (*LoadBatch, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	session, ok := l.sessions[sessionID]
	if !ok {
		return nil, domain.NewNotFoundError("load session", sessionID)
	}
	return l.nextLocked(sessionID, session), nil
}

// EndSession discards the session. Ending an unknown session is a no-op.
func (l *ProgressiveLoader) EndSession(sessionID string) {
	l.mu.Lock()
	delete(l.sessions, sessionID)
	l.mu.Unlock()
}

// SessionCount returns the number of live sessions.
func (l *ProgressiveLoader) SessionCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sessions)
}

// Reset discards all sessions.
func (l *ProgressiveLoader) Reset() {
	l.mu.Lock()
	l.sessions = make(map[string]*loadSession)
	l.mu.Unlock()
}

func (l *ProgressiveLoader) nextLocked(sessionID string, session *loadSession) *LoadBatch {
	end := session.offset + session.batchSize
	if end > len(session.results) {
		end = len(session.results)
	}

	batch := &LoadBatch{
		SessionID:   sessionID,
		Results:     CloneRankedResults(session.results[session.offset:end]),
		LoadedCount: end,
		TotalCount:  len(session.results),
		IsComplete:  end >= len(session.results),
	}
	session.offset = end
	return batch
}
