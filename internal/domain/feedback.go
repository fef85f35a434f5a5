package domain

import (
	"time"

	"github.com/google/uuid"
)

// FeedbackAction is a user action recorded against a search result.
type FeedbackAction string

// Feedback actions.
const (
	ActionViewed     FeedbackAction = "viewed"
	ActionAdded      FeedbackAction = "added"
	ActionRejected   FeedbackAction = "rejected"
	ActionBookmarked FeedbackAction = "bookmarked"
	ActionIgnored    FeedbackAction = "ignored"
)

// IsValid returns true if the action is one of the known feedback actions.
func (a FeedbackAction) IsValid() bool {
	switch a {
	case ActionViewed, ActionAdded, ActionRejected, ActionBookmarked, ActionIgnored:
		return true
	}
	return false
}

// IsPositive returns true for actions that signal acceptance of a result.
func (a FeedbackAction) IsPositive() bool {
	return a == ActionAdded || a == ActionBookmarked
}

// IsNegative returns true for actions that signal rejection of a result.
func (a FeedbackAction) IsNegative() bool {
	return a == ActionRejected
}

// FeedbackEvent is one recorded user action, keyed by session and result
// identity. Events are persisted durably and aggregated on demand.
type FeedbackEvent struct {
	ID        uuid.UUID
	SessionID string
	UserID    string

	// ResultID is the result identity (ScholarResult.Identity).
	ResultID string

	Action FeedbackAction

	// Result is a snapshot of the result at the time of the action,
	// used to aggregate preference patterns later.
	Result ScholarResult

	CreatedAt time.Time
}

// NewFeedbackEvent creates a feedback event with a generated ID.
func NewFeedbackEvent(sessionID, userID string, result ScholarResult, action FeedbackAction) *FeedbackEvent {
	return &FeedbackEvent{
		ID:        uuid.New(),
		SessionID: sessionID,
		UserID:    userID,
		ResultID:  result.Identity(),
		Action:    action,
		Result:    result,
		CreatedAt: time.Now(),
	}
}

// IntRange is an inclusive integer range with zero meaning unbounded.
type IntRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether v falls inside the range. An unset (zero) bound
// does not constrain.
func (r IntRange) Contains(v int) bool {
	if r.Min != 0 && v < r.Min {
		return false
	}
	if r.Max != 0 && v > r.Max {
		return false
	}
	return true
}

// UserPreferencePattern is a per-user statistical profile learned from
// accept/reject feedback. It is read at ranking time, never mutated
// mid-request.
type UserPreferencePattern struct {
	UserID string `json:"user_id"`

	PreferredAuthors  []string `json:"preferred_authors"`
	PreferredJournals []string `json:"preferred_journals"`

	YearRange     IntRange `json:"year_range"`
	CitationRange IntRange `json:"citation_range"`

	// TopicWeights maps normalized topic terms to learned weights.
	TopicWeights map[string]float64 `json:"topic_weights"`

	QualityThreshold   float64 `json:"quality_threshold"`
	RelevanceThreshold float64 `json:"relevance_threshold"`

	RejectedAuthors  []string `json:"rejected_authors"`
	RejectedJournals []string `json:"rejected_journals"`
	RejectedKeywords []string `json:"rejected_keywords"`

	// SampleSize is the number of feedback events the pattern was built from.
	SampleSize int `json:"sample_size"`
}

// LearningMetrics summarizes a user's feedback history for observability.
type LearningMetrics struct {
	PositiveFeedback int     `json:"positive_feedback"`
	NegativeFeedback int     `json:"negative_feedback"`
	TotalFeedback    int     `json:"total_feedback"`
	AverageRating    float64 `json:"average_rating"`
	ImprovementTrend float64 `json:"improvement_trend"`
	ConfidenceLevel  float64 `json:"confidence_level"`
}
