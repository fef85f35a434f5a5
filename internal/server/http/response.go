package httpserver

import (
	"time"

	"github.com/inkwell-ai/scholar-discovery/internal/domain"
)

// Feedback response types for JSON serialization.

type recordFeedbackResponse struct {
	EventID  string `json:"event_id"`
	ResultID string `json:"result_id"`
	Action   string `json:"action"`
	Recorded bool   `json:"recorded"`
}

type feedbackEventResponse struct {
	EventID   string               `json:"event_id"`
	SessionID string               `json:"session_id"`
	UserID    string               `json:"user_id"`
	ResultID  string               `json:"result_id"`
	Action    string               `json:"action"`
	Result    domain.ScholarResult `json:"result"`
	CreatedAt time.Time            `json:"created_at"`
}

type sessionFeedbackResponse struct {
	SessionID  string                  `json:"session_id"`
	Events     []feedbackEventResponse `json:"events"`
	TotalCount int                     `json:"total_count"`
}

type registerContentResponse struct {
	SourceType string `json:"source_type"`
	SourceID   string `json:"source_id"`
	Registered bool   `json:"registered"`
}

type endSessionResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// Converter functions

func domainFeedbackToResponse(e domain.FeedbackEvent) feedbackEventResponse {
	return feedbackEventResponse{
		EventID:   e.ID.String(),
		SessionID: e.SessionID,
		UserID:    e.UserID,
		ResultID:  e.ResultID,
		Action:    string(e.Action),
		Result:    e.Result,
		CreatedAt: e.CreatedAt,
	}
}
