package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/inkwell-ai/scholar-discovery/internal/domain"
	"github.com/inkwell-ai/scholar-discovery/internal/observability"
	"github.com/inkwell-ai/scholar-discovery/internal/pipeline"
)

// Request validation constants.
const (
	maxQueryLength     = 10000
	maxContentSources  = 50
	maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies
)

// registerContentRequest is the JSON request body for registering extracted content.
type registerContentRequest struct {
	SourceType string   `json:"source_type" validate:"required"`
	SourceID   string   `json:"source_id" validate:"required"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Keywords   []string `json:"keywords"`
	KeyPhrases []string `json:"key_phrases"`
	Topics     []string `json:"topics"`
	Confidence float64  `json:"confidence" validate:"min=0,max=1"`
}

// feedbackRequest is the JSON request body for recording a feedback event.
type feedbackRequest struct {
	SessionID string               `json:"session_id" validate:"required"`
	UserID    string               `json:"user_id" validate:"required"`
	Action    string               `json:"action" validate:"required"`
	Result    domain.ScholarResult `json:"result"`
}

// executeSearch handles POST /api/v1/search.
// It runs the full discovery pipeline and returns the first batch of ranked results.
func (s *Server) executeSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req pipeline.Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" && len(req.ContentSources) == 0 {
		writeError(w, http.StatusBadRequest, "either query or content_sources is required")
		return
	}
	if len(req.Query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("query must be at most %d characters", maxQueryLength))
		return
	}
	if len(req.ContentSources) > maxContentSources {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("content_sources must have at most %d entries", maxContentSources))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	if req.UserID != "" {
		ctx = observability.WithUserID(ctx, req.UserID)
	}

	resp, err := s.pipeline.Execute(ctx, req)
	if err != nil {
		if resp == nil {
			writeDomainError(w, err)
			return
		}
		// The pipeline failure envelope is the response body; only the
		// status code reflects the error class.
		writeJSON(w, statusForError(err), resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// nextBatch handles GET /api/v1/search/{sessionID}/next.
// It returns the next progressive batch for an open load session.
func (s *Server) nextBatch(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	batch, err := s.pipeline.NextBatch(sessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, batch)
}

// endSession handles DELETE /api/v1/search/{sessionID}.
// It releases the load session; ending an unknown session is not an error.
func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	s.pipeline.EndSession(sessionID)

	writeJSON(w, http.StatusOK, endSessionResponse{
		SessionID: sessionID,
		Status:    "ended",
	})
}

// registerContent handles POST /api/v1/content.
// It registers extracted content so later searches can reference it as a source.
func (s *Server) registerContent(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req registerContentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	sourceType := domain.SourceType(req.SourceType)
	if !sourceType.IsValid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported source type: %s", req.SourceType))
		return
	}

	content := domain.ExtractedContent{
		SourceType:  sourceType,
		SourceID:    req.SourceID,
		Title:       req.Title,
		Content:     req.Content,
		Keywords:    req.Keywords,
		KeyPhrases:  req.KeyPhrases,
		Topics:      req.Topics,
		Confidence:  req.Confidence,
		ExtractedAt: time.Now(),
	}
	if !content.HasTerms() {
		writeError(w, http.StatusBadRequest, "at least one keyword or topic is required")
		return
	}

	s.contents.Register(content)

	writeJSON(w, http.StatusCreated, registerContentResponse{
		SourceType: req.SourceType,
		SourceID:   req.SourceID,
		Registered: true,
	})
}

// recordFeedback handles POST /api/v1/feedback.
// It persists one user action against a search result.
func (s *Server) recordFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req feedbackRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	action := domain.FeedbackAction(req.Action)
	if !action.IsValid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported action: %s", req.Action))
		return
	}
	if strings.TrimSpace(req.Result.Title) == "" && strings.TrimSpace(req.Result.DOI) == "" {
		writeError(w, http.StatusBadRequest, "result title or doi is required")
		return
	}

	event := domain.NewFeedbackEvent(req.SessionID, req.UserID, req.Result, action)

	if err := s.feedback.Record(ctx, event); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, recordFeedbackResponse{
		EventID:  event.ID.String(),
		ResultID: event.ResultID,
		Action:   string(event.Action),
		Recorded: true,
	})
}

// listSessionFeedback handles GET /api/v1/search/{sessionID}/feedback.
// It returns every recorded feedback event for a session, oldest first.
func (s *Server) listSessionFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "sessionID")

	events, err := s.feedback.ListBySession(ctx, sessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := sessionFeedbackResponse{
		SessionID:  sessionID,
		Events:     make([]feedbackEventResponse, len(events)),
		TotalCount: len(events),
	}
	for i, e := range events {
		resp.Events[i] = domainFeedbackToResponse(e)
	}

	writeJSON(w, http.StatusOK, resp)
}

// userPreferences handles GET /api/v1/users/{userID}/preferences.
// It returns the preference pattern aggregated from the user's feedback history.
func (s *Server) userPreferences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userID")

	pattern, err := s.preferences.Pattern(ctx, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pattern)
}

// userLearningMetrics handles GET /api/v1/users/{userID}/learning-metrics.
// It summarizes the user's feedback history for observability.
func (s *Server) userLearningMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userID")

	metrics, err := s.preferences.Metrics(ctx, userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, metrics)
}

// statusForError maps domain errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrStageFailed), errors.Is(err, domain.ErrParseFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError maps domain errors to HTTP status codes and writes a JSON
// error response. Internal error details are not leaked to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	status := statusForError(err)
	switch status {
	case http.StatusNotFound:
		writeError(w, status, "resource not found")
	case http.StatusBadRequest:
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, status, ve.Error())
		} else {
			writeError(w, status, "invalid input")
		}
	case http.StatusTooManyRequests:
		writeError(w, status, "rate limited")
	case http.StatusServiceUnavailable:
		writeError(w, status, "service unavailable")
	case http.StatusBadGateway:
		writeError(w, status, "upstream search failed")
	default:
		writeError(w, status, "internal server error")
	}
}

// validationMessage renders the first struct validation failure as a
// client-facing message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("%s failed %s validation", strings.ToLower(fe.Field()), fe.Tag())
	}
	return "invalid request"
}
