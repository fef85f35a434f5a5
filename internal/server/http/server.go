// Package httpserver provides the HTTP REST API for the scholar discovery service.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/inkwell-ai/scholar-discovery/internal/database"
	"github.com/inkwell-ai/scholar-discovery/internal/domain"
	"github.com/inkwell-ai/scholar-discovery/internal/optimizer"
	"github.com/inkwell-ai/scholar-discovery/internal/pipeline"
)

// PipelineService runs discovery searches and serves progressive result batches.
type PipelineService interface {
	Execute(ctx context.Context, req pipeline.Request) (*pipeline.Response, error)
	NextBatch(sessionID string) (*optimizer.LoadBatch, error)
	EndSession(sessionID string)
}

// FeedbackService records user feedback against search results.
type FeedbackService interface {
	Record(ctx context.Context, event *domain.FeedbackEvent) error
	ListBySession(ctx context.Context, sessionID string) ([]domain.FeedbackEvent, error)
}

// PreferenceReader exposes per-user learned preference data.
type PreferenceReader interface {
	Pattern(ctx context.Context, userID string) (*domain.UserPreferencePattern, error)
	Metrics(ctx context.Context, userID string) (*domain.LearningMetrics, error)
}

// ContentRegistrar accepts extracted content for later pipeline fetches.
type ContentRegistrar interface {
	Register(content domain.ExtractedContent)
}

// Server is the HTTP REST API server.
type Server struct {
	router      chi.Router
	httpServer  *http.Server
	pipeline    PipelineService
	feedback    FeedbackService
	preferences PreferenceReader
	contents    ContentRegistrar
	db          *database.DB
	validate    *validator.Validate
	logger      zerolog.Logger
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(
	cfg Config,
	pipelineSvc PipelineService,
	feedbackSvc FeedbackService,
	preferences PreferenceReader,
	contents ContentRegistrar,
	db *database.DB,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		pipeline:    pipelineSvc,
		feedback:    feedbackSvc,
		preferences: preferences,
		contents:    contents,
		db:          db,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(jsonContentTypeMiddleware)

	// Health endpoints
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.executeSearch)
		r.Get("/search/{sessionID}/next", s.nextBatch)
		r.Delete("/search/{sessionID}", s.endSession)
		r.Get("/search/{sessionID}/feedback", s.listSessionFeedback)

		r.Post("/content", s.registerContent)

		r.Post("/feedback", s.recordFeedback)

		r.Get("/users/{userID}/preferences", s.userPreferences)
		r.Get("/users/{userID}/learning-metrics", s.userLearningMetrics)
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := s.db.Health(r.Context())
	if health.Status == "healthy" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": health.Status})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{
		"status":   "unhealthy",
		"database": health.Status,
		"error":    health.Error,
	})
}

// readinessHandler returns readiness status including database connectivity.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	health := s.db.Health(r.Context())
	if health.Status != "healthy" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "healthy",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort log; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
