package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"newsdesk/internal/logging"
	"newsdesk/internal/middleware"
	"newsdesk/internal/models"
	"newsdesk/internal/pipeline"
)

// PipelineService runs news through stages
type PipelineService interface {
	ProcessNews(ctx context.Context, userID int64, text string, stageIDs []int64) *pipeline.Result
	GetAvailableStages(ctx context.Context) ([]pipeline.StageInfo, error)
}

// PromptService manages per-user stage prompts
type PromptService interface {
	GetOrCreateUserPrompt(ctx context.Context, userID, stageID int64) (*models.UserPrompt, error)
	UpdateUserPrompt(ctx context.Context, userID, stageID int64, text string) (*models.UserPrompt, error)
	ResetUserPrompt(ctx context.Context, userID, stageID int64) (*models.UserPrompt, error)
	InitializeUserPrompts(ctx context.Context, userID int64) (int, error)
}

// HealthChecker reports whether backing services are reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Dependencies aggregates all services the HTTP layer needs.
type Dependencies struct {
	Pipeline PipelineService
	Prompts  PromptService
	Searcher pipeline.Searcher // optional
	Health   HealthChecker     // optional
}

// Server is the HTTP transport in front of the pipeline.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	deps       Dependencies
	log        zerolog.Logger
}

// NewServer creates a server listening on addr
func NewServer(addr string, deps Dependencies) *Server {
	s := &Server{
		router: chi.NewRouter(),
		deps:   deps,
		log:    logging.With("http"),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// Pipelines run several vendor calls sequentially
		WriteTimeout: 10 * time.Minute,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.RequestLogger(s.log))
	s.router.Use(chimw.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.UserIdentity())

		r.Post("/process", s.handleProcess)
		r.Get("/stages", s.handleStages)
		r.Get("/search", s.handleSearch)

		r.Route("/prompts", func(r chi.Router) {
			r.Post("/initialize", s.handleInitializePrompts)
			r.Get("/{stageID}", s.handleGetPrompt)
			r.Put("/{stageID}", s.handleUpdatePrompt)
			r.Post("/{stageID}/reset", s.handleResetPrompt)
		})
	})
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// Handler returns the root handler (useful for testing)
func (s *Server) Handler() http.Handler {
	return s.router
}
