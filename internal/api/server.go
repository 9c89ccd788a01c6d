package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/msgsplit/internal/config"
	"github.com/dgallion1/msgsplit/internal/fragmenter"
	"github.com/dgallion1/msgsplit/internal/pipeline"
	"github.com/dgallion1/msgsplit/internal/stats"
)

// Server is the HTTP API server for msgsplit.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	stats        *stats.Recorder
	log          *slog.Logger
	cfg          config.Config
	defaults     fragmenter.Options
}

// NewServer creates and configures the HTTP server. cfg must have passed
// Validate.
func NewServer(orch *pipeline.Orchestrator, rec *stats.Recorder, log *slog.Logger, cfg config.Config) *Server {
	defaults, err := cfg.FragmenterOptions()
	if err != nil {
		log.Warn("invalid fragmenter settings, using defaults", "error", err)
		defaults = fragmenter.DefaultOptions()
	}
	s := &Server{
		orchestrator: orch,
		stats:        rec,
		log:          log,
		cfg:          cfg,
		defaults:     defaults,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/split", s.handleSplit)
		r.Post("/api/split/file", s.handleSplitFile)
		r.Post("/api/jobs", s.handleSubmitJobs)
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)
		r.Get("/api/stats", s.handleStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}
