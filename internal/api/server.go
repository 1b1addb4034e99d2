// Package api exposes ingestion and chapter summaries over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/bookdigest/internal/config"
	"github.com/dgallion1/bookdigest/internal/library"
	"github.com/dgallion1/bookdigest/internal/llm"
	"github.com/dgallion1/bookdigest/internal/pipeline"
)

// StatsSource reports completion latency for the configured model.
type StatsSource interface {
	Model() string
	Stats() *llm.LLMStats
}

// Server is the HTTP API server for bookdigest.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	library      *library.Library
	stats        StatsSource
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. stats may be nil.
func NewServer(orch *pipeline.Orchestrator, stats StatsSource, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		library:      orch.Library(),
		stats:        stats,
		log:          log,
		cfg:          cfg,
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

		r.Post("/api/documents", s.handleUpload)
		r.Get("/api/ingest/{jobID}/status", s.handleIngestStatus)
		r.Get("/api/stats/llm", s.handleLLMStats)

		r.Get("/api/documents", s.handleListDocuments)
		r.Get("/api/documents/{docID}/chapters", s.handleListChapters)
		r.Get("/api/documents/{docID}/summary", s.handleSummary)
		r.Delete("/api/documents/{docID}", s.handleDeleteDocument)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
