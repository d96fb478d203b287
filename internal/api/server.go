package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/aicli/internal/config"
	"github.com/dgallion1/aicli/internal/parser"
	"github.com/dgallion1/aicli/internal/stats"
	"github.com/dgallion1/aicli/internal/youtube"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for aicli.
type Server struct {
	router  chi.Router
	loader  parser.Loader
	youtube youtube.Fetcher
	stats   *stats.Registry
	log     *slog.Logger
	cfg     config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(yt youtube.Fetcher, reg *stats.Registry, log *slog.Logger, cfg config.Config) *Server {
	if reg == nil {
		reg = stats.NewRegistry(cfg.StatsWindow)
	}
	s := &Server{
		loader:  parser.Loader{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext},
		youtube: yt,
		stats:   reg,
		log:     log,
		cfg:     cfg,
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

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/summarize", s.handleSummarize)
		r.Post("/api/quiz", s.handleQuiz)
		r.Post("/api/youtube/summarize", s.handleYouTubeSummarize)
		r.Get("/api/stats", s.handleStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
