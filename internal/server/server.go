// Package server exposes the edit engine over HTTP: document management,
// edit requests, in-progress range queries, accept/reject, and an SSE event
// stream.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/codestream-ai/codestream/internal/agent"
	"github.com/codestream-ai/codestream/internal/config"
	"github.com/codestream-ai/codestream/internal/document"
	"github.com/codestream-ai/codestream/internal/edit"
	"github.com/codestream-ai/codestream/internal/logging"
)

// Config holds server configuration.
type Config struct {
	Port         int
	EnableCORS   bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:         8199,
		EnableCORS:   true,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // no write timeout, the event stream is long-lived
	}
}

// Server is the HTTP server.
type Server struct {
	config      *Config
	router      *chi.Mux
	httpSrv     *http.Server
	options     *config.Service
	workspace   *document.Workspace
	coordinator *edit.Coordinator
}

// New creates a Server wired to the given workspace and agent streamer.
func New(cfg *Config, options *config.Service, workspace *document.Workspace, streamer agent.Streamer) *Server {
	s := &Server{
		config:      cfg,
		router:      chi.NewRouter(),
		options:     options,
		workspace:   workspace,
		coordinator: edit.NewCoordinator(workspace, streamer, options),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Coordinator returns the server's edit coordinator.
func (s *Server) Coordinator() *edit.Coordinator {
	return s.coordinator
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	if s.config.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))
	}
}

// Start begins listening. Blocks until the server stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	logging.Info().Str("addr", addr).Msg("server listening")
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server and disposes the coordinator.
func (s *Server) Shutdown(ctx context.Context) error {
	s.coordinator.Close()
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Handler returns the underlying router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
