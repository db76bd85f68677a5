// Package web serves the photorank HTTP API and frontend.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/joeypohie/photorank/internal/config"
	"github.com/joeypohie/photorank/internal/photos"
	"github.com/joeypohie/photorank/internal/web/handlers"
	"github.com/joeypohie/photorank/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	config       *config.Config
	router       *chi.Mux
	httpServer   *http.Server
	store        *photos.Store
	runner       handlers.Runner
	results      *handlers.ResultCache
	cacheEnabled bool
}

// NewServer creates a new web server. cacheEnabled reports whether the
// runner's embedding provider is backed by the database cache.
func NewServer(cfg *config.Config, store *photos.Store, runner handlers.Runner, cacheEnabled bool) *Server {
	r := chi.NewRouter()

	s := &Server{
		config:       cfg,
		router:       r,
		store:        store,
		runner:       runner,
		results:      handlers.NewResultCache(),
		cacheEnabled: cacheEnabled,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(5 * time.Minute))
	r.Use(middleware.CORS(cfg.Web.AllowedOrigins))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // Long timeout for SSE and uploads
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
