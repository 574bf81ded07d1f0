// Package webserver hosts the REST API, health check, and Prometheus metrics
// over a single HTTP listener.
package webserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/agentlens/agentlens/internal/webapi"
	"github.com/chainguard-dev/clog"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port  int
	Store webapi.Store
}

// Server wraps the HTTP server with configuration.
type Server struct {
	cfg Config
	srv *http.Server
}

// New creates a new HTTP server with the given configuration.
func New(cfg Config) *Server {
	if cfg.Port == 0 {
		cfg.Port = 3000
	}

	mux := http.NewServeMux()
	registerRoutes(mux, cfg)

	return &Server{
		cfg: cfg,
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// ListenAndServe starts the HTTP server and shuts it down gracefully when the
// context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	log := clog.FromContext(ctx)
	log.Info("HTTP server starting", "address", s.srv.Addr)

	go func() {
		<-ctx.Done()
		log.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", "error", err)
		}
	}()

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Handler returns the underlying http.Handler (useful for testing).
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}
