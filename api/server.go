package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/northwest-community/marketplace-backend/pkg/config"
	"github.com/northwest-community/marketplace-backend/pkg/logger"
)

const shutdownGrace = 15 * time.Second

// Server wraps http.Server with the timeouts and shutdown behavior cmd/api
// expects.
type Server struct {
	httpServer *http.Server
	logg       *logger.Logger
}

func NewServer(cfg *config.Config, handler http.Handler, logg *logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              net.JoinHostPort("", cfg.App.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		logg: logg,
	}
}

// Start blocks until the listener fails or Shutdown completes.
func (s *Server) Start(ctx context.Context) error {
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "addr", s.httpServer.Addr), "server.start")
	}
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the grace window.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownGrace)
	defer cancel()

	if s.logg != nil {
		s.logg.Info(ctx, "server.shutdown")
	}
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
