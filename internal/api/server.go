package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/soundbite/engagement/internal/config"
	"github.com/soundbite/engagement/internal/pkg/logger"
)

// Server represents the API server
type Server struct {
	config config.ServerConfig
	server *http.Server
}

// NewServer creates a new API server serving handler.
func NewServer(cfg config.ServerConfig, handler http.Handler) *Server {
	return &Server{
		config: cfg,
		server: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Start listens until Shutdown is called. It returns nil on a clean
// shutdown.
func (s *Server) Start() error {
	logger.Info("api server listening", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
