package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// ServerConfig holds configuration for the HTTP server
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultServerConfig mirrors the config package defaults.
// WriteTimeout stays zero so SSE and WebSocket streams are not cut off.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:            8080,
		ReadTimeout:     15 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Engine is the game runtime served behind the HTTP API.
// Start re-arms room, tournament and reminder timers and runs the lives
// poller until ctx ends; StopTimers halts every pending game timer.
type Engine interface {
	Start(ctx context.Context) error
	StopTimers()
}

// Server hosts the API and the game engine's lifecycle
type Server struct {
	server *http.Server
	engine Engine
	logger *slog.Logger
	config ServerConfig

	runCtx context.Context
	cancel context.CancelFunc
}

// NewServer creates a new API server for the given engine
func NewServer(handler http.Handler, engine Engine, config ServerConfig, logger *slog.Logger) *Server {
	runCtx, cancel := context.WithCancel(context.Background())

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
			Handler:      handler,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
		},
		engine: engine,
		logger: logger.With(slog.String("component", "server")),
		config: config,
		runCtx: runCtx,
		cancel: cancel,
	}
}

// Start brings the engine up and then serves requests until Shutdown.
// Games are never accepted before their timers have been restored.
func (s *Server) Start() error {
	if err := s.engine.Start(s.runCtx); err != nil {
		s.cancel()
		return fmt.Errorf("start game engine: %w", err)
	}

	s.logger.Info("starting HTTP server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown drains in-flight requests, then stops the poller and game timers.
// Timers are stopped even when draining times out.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	err := s.server.Shutdown(shutdownCtx)

	s.cancel()
	s.engine.StopTimers()
	s.logger.Info("game timers stopped")

	if err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Addr returns the server's listen address
func (s *Server) Addr() string {
	return s.server.Addr
}
