package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"legalis-hq/themis/pkg/config"
	"legalis-hq/themis/pkg/quota"
	"legalis-hq/themis/pkg/quota/archive"
)

// Server is the HTTP admin server for the quota governors.
type Server struct {
	config       *config.ServerConfig
	manager      *quota.Manager
	archive      *archive.Archive
	logger       *slog.Logger
	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.Mutex
	isRunning    bool
}

// NewServer creates an admin server over the given manager. The archive may
// be nil; the history endpoint then returns 404.
func NewServer(cfg *config.ServerConfig, manager *quota.Manager, arch *archive.Archive) *Server {
	return &Server{
		config:       cfg,
		manager:      manager,
		archive:      arch,
		logger:       slog.Default().With("component", "server"),
		shutdownChan: make(chan struct{}),
	}
}

// Start starts the HTTP server and blocks until shutdown, triggered by
// context cancellation, SIGINT/SIGTERM, or Shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddress,
		Handler:      s.Routes(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting admin server", "address", s.config.ListenAddress)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server, waiting up to the configured
// shutdown timeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("admin server stopped")
	})

	return shutdownErr
}

// Routes builds the HTTP handler with the full middleware chain.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/quota", s.handleSnapshot)
	mux.HandleFunc("GET /v1/quota/rate", s.handleRateStats)
	mux.HandleFunc("GET /v1/quota/spend", s.handleSpendBreakdown)
	mux.HandleFunc("GET /v1/quota/history", s.handleHistory)
	mux.HandleFunc("POST /v1/admin/rate/reset", s.handleRateReset)
	mux.HandleFunc("POST /v1/admin/rate/provider-rejection", s.handleProviderRejection)
	mux.HandleFunc("POST /v1/admin/spend/reset-daily", s.handleSpendResetDaily)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	var handler http.Handler = mux
	handler = loggingMiddleware(s.logger)(handler)
	handler = requestIDMiddleware(handler)
	handler = recoveryMiddleware(s.logger)(handler)

	return handler
}
