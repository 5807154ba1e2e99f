// Package server runs the HTTP listener and coordinates graceful
// shutdown of the process.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// ShutdownFunc releases one component's resources during shutdown.
type ShutdownFunc func(ctx context.Context) error

// hook is a named shutdown step.
type hook struct {
	name string
	fn   ShutdownFunc
}

// Server wraps http.Server with signal handling and ordered teardown.
//
// Shutdown order matters here: in-flight lookups must drain before the
// credential store and the secret source close under them, so the HTTP
// listener always stops first and hooks run afterwards in LIFO order.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger
	hooks           []hook
}

// New creates a Server listening on the given port.
func New(handler http.Handler, port int, readTimeout, writeTimeout, shutdownTimeout time.Duration, logger *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      handler,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
	}
}

// OnShutdown registers a teardown step. Hooks run after the HTTP
// server has drained, in reverse registration order. Register in
// dependency order: a component registered before another is torn
// down after it.
func (s *Server) OnShutdown(name string, fn ShutdownFunc) {
	s.hooks = append(s.hooks, hook{name: name, fn: fn})
}

// Run serves until SIGINT or SIGTERM, then shuts down gracefully.
// It blocks for the lifetime of the process.
func (s *Server) Run() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve: %w", err)
	case sig := <-stop:
		s.logger.Info("shutdown signal received", "signal", sig.String())
		return s.shutdown()
	}
}

// shutdown drains the listener, then runs hooks newest-first. A failed
// hook is logged and does not stop later hooks; the first failure is
// returned so the exit status reflects an unclean stop.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.httpServer.SetKeepAlivesEnabled(false)
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("listener shutdown", "error", err)
	}
	s.logger.Info("listener drained", "timeout", s.shutdownTimeout)

	var firstErr error
	for i := len(s.hooks) - 1; i >= 0; i-- {
		h := s.hooks[i]
		s.logger.Info("stopping component", "name", h.name)
		if err := h.fn(ctx); err != nil {
			s.logger.Error("component shutdown failed", "name", h.name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.logger.Info("component stopped", "name", h.name)
	}

	if firstErr != nil {
		return firstErr
	}
	s.logger.Info("shutdown complete")
	return nil
}
