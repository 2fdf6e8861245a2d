// Package server wraps http.Server with the serve-mode lifecycle: listen,
// wait for SIGINT/SIGTERM, drain in-flight requests, then stop the other
// moving parts (watcher, livereload hub, cache) in reverse registration
// order.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"log/slog"

	"github.com/gqldocs/gqldocs/internal/config"
)

// ShutdownFunc stops one component gracefully.
type ShutdownFunc func(ctx context.Context) error

type (
	hook struct {
		name string
		fn   ShutdownFunc
	}

	// Server runs the docs site until told to stop.
	Server struct {
		httpServer      *http.Server
		shutdownTimeout time.Duration
		logger          *slog.Logger

		mu    sync.Mutex
		ln    net.Listener
		hooks []hook

		quit     chan struct{}
		quitOnce sync.Once
	}
)

// New builds a server from the config's server block.  Port 0 picks a free
// port, which Addr reports once Run is listening.
func New(h http.Handler, cfg config.Server, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      h,
			ReadTimeout:  time.Duration(cfg.ReadTimeout),
			WriteTimeout: time.Duration(cfg.WriteTimeout),
		},
		shutdownTimeout: time.Duration(cfg.ShutdownTimeout),
		logger:          logger,
		quit:            make(chan struct{}),
	}
}

// OnShutdown registers a component to stop after the HTTP server has
// drained.  Components stop in reverse registration order, so register
// foundations first and they outlive what is built on them.
func (s *Server) OnShutdown(name string, fn ShutdownFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook{name: name, fn: fn})
}

// Run listens and blocks until a shutdown signal, a Shutdown call, or a
// serve error.  On the first two it drains and runs the shutdown hooks.
func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("%w listening on %s", err, s.httpServer.Addr)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("%w serving", err)
	case sig := <-stop:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-s.quit:
		s.logger.Info("shutdown requested")
	}
	return s.gracefulShutdown()
}

// Shutdown makes Run return through the same graceful path a signal would.
func (s *Server) Shutdown() {
	s.quitOnce.Do(func() { close(s.quit) })
}

// Addr reports where the server is (or will be) listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.httpServer.Addr
}

// gracefulShutdown drains HTTP first, then stops components newest-first.
// One failing hook does not stop the rest; the first error is returned.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.logger.Info("draining HTTP connections", "timeout", s.shutdownTimeout)
	s.httpServer.SetKeepAlivesEnabled(false)
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP drain failed", "error", err)
	}

	s.mu.Lock()
	hooks := s.hooks
	s.mu.Unlock()

	var firstErr error
	for i := len(hooks) - 1; i >= 0; i-- {
		s.logger.Info("stopping component", "name", hooks[i].name)
		if err := hooks[i].fn(ctx); err != nil {
			s.logger.Error("component stop failed", "name", hooks[i].name, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("%w stopping %s", err, hooks[i].name)
			}
		}
	}

	if firstErr == nil {
		s.logger.Info("server stopped")
	}
	return firstErr
}
