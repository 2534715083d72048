// Package server runs the HTTP server and tears down its dependencies.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"syscall"
	"time"

	"github.com/ahrie-ai/backend/internal/apperr"
	"github.com/ahrie-ai/backend/internal/logger"
)

// ShutdownFunc releases one dependency.
type ShutdownFunc func(ctx context.Context) error

type hook struct {
	name string
	fn   ShutdownFunc
}

// Server represents the HTTP server
type Server struct {
	http  *http.Server
	done  chan error
	mu    sync.Mutex
	hooks []hook
}

// New creates a server for handler on addr.
func New(addr string, handler http.Handler) *Server {
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		done: make(chan error, 1),
	}
}

// OnShutdown registers fn to run after HTTP has stopped. Hooks run in registration order.
func (s *Server) OnShutdown(name string, fn ShutdownFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook{name: name, fn: fn})
}

// Start binds the listen address and serves in the background. A taken
// address is reported as apperr.ErrPortInUse.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return apperr.Wrap(err, apperr.CodeConflict, apperr.ErrPortInUse.Message)
		}
		return fmt.Errorf("listen on %s: %w", s.http.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener in the background.
func (s *Server) Serve(ln net.Listener) error {
	s.http.Addr = ln.Addr().String()
	logger.L().Info("http server listening", "addr", s.http.Addr)
	go func() {
		err := s.http.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.done <- err
	}()
	return nil
}

// Addr is the bound address once started.
func (s *Server) Addr() string {
	return s.http.Addr
}

// Done delivers the serve loop's exit error, nil after a clean shutdown.
func (s *Server) Done() <-chan error {
	return s.done
}

// Shutdown stops accepting requests, drains in-flight ones and then runs the
// shutdown hooks. Hook failures are logged and joined.
func (s *Server) Shutdown(ctx context.Context) error {
	log := logger.FromContext(ctx)
	var errs []error

	if err := s.http.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http: %w", err))
	}

	s.mu.Lock()
	hooks := append([]hook(nil), s.hooks...)
	s.mu.Unlock()

	for _, h := range hooks {
		if err := h.fn(ctx); err != nil {
			log.Error("shutdown step failed", "step", h.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
			continue
		}
		log.Info("shutdown step complete", "step", h.name)
	}
	return errors.Join(errs...)
}
