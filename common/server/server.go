package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/playforge/remoteconfig/common/logger"
)

// DefaultDrainTimeout bounds how long in-flight resolve and admin requests
// may run after a shutdown is requested
const DefaultDrainTimeout = 20 * time.Second

// Server runs the HTTP API and drains it cleanly on a termination signal or
// when the service context is cancelled
type Server struct {
	name         string
	httpServer   *http.Server
	log          *logger.Logger
	drainTimeout time.Duration
}

// New creates a server for the given handler
func New(name string, port int, handler http.Handler, log *logger.Logger) *Server {
	return &Server{
		name: name,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		log:          log,
		drainTimeout: DefaultDrainTimeout,
	}
}

// Start serves until ctx is cancelled or SIGINT/SIGTERM arrives. Cancelling
// ctx also stops the snapshot listener started from the same context, so the
// whole service winds down together.
func (s *Server) Start(ctx context.Context) error {
	errc := make(chan error, 1)

	go func() {
		s.log.Info("http server listening", "service", s.name, "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigc)

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		s.log.Info("service context cancelled, shutting down", "service", s.name)
	case sig := <-sigc:
		s.log.Info("termination signal received", "service", s.name, "signal", sig.String())
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), s.drainTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(drainCtx); err != nil {
		s.log.Warn("request drain incomplete, closing", "service", s.name, "error", err)
		if err := s.httpServer.Close(); err != nil {
			return fmt.Errorf("close http server: %w", err)
		}
		return nil
	}

	s.log.Info("http server stopped", "service", s.name)
	return nil
}
