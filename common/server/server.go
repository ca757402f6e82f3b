package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lyzr/diagflow/common/logger"
)

// Drainer reports how many workflow executions are still in flight. When a
// Server is given one, a shutdown signal waits for it to reach zero (up to
// the drain deadline) before the HTTP listener is stopped, so a DAG run
// doesn't get cut off mid-level by a routine deploy.
type Drainer interface {
	ActiveExecutions() int
}

// Server wraps HTTP server with graceful shutdown
type Server struct {
	httpServer      *http.Server
	log             *logger.Logger
	name            string
	drainer         Drainer
	shutdownTimeout time.Duration
}

// New creates a new server
func New(name string, port int, handler http.Handler, log *logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log:             log,
		name:            name,
		shutdownTimeout: 30 * time.Second,
	}
}

// WithDrainer attaches an engine whose in-flight execution count gates
// shutdown: Start waits for ActiveExecutions() to reach zero before closing
// the listener, rather than severing requests that are mid-DAG-run.
func (s *Server) WithDrainer(d Drainer) *Server {
	s.drainer = d
	return s
}

// Start starts the server with graceful shutdown
func (s *Server) Start() error {
	// Channel to listen for errors
	serverErrors := make(chan error, 1)

	// Start HTTP server
	go func() {
		s.log.Info(fmt.Sprintf("%s starting", s.name), "addr", s.httpServer.Addr)
		serverErrors <- s.httpServer.ListenAndServe()
	}()

	// Channel to listen for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until error or shutdown signal
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		s.log.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		s.drain(ctx)

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.log.Error("graceful shutdown failed", "error", err)
			if err := s.httpServer.Close(); err != nil {
				return fmt.Errorf("could not stop server: %w", err)
			}
		}

		s.log.Info("shutdown complete")
	}

	return nil
}

// drain waits for the attached Drainer's in-flight execution count to reach
// zero, logging progress, and returns early if ctx expires first — a stuck
// execution must not block shutdown forever.
func (s *Server) drain(ctx context.Context) {
	if s.drainer == nil {
		return
	}
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		active := s.drainer.ActiveExecutions()
		if active == 0 {
			return
		}
		s.log.Info("waiting for in-flight executions to finish", "active", active)
		select {
		case <-ctx.Done():
			s.log.Warn("drain deadline reached with executions still in flight", "active", active)
			return
		case <-ticker.C:
		}
	}
}

// HealthHandler returns a simple health check handler
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}
}