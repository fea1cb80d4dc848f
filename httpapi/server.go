// Package httpapi exposes the run history and a clean trigger over HTTP,
// plus the monitoring WebSocket endpoint.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"tabclean/monitoring"
	"tabclean/pipeline"
	"tabclean/store"
)

// Server serves the observability API.
type Server struct {
	server *http.Server
	log    *zap.Logger
}

// NewServer builds the server. store and hub may be nil; the matching
// endpoints then answer 503.
func NewServer(port int, runner *pipeline.Runner, st *store.Store, hub *monitoring.Hub, log *zap.Logger) *Server {
	h := &handlers{runner: runner, store: st, hub: hub, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /api/runs", h.handleRuns)
	mux.HandleFunc("GET /api/runs/latest", h.handleLatestRun)
	mux.HandleFunc("GET /api/runs/{id}/columns", h.handleRunColumns)
	mux.HandleFunc("POST /api/clean", h.handleClean)
	mux.HandleFunc("GET /ws", h.handleWS)

	handler := chain(recoveryMiddleware(log), loggerMiddleware(log))(mux)

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      handler,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		log: log,
	}
}

// Start blocks serving requests until Stop is called.
func (s *Server) Start() error {
	s.log.Info("http server listening", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
