// Package http exposes the simulation API: trigger scenario runs and read
// stored projections. Callers are identified by the X-User-ID header; all
// reads are scoped to that user.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"horizon/internal/services"
)

type Server struct {
	httpServer *http.Server
	service    *services.SimulationService
}

func NewServer(addr string, service *services.SimulationService) *Server {
	s := &Server{service: service}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/healthz", handleHealth)
	mux.HandleFunc("POST /api/scenarios/{id}/run", s.handleRunScenario)
	mux.HandleFunc("GET /api/scenarios/{id}/projections", s.handleProjections)
	mux.HandleFunc("GET /api/scenarios/{id}/networth", s.handleNetWorth)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		// Synchronous runs can take a while on long horizons.
		WriteTimeout: 2 * time.Minute,
	}
	return s
}

// Handler exposes the route table for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	slog.Info("HTTP server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
