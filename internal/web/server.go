// Package web provides an HTTP surface for the limiter daemon: a status
// page for humans, a JSON snapshot for the display collaborator, and
// the limit-update endpoint for the configuration collaborator.
package web

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"

	"github.com/ikke-t/mopo/internal/config"
	"github.com/ikke-t/mopo/internal/status"
)

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	store      *config.Store
}

// New creates a Server that reads state from the given tracker and
// applies limit updates through the given store.
func New(addr string, tracker *status.Tracker, store *config.Store) *Server {
	s := &Server{tracker: tracker, store: store}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/config.json", s.handleConfig)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// handleConfig serves the current limits on GET and replaces them on
// POST. A rejected update keeps the prior limits and reports the
// validation error to the caller.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeLimits(w, http.StatusOK, s.store.Limits())

	case http.MethodPost:
		var l LimitsJSON
		if err := json.NewDecoder(r.Body).Decode(&l); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
		if err := s.store.Replace(l.Limits()); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		limits := s.store.Limits()
		s.tracker.SetLimits(limits.Thresholds())
		log.Printf("limits updated: max_speed=%.1fkm/h max_rpm=%.0f", limits.MaxSpeedKmh, limits.MaxRPM)
		writeLimits(w, http.StatusOK, limits)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
