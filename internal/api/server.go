// Package api serves the session monitor: health, status, event history,
// Prometheus metrics, a live WebSocket event feed and an operator abort.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/AaronLay10/DynamicSeg/internal/events"
)

// Options configures a Server.
type Options struct {
	Port        int
	Credentials Credentials
	TLS         TLSFiles
	Tracker     *Tracker
	// Abort is called by POST /session/abort. Nil disables the endpoint.
	Abort func()
}

// Server is the monitor HTTP server.
type Server struct {
	opts    Options
	tracker *Tracker
	started time.Time
	http    *http.Server

	abortOnce sync.Once
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Hostname  string `json:"hostname"`
	Timestamp string `json:"ts"`
}

type AbortResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// New builds a server. A nil tracker gets an empty one.
func New(opts Options) *Server {
	tracker := opts.Tracker
	if tracker == nil {
		tracker = NewTracker("", "")
	}
	s := &Server{opts: opts, tracker: tracker, started: time.Now()}
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	auth := s.opts.Credentials
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/metrics", s.metricsHandler)
	mux.HandleFunc("/status", auth.requireAuth(s.statusHandler))
	mux.HandleFunc("/events", auth.requireAuth(eventsHandler))
	mux.HandleFunc("/ws", auth.requireAuth(s.wsEventsHandler))
	mux.HandleFunc("/session/abort", auth.requireAuth(s.abortHandler))
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   "dynamicseg",
		Hostname:  host,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Snapshot())
}

func eventsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, events.Snapshot())
}

func (s *Server) abortHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, AbortResponse{Error: "method not allowed"})
		return
	}
	if s.opts.Abort == nil {
		writeJSON(w, http.StatusNotFound, AbortResponse{Error: "no session to abort"})
		return
	}

	s.abortOnce.Do(func() {
		events.Emit("warn", "control.received", "abort requested from monitor", map[string]interface{}{
			"remote": r.RemoteAddr,
		})
		s.opts.Abort()
	})
	writeJSON(w, http.StatusOK, AbortResponse{OK: true})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ListenAndServe blocks until the server stops. It serves TLS when
// certificate files are configured.
func (s *Server) ListenAndServe() error {
	tlsCfg, err := s.opts.TLS.Load()
	if err != nil {
		return err
	}

	if tlsCfg != nil {
		s.http.TLSConfig = tlsCfg
		log.Printf("monitor listening on %s (TLS)", s.http.Addr)
		err = s.http.ListenAndServeTLS("", "")
	} else {
		log.Printf("monitor listening on %s", s.http.Addr)
		err = s.http.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Start runs the server in a goroutine. Errors are logged; the session
// does not depend on the monitor.
func (s *Server) Start() {
	go func() {
		if err := s.ListenAndServe(); err != nil {
			log.Printf("monitor server error: %v", err)
		}
	}()
}

// Shutdown stops accepting connections and waits for handlers to return.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
