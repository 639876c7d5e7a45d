package api

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/AaronLay10/DynamicSeg/internal/events"
	"github.com/AaronLay10/DynamicSeg/internal/version"
)

// metricsHandler returns Prometheus text-format metrics.
func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	st := s.tracker.Snapshot()
	running := 0
	if st.State == "running" {
		running = 1
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	labels := fmt.Sprintf(`session=%q,instance=%q,version=%q`, st.Session, hostname, version.Version)

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	writeMetric := func(name, mtype, help string, value interface{}) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		fmt.Fprintf(w, "%s{%s} %v\n", name, labels, value)
	}

	writeMetric("dynamicseg_uptime_seconds", "gauge",
		"Seconds since the monitor started", time.Since(s.started).Seconds())
	writeMetric("dynamicseg_session_running", "gauge",
		"Whether a session is running (1) or not (0)", running)
	writeMetric("dynamicseg_log_rows", "gauge",
		"Rows written to the session log", st.Rows)
	writeMetric("dynamicseg_boundary_marks_total", "counter",
		"Boundary key presses recorded", st.Boundaries)
	writeMetric("dynamicseg_clip_load_failures_total", "counter",
		"Clips skipped because they failed to load", st.LoadFailures)
	writeMetric("dynamicseg_events_total", "counter",
		"Events emitted since startup", events.TotalCount())
	writeMetric("dynamicseg_event_subscribers", "gauge",
		"Active event subscribers, including WebSocket clients", events.SubscriberCount())
}
