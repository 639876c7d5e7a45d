package api

import (
	"sync"

	"github.com/AaronLay10/DynamicSeg/internal/events"
)

// Status is the monitor's view of the running session, rebuilt from the
// event stream so the presentation loop is never read from another goroutine.
type Status struct {
	Session      string `json:"session"`
	Participant  string `json:"participant"`
	State        string `json:"state"`
	Phase        string `json:"phase,omitempty"`
	Rows         int    `json:"rows"`
	Boundaries   int    `json:"boundaries"`
	LoadFailures int    `json:"load_failures"`
	LastLabel    string `json:"last_label,omitempty"`
	StartedAt    string `json:"started_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

// Tracker folds events into a Status.
type Tracker struct {
	mu     sync.RWMutex
	status Status
}

// NewTracker returns a tracker for the given session.
func NewTracker(session, participant string) *Tracker {
	return &Tracker{status: Status{Session: session, Participant: participant, State: "not_started"}}
}

// Run consumes sub until it is closed.
func (t *Tracker) Run(sub events.Subscriber) {
	for e := range sub {
		t.Observe(e)
	}
}

// Observe applies one event.
func (t *Tracker) Observe(e events.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := &t.status
	s.UpdatedAt = e.Timestamp
	switch e.Name {
	case "session.started":
		s.State = "running"
		s.StartedAt = e.Timestamp
	case "session.finished":
		s.State = "finished"
	case "session.aborted":
		s.State = "aborted"
	case "phase.started":
		if name, ok := e.Fields["phase"].(string); ok {
			s.Phase = name
		}
	case "stimulus.onset", "stimulus.offset":
		s.Rows++
		if label, ok := e.Fields["label"].(string); ok {
			s.LastLabel = label
		}
	case "response.boundary":
		s.Rows++
		s.Boundaries++
	case "clip.load_failed":
		s.LoadFailures++
	}
}

// Snapshot returns the current status.
func (t *Tracker) Snapshot() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}
