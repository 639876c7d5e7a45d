// Package events is the structured console log and live event feed.
// Every event is validated against the registry, kept in a bounded
// history, written as one JSON line and broadcast to subscribers.
package events

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const historySize = 256

var (
	history = newHistory(historySize)
	total   atomic.Int64

	outMu sync.Mutex
	out   io.Writer = os.Stderr
)

type Event struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Name      string                 `json:"event"`
	Message   string                 `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// SetOutput redirects the JSON console lines. A nil writer silences them.
func SetOutput(w io.Writer) {
	outMu.Lock()
	out = w
	outMu.Unlock()
}

func Emit(level, name, msg string, fields map[string]interface{}) ([]byte, error) {
	if err := Validate(name); err != nil {
		return nil, err
	}

	e := Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Name:      name,
		Message:   msg,
		Fields:    fields,
	}

	history.add(e)
	total.Add(1)
	broadcast(e)

	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	outMu.Lock()
	if out != nil {
		// Console output is best effort; a closed stderr must not stop a session.
		_, _ = out.Write(append(b, '\n'))
	}
	outMu.Unlock()

	return b, nil
}

func Snapshot() []Event {
	return history.snapshot()
}

// TotalCount returns the number of events emitted since startup or the last Clear.
func TotalCount() int64 {
	return total.Load()
}

// Clear resets the event history. Used for testing.
func Clear() {
	history.clear()
	total.Store(0)
}

// eventHistory keeps the most recent events, dropping the oldest when full.
type eventHistory struct {
	mu     sync.RWMutex
	limit  int
	events []Event
}

func newHistory(limit int) *eventHistory {
	return &eventHistory{limit: limit, events: make([]Event, 0, limit)}
}

func (h *eventHistory) add(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.events) == h.limit {
		copy(h.events, h.events[1:])
		h.events = h.events[:h.limit-1]
	}
	h.events = append(h.events, e)
}

func (h *eventHistory) snapshot() []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Event{}, h.events...)
}

func (h *eventHistory) clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = h.events[:0]
}
