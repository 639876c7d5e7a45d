package mqtt

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/AaronLay10/DynamicSeg/internal/eventlog"
	"github.com/AaronLay10/DynamicSeg/internal/events"
)

// markerQueueSize bounds how far publishing may lag behind the frame loop.
const markerQueueSize = 256

// ErrMarkerQueueFull is returned by AppendRow when the publisher has fallen
// behind; the marker is dropped, the CSV still has the row.
var ErrMarkerQueueFull = errors.New("mqtt marker queue full")

// Publisher is the part of Client the marker mirror needs.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Marker is the JSON payload published for each logged row.
type Marker struct {
	Session     string  `json:"session"`
	Seq         int     `json:"seq"`
	Kind        string  `json:"kind"`
	SectionName string  `json:"sectionname"`
	Onset       float64 `json:"onset"`
	TaskClock   float64 `json:"task_clock"`
	UnixEpoch   float64 `json:"unix_epoch_time"`
}

// MarkerMirror publishes every row to <prefix>/<session>. Publishing runs on
// its own goroutine so a slow broker never stalls a frame.
type MarkerMirror struct {
	pub     Publisher
	topic   string
	session string

	mu     sync.Mutex
	seq    int
	queue  chan Marker
	done   chan struct{}
	closed bool
}

// NewMarkerMirror starts the publishing goroutine.
func NewMarkerMirror(pub Publisher, prefix, session string) *MarkerMirror {
	m := &MarkerMirror{
		pub:     pub,
		topic:   prefix + "/" + session,
		session: session,
		queue:   make(chan Marker, markerQueueSize),
		done:    make(chan struct{}),
	}
	go m.run()
	return m
}

// Topic returns the topic markers are published to.
func (m *MarkerMirror) Topic() string {
	return m.topic
}

// Name identifies the mirror in error reports.
func (m *MarkerMirror) Name() string {
	return "mqtt"
}

// AppendRow queues row for publishing without blocking.
func (m *MarkerMirror) AppendRow(row eventlog.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("mqtt marker mirror closed")
	}

	marker := Marker{
		Session:     m.session,
		Seq:         m.seq,
		Kind:        string(row.Kind),
		SectionName: row.Label,
		Onset:       row.Onset,
		TaskClock:   row.TaskClock,
		UnixEpoch:   row.Epoch,
	}
	m.seq++

	select {
	case m.queue <- marker:
		return nil
	default:
		return ErrMarkerQueueFull
	}
}

func (m *MarkerMirror) run() {
	defer close(m.done)

	failed := false
	for marker := range m.queue {
		payload, err := json.Marshal(marker)
		if err != nil {
			continue
		}
		if err := m.pub.Publish(m.topic, payload); err != nil {
			// Report the first failure of a streak only.
			if !failed {
				events.Emit("error", "device.error", "failed to publish marker", map[string]interface{}{
					"topic": m.topic,
					"seq":   marker.Seq,
					"error": err.Error(),
				})
			}
			failed = true
			continue
		}
		failed = false
	}
}

// Close publishes whatever is still queued and stops the goroutine.
func (m *MarkerMirror) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()

	<-m.done
}
