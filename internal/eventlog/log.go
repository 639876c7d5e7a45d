// Package eventlog keeps the session's append-only table of stimulus and
// response rows and persists it after every mutation.
package eventlog

import (
	"fmt"
	"sync"

	"github.com/AaronLay10/DynamicSeg/internal/events"
)

// Kind classifies a row for mirrors that react to it (e.g. TTL triggers).
type Kind string

const (
	KindOnset    Kind = "onset"
	KindOffset   Kind = "offset"
	KindResponse Kind = "response"
)

// Row is one logged event.
//
// Onset is the value written to the onset column. TaskClock is the task
// clock reading when the row was recorded; the two differ only for
// response rows, whose Onset is relative to the start of the clip.
type Row struct {
	Kind      Kind
	Label     string
	Onset     float64
	TaskClock float64
	Epoch     float64
}

// Store persists the full table. Save overwrites whatever was stored before.
type Store interface {
	Save(rows []Row) error
}

// Mirror receives each row once, after the store has been written. Rows
// are delivered in order from a goroutine owned by the log.
type Mirror interface {
	Name() string
	AppendRow(row Row) error
}

// Log is the append-only event table.
// It is written by the presentation loop only; readers use Rows.
type Log struct {
	mu      sync.RWMutex
	rows    []Row
	store   Store
	mirrors []*mirrorQueue
	dirty   bool
	closed  bool

	mirrorFailed map[string]bool
}

// New creates an empty log backed by store. A nil store keeps rows in memory only.
func New(store Store, mirrors ...Mirror) *Log {
	l := &Log{
		store:        store,
		mirrorFailed: make(map[string]bool),
	}
	for _, m := range mirrors {
		l.mirrors = append(l.mirrors, startMirror(m, l.reportMirrorError))
	}
	return l
}

// AddMirror registers another mirror for rows appended from now on.
func (l *Log) AddMirror(m Mirror) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.mirrors = append(l.mirrors, startMirror(m, l.reportMirrorError))
}

// Append adds row and rewrites the store before returning, then queues the
// row for every mirror. Storage failures are reported and retried on the
// next Append or Flush; the row is never dropped from the store.
func (l *Log) Append(row Row) {
	l.mu.Lock()
	l.rows = append(l.rows, row)
	l.dirty = true
	l.mu.Unlock()

	l.Flush()

	var full []string
	l.mu.RLock()
	if !l.closed {
		for _, q := range l.mirrors {
			if !q.offer(row) {
				full = append(full, q.mirror.Name())
			}
		}
	}
	l.mu.RUnlock()

	for _, name := range full {
		l.reportMirrorError(name, ErrMirrorQueueFull)
	}
}

// Flush rewrites the store if there are unsaved rows.
// It returns the storage error, which has already been reported.
func (l *Log) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.dirty {
		return nil
	}
	if l.store == nil {
		l.dirty = false
		return nil
	}
	if err := l.store.Save(l.rows); err != nil {
		events.Emit("error", "log.flush_failed", "event log flush failed", map[string]interface{}{
			"rows":  len(l.rows),
			"error": err.Error(),
		})
		return fmt.Errorf("failed to flush event log: %w", err)
	}
	l.dirty = false
	return nil
}

// Dirty reports whether rows are waiting for a successful flush.
func (l *Log) Dirty() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.dirty
}

// Len returns the table length including the header row.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.rows) + 1
}

// Rows returns a copy of the logged rows.
func (l *Log) Rows() []Row {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Row(nil), l.rows...)
}

// Log mirror errors once per mirror to avoid spamming the console every frame.
func (l *Log) reportMirrorError(name string, err error) {
	l.mu.Lock()
	already := l.mirrorFailed[name]
	l.mirrorFailed[name] = true
	l.mu.Unlock()

	if already {
		return
	}
	events.Emit("error", "mirror.failed", "event mirror append failed", map[string]interface{}{
		"mirror": name,
		"error":  err.Error(),
	})
}
