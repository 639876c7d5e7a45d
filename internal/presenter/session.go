// Package presenter runs the experiment: it walks the script, presents
// instruction screens and clips frame by frame, polls the keyboard once per
// frame and records every onset, offset and boundary mark in the event log.
package presenter

import (
	"context"
	"errors"
	"fmt"

	"github.com/AaronLay10/DynamicSeg/internal/catalog"
	"github.com/AaronLay10/DynamicSeg/internal/eventlog"
	"github.com/AaronLay10/DynamicSeg/internal/events"
	"github.com/AaronLay10/DynamicSeg/internal/script"
)

// ErrAborted is returned once the abort key has been seen. It is terminal.
var ErrAborted = errors.New("session aborted")

// State is the run controller's lifecycle state.
type State string

const (
	StateNotStarted State = "not_started"
	StateRunning    State = "running"
	StateFinished   State = "finished"
	StateAborted    State = "aborted"
	StateFailed     State = "failed"
)

// BoundaryLabel is the section name of a boundary-mark row.
const BoundaryLabel = "spacebar_pressed"

// DefaultFixationSeconds is how long the fixation cross precedes each clip.
const DefaultFixationSeconds = 2.0

// Config wires a Session to its script, order, catalog, log and backends.
type Config struct {
	Script   *script.Script
	Order    script.Order
	Catalog  *catalog.Catalog
	Log      *eventlog.Log
	Display  Display
	Input    Input
	Loader   MovieLoader
	Clock    Clock
	Wall     func() float64
	Keys     Keys
	Fixation float64
}

// Session owns all mutable run state: clock, log and clip cursor.
// It is driven from a single goroutine.
type Session struct {
	script   *script.Script
	order    script.Order
	catalog  *catalog.Catalog
	log      *eventlog.Log
	display  Display
	input    Input
	loader   MovieLoader
	clock    Clock
	wall     func() float64
	keys     Keys
	fixation float64

	state State
	phase int
}

// NewSession validates cfg and returns a session in StateNotStarted.
func NewSession(cfg Config) (*Session, error) {
	switch {
	case cfg.Script == nil:
		return nil, fmt.Errorf("script is required")
	case cfg.Catalog == nil:
		return nil, fmt.Errorf("catalog is required")
	case cfg.Log == nil:
		return nil, fmt.Errorf("event log is required")
	case cfg.Display == nil:
		return nil, fmt.Errorf("display is required")
	case cfg.Input == nil:
		return nil, fmt.Errorf("input is required")
	case cfg.Loader == nil:
		return nil, fmt.Errorf("movie loader is required")
	}

	s := &Session{
		script:   cfg.Script,
		order:    cfg.Order,
		catalog:  cfg.Catalog,
		log:      cfg.Log,
		display:  cfg.Display,
		input:    cfg.Input,
		loader:   cfg.Loader,
		clock:    cfg.Clock,
		wall:     cfg.Wall,
		keys:     cfg.Keys,
		fixation: cfg.Fixation,
		state:    StateNotStarted,
		phase:    -1,
	}
	if len(s.order) == 0 {
		s.order = script.DefaultOrder()
	}
	if s.clock == nil {
		s.clock = NewTaskClock()
	}
	if s.wall == nil {
		s.wall = UnixSeconds
	}
	if s.keys == (Keys{}) {
		s.keys = DefaultKeys()
	}
	if s.fixation < 0 {
		s.fixation = 0
	}
	return s, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// PhaseIndex returns the index of the running phase, or -1 before the run.
func (s *Session) PhaseIndex() int {
	return s.phase
}

// Cursor returns the catalog cursor.
func (s *Session) Cursor() int {
	return s.catalog.Cursor()
}

func (s *Session) logOnset(label string) {
	now := s.clock.Now()
	s.append(eventlog.Row{Kind: eventlog.KindOnset, Label: label, Onset: now, TaskClock: now, Epoch: s.wall()})
	events.Emit("info", "stimulus.onset", "", map[string]interface{}{"label": label, "onset": now})
}

func (s *Session) logOffset(label string) {
	now := s.clock.Now()
	s.append(eventlog.Row{Kind: eventlog.KindOffset, Label: label, Onset: now, TaskClock: now, Epoch: s.wall()})
	events.Emit("info", "stimulus.offset", "", map[string]interface{}{"label": label, "onset": now})
}

func (s *Session) logBoundary(clipStart float64) {
	now := s.clock.Now()
	elapsed := now - clipStart
	s.append(eventlog.Row{Kind: eventlog.KindResponse, Label: BoundaryLabel, Onset: elapsed, TaskClock: now, Epoch: s.wall()})
	events.Emit("info", "response.boundary", fmt.Sprintf("Spacebar pressed at %.2f seconds", elapsed), map[string]interface{}{
		"elapsed":    elapsed,
		"task_clock": now,
	})
}

func (s *Session) append(row eventlog.Row) {
	s.log.Append(row)
}

// abort moves to the absorbing Aborted state. No row is written.
func (s *Session) abort(reason string) error {
	s.state = StateAborted
	events.Emit("warn", "session.aborted", reason, map[string]interface{}{
		"phase":      s.phase,
		"task_clock": s.clock.Now(),
	})
	return ErrAborted
}

// cancelled aborts the session once ctx is done. It runs before every onset
// row so a remote abort never produces a row after the cancel is seen.
func (s *Session) cancelled(ctx context.Context) error {
	if ctx.Err() != nil {
		return s.abort("session cancelled")
	}
	return nil
}

// poll returns this frame's keys. The abort key and context cancellation
// end the session before any key is acted on.
func (s *Session) poll(ctx context.Context) ([]string, error) {
	keys := s.input.Keys()
	if containsKey(keys, s.keys.Abort) {
		return nil, s.abort("abort key pressed")
	}
	if err := s.cancelled(ctx); err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *Session) flip() error {
	if err := s.display.Flip(); err != nil {
		return fmt.Errorf("display flip failed: %w", err)
	}
	return nil
}
