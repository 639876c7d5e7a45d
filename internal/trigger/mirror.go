package trigger

import (
	"time"

	"github.com/AaronLay10/DynamicSeg/internal/eventlog"
)

// Lines assigns box lines to row kinds.
type Lines struct {
	// Stimulus is held high from each onset row to the matching offset row.
	Stimulus string
	// Response is pulsed on every boundary mark.
	Response string
	// Pulse is the width of a response pulse.
	Pulse time.Duration
}

// DefaultLines holds line 1 during stimuli and pulses line 2 for 10 ms on
// boundary marks.
func DefaultLines() Lines {
	return Lines{Stimulus: "1", Response: "2", Pulse: 10 * time.Millisecond}
}

// Mirror turns log rows into TTL levels on a Box.
type Mirror struct {
	box   *Box
	lines Lines
	after func(time.Duration, func())
}

// NewMirror returns a mirror writing to box.
func NewMirror(box *Box, lines Lines) *Mirror {
	return &Mirror{
		box:   box,
		lines: lines,
		after: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// Name identifies the mirror in error reports.
func (m *Mirror) Name() string {
	return "trigger"
}

// AppendRow raises or lowers lines for row. Response pulses end on a timer
// so the frame loop never sleeps.
func (m *Mirror) AppendRow(row eventlog.Row) error {
	switch row.Kind {
	case eventlog.KindOnset:
		return m.box.Set(m.lines.Stimulus)
	case eventlog.KindOffset:
		return m.box.Unset(m.lines.Stimulus)
	case eventlog.KindResponse:
		if err := m.box.Set(m.lines.Response); err != nil {
			return err
		}
		m.after(m.lines.Pulse, func() { _ = m.box.Unset(m.lines.Response) })
	}
	return nil
}
