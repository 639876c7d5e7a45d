package eventlog

import (
	"context"
	"errors"
)

// mirrorQueueSize bounds how far a mirror may lag behind the log.
const mirrorQueueSize = 256

// ErrMirrorQueueFull is reported when a mirror has fallen behind and a row
// was dropped for it. The store still has the row.
var ErrMirrorQueueFull = errors.New("mirror queue full")

// mirrorQueue feeds one mirror from its own goroutine so a slow database or
// network round trip never holds up the presentation loop.
type mirrorQueue struct {
	mirror Mirror
	rows   chan Row
	done   chan struct{}
}

func startMirror(m Mirror, report func(name string, err error)) *mirrorQueue {
	q := &mirrorQueue{
		mirror: m,
		rows:   make(chan Row, mirrorQueueSize),
		done:   make(chan struct{}),
	}
	go func() {
		defer close(q.done)
		for row := range q.rows {
			if err := m.AppendRow(row); err != nil {
				report(m.Name(), err)
			}
		}
	}()
	return q
}

// offer queues row without blocking.
func (q *mirrorQueue) offer(row Row) bool {
	select {
	case q.rows <- row:
		return true
	default:
		return false
	}
}

// Close stops accepting rows for mirrors and waits until every queued row
// has been handed to its mirror, or ctx is done. Later Appends still reach
// the store. Calling Close again only waits.
func (l *Log) Close(ctx context.Context) error {
	l.mu.Lock()
	queues := l.mirrors
	if !l.closed {
		l.closed = true
		for _, q := range queues {
			close(q.rows)
		}
	}
	l.mu.Unlock()

	for _, q := range queues {
		select {
		case <-q.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
