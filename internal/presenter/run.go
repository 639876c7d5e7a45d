package presenter

import (
	"context"
	"errors"
	"fmt"

	"github.com/AaronLay10/DynamicSeg/internal/events"
	"github.com/AaronLay10/DynamicSeg/internal/script"
)

// Run walks every phase in order. It returns nil after the last phase,
// ErrAborted if the abort key was pressed, or a backend error.
// On normal completion the display is closed and the log flushed.
func (s *Session) Run(ctx context.Context) error {
	if s.state != StateNotStarted {
		return fmt.Errorf("session already %s", s.state)
	}

	s.clock.Reset()
	s.state = StateRunning
	events.Emit("info", "session.started", "", map[string]interface{}{
		"phases": len(s.script.Phases),
		"order":  s.order.String(),
		"clips":  s.catalog.Len(),
	})

	for i, phase := range s.script.Phases {
		s.phase = i
		if err := s.cancelled(ctx); err != nil {
			return s.stop(err)
		}
		events.Emit("info", "phase.started", "", map[string]interface{}{"phase": phase.PhaseName(), "index": i})

		var err error
		switch p := phase.(type) {
		case *script.Screen:
			err = s.PresentText(ctx, p.Name, "NA", "NA", p.Text, p.WaitKey)
		case *script.MovieViewing:
			err = s.runMovieViewing(ctx, p)
		default:
			err = fmt.Errorf("unsupported phase type %T", phase)
		}

		if err != nil {
			return s.stop(err)
		}
		events.Emit("info", "phase.completed", "", map[string]interface{}{"phase": phase.PhaseName(), "index": i})
	}

	if err := s.display.Close(); err != nil {
		events.Emit("error", "system.error", "failed to close display", map[string]interface{}{"error": err.Error()})
	}
	flushErr := s.log.Flush()
	s.state = StateFinished
	events.Emit("info", "session.finished", "", map[string]interface{}{"rows": s.log.Len() - 1})
	return flushErr
}

// stop ends the run after err. The final flush only rewrites rows that were
// already appended, so nothing later than the abort reaches storage.
func (s *Session) stop(err error) error {
	if !errors.Is(err, ErrAborted) {
		s.state = StateFailed
		events.Emit("error", "system.error", "session failed", map[string]interface{}{"error": err.Error()})
	}
	_ = s.log.Flush()
	return err
}

// runMovieViewing consumes the whole order, one clip per entry.
func (s *Session) runMovieViewing(ctx context.Context, p *script.MovieViewing) error {
	for i, pair := range s.order {
		if err := s.cancelled(ctx); err != nil {
			return err
		}
		mode := script.DecodeMode(pair)

		path, err := s.catalog.Current()
		if err != nil {
			events.Emit("error", "clip.load_failed", "no clip for order entry", map[string]interface{}{
				"entry": i,
				"error": err.Error(),
			})
			continue
		}
		events.Emit("info", "clip.loading", path, map[string]interface{}{"entry": i, "mode": string(mode)})

		movie, err := s.loader.Load(path)
		if err != nil {
			events.Emit("error", "clip.load_failed", "Failed to load movie", map[string]interface{}{
				"entry": i,
				"path":  path,
				"error": err.Error(),
			})
			s.catalog.Advance()
			continue
		}

		err = s.runEntry(ctx, p.Name, mode, p.Tasks(mode), movie, path)
		if cerr := movie.Close(); cerr != nil && err == nil {
			events.Emit("warn", "system.error", "failed to release movie", map[string]interface{}{"path": path, "error": cerr.Error()})
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// runEntry presents one mode's tasks for a single clip. The cursor advances
// after every video task; the replay task rewinds it first so the pair of
// viewings nets a single advance.
func (s *Session) runEntry(ctx context.Context, screen string, mode script.Mode, tasks []script.Task, movie Movie, path string) error {
	if len(tasks) == 0 {
		return fmt.Errorf("no tasks defined for mode %s", mode)
	}

	for _, task := range tasks {
		switch t := task.(type) {
		case *script.Screen:
			if err := s.PresentText(ctx, screen, string(mode), t.Name, t.Text, t.WaitKey); err != nil {
				return err
			}
		case *script.VideoTask:
			if err := s.showFixation(ctx); err != nil {
				return err
			}

			var err error
			switch t.Playback {
			case script.PlaybackPassive:
				err = s.PresentVideo(ctx, screen, string(mode), t.Name, movie, path)
			case script.PlaybackPassiveReplay:
				err = s.PresentVideo(ctx, screen, string(mode), t.Name, movie, path)
				if err == nil {
					s.catalog.Rewind()
				}
			case script.PlaybackSegment:
				err = s.PlayVideoWithBoundaryDetection(ctx, screen, string(mode), t.Name, movie, path)
			default:
				err = fmt.Errorf("unknown playback %q for task %s", t.Playback, t.Name)
			}
			if err != nil {
				return err
			}
			s.catalog.Advance()
		default:
			return fmt.Errorf("unsupported task type %T", task)
		}
	}
	return nil
}
