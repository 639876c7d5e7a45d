package presenter

import (
	"context"
	"fmt"

	"github.com/AaronLay10/DynamicSeg/internal/catalog"
)

// PresentVideo plays movie for its full duration with no response
// collection. The end-clip key stops playback one frame after it is seen;
// the offset row is logged after that lag frame.
func (s *Session) PresentVideo(ctx context.Context, screen, mode, task string, movie Movie, path string) error {
	duration := movie.Duration()
	start := s.clock.Now()
	if err := startMovie(movie); err != nil {
		return err
	}

	clip := catalog.ClipName(path)
	if err := s.cancelled(ctx); err != nil {
		return err
	}
	s.logOnset(fmt.Sprintf("%s_%s_%s_start_%s", screen, mode, task, clip))

	endVideo := false
	for s.clock.Now()-start < duration {
		if err := s.showMovieFrame(movie); err != nil {
			return err
		}
		keys, err := s.poll(ctx)
		if err != nil {
			return err
		}
		if endVideo {
			break
		}
		if containsKey(keys, s.keys.EndClip) {
			endVideo = true
		}
	}

	s.logOffset(fmt.Sprintf("%s_%s_%s_%s_offset", screen, mode, task, clip))
	return pauseMovie(movie)
}

// PlayVideoWithBoundaryDetection plays movie and logs a boundary row for
// every boundary key press, without interrupting playback. Unlike
// PresentVideo, the end-clip key logs the offset row on the frame it is
// seen; playback still stops one frame later.
func (s *Session) PlayVideoWithBoundaryDetection(ctx context.Context, screen, mode, task string, movie Movie, path string) error {
	duration := movie.Duration()
	start := s.clock.Now()
	if err := startMovie(movie); err != nil {
		return err
	}

	clip := catalog.ClipName(path)
	if err := s.cancelled(ctx); err != nil {
		return err
	}
	s.logOnset(fmt.Sprintf("%s_%s_%s_start_%s", screen, mode, task, clip))
	offsetLabel := fmt.Sprintf("%s_%s_%s_%s_offset", screen, mode, task, clip)

	endVideo := false
	for s.clock.Now()-start < duration {
		if err := s.showMovieFrame(movie); err != nil {
			return err
		}
		keys, err := s.poll(ctx)
		if err != nil {
			return err
		}
		if endVideo {
			break
		}
		for _, key := range keys {
			if key == s.keys.Boundary {
				s.logBoundary(start)
			}
			if key == s.keys.EndClip && !endVideo {
				endVideo = true
				s.logOffset(offsetLabel)
			}
		}
	}

	if !endVideo {
		s.logOffset(offsetLabel)
	}
	return pauseMovie(movie)
}

// showFixation draws the fixation cross for the configured duration.
// Keys other than abort are drained and discarded.
func (s *Session) showFixation(ctx context.Context) error {
	start := s.clock.Now()
	for s.clock.Now()-start < s.fixation {
		if err := s.display.ShowFixation(); err != nil {
			return fmt.Errorf("failed to show fixation: %w", err)
		}
		if err := s.flip(); err != nil {
			return err
		}
		if _, err := s.poll(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) showMovieFrame(movie Movie) error {
	if err := s.display.ShowMovie(movie); err != nil {
		return fmt.Errorf("failed to draw movie frame: %w", err)
	}
	return s.flip()
}

func startMovie(movie Movie) error {
	if err := movie.Seek(0); err != nil {
		return fmt.Errorf("failed to seek movie: %w", err)
	}
	if err := movie.Play(); err != nil {
		return fmt.Errorf("failed to start movie: %w", err)
	}
	return nil
}

func pauseMovie(movie Movie) error {
	if err := movie.Pause(); err != nil {
		return fmt.Errorf("failed to pause movie: %w", err)
	}
	return nil
}
