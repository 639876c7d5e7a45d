package presenter

import (
	"context"
	"fmt"
)

// PresentText shows text until waitKey is pressed, logging
// <screen>_<mode>_<task>_start on display and _offset on the key.
// Polling happens once per frame; there is no timeout.
func (s *Session) PresentText(ctx context.Context, screen, mode, task, text, waitKey string) error {
	label := fmt.Sprintf("%s_%s_%s", screen, mode, task)

	if err := s.display.ShowText(text); err != nil {
		return fmt.Errorf("failed to show %s: %w", label, err)
	}
	if err := s.flip(); err != nil {
		return err
	}
	if err := s.cancelled(ctx); err != nil {
		return err
	}
	s.logOnset(label + "_start")

	for {
		if err := s.display.ShowText(text); err != nil {
			return fmt.Errorf("failed to show %s: %w", label, err)
		}
		if err := s.flip(); err != nil {
			return err
		}
		keys, err := s.poll(ctx)
		if err != nil {
			return err
		}
		if containsKey(keys, waitKey) {
			s.logOffset(label + "_offset")
			return nil
		}
	}
}
