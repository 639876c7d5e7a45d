package presenter

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AaronLay10/DynamicSeg/internal/eventlog"
	"github.com/AaronLay10/DynamicSeg/internal/script"
)

func TestRunDefaultOrder(t *testing.T) {
	h := newHarness(t, script.DefaultOrder())

	if err := h.session.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if h.session.State() != StateFinished {
		t.Errorf("expected finished, got %s", h.session.State())
	}
	rows := h.log.Rows()
	if len(rows) != 28 {
		t.Fatalf("expected 28 rows, got %d: %v", len(rows), h.labels())
	}
	if h.log.Len() != 29 {
		t.Errorf("expected table length 29, got %d", h.log.Len())
	}
	if h.session.Cursor() != 4 {
		t.Errorf("expected cursor 4 after four entries, got %d", h.session.Cursor())
	}
	if len(h.store.last) != 28 {
		t.Errorf("expected store to hold 28 rows, got %d", len(h.store.last))
	}
	if h.env.closed != 1 {
		t.Errorf("expected display closed once, got %d", h.env.closed)
	}

	wantLoaded := []string{"clip01.mp4", "clip02.mp4", "clip03.mp4", "clip04.mp4"}
	if len(h.loader.loaded) != len(wantLoaded) {
		t.Fatalf("expected %d loads, got %v", len(wantLoaded), h.loader.loaded)
	}
	for i, want := range wantLoaded {
		if h.loader.loaded[i] != filepath.Join("stimuli", want) {
			t.Errorf("load %d: expected %s, got %s", i, want, h.loader.loaded[i])
		}
	}
	for _, m := range h.loader.movies {
		if !m.closed {
			t.Errorf("movie %s was not released", m.path)
		}
	}

	labels := h.labels()
	if labels[0] != "VideoSegStart_NA_NA_start" || labels[len(labels)-1] != "VideoSegEnd_NA_NA_offset" {
		t.Errorf("unexpected first/last rows: %s, %s", labels[0], labels[len(labels)-1])
	}
	for _, want := range []string{
		"MovieViewing_Passive_InitialInstructions_start",
		"MovieViewing_Passive_Movie_start_clip01",
		"MovieViewing_Retroactive_MovieView1_start_clip02",
		"MovieViewing_Retroactive_MovieView2_clip02_offset",
		"MovieViewing_Proactive_MovieView_start_clip03",
		"MovieViewing_Retroactive_MovieView1_clip04_offset",
	} {
		h.row(t, want)
	}
}

func TestRunTaskClockIsMonotonic(t *testing.T) {
	h := newHarness(t, script.DefaultOrder())
	h.env.pressDuringPlay(3, 100, "space")
	h.env.pressDuringPlay(5, 50, "space", "n")

	if err := h.session.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	rows := h.log.Rows()
	for i := 1; i < len(rows); i++ {
		if rows[i].TaskClock < rows[i-1].TaskClock {
			t.Fatalf("row %d (%s) went back in time: %v < %v", i, rows[i].Label, rows[i].TaskClock, rows[i-1].TaskClock)
		}
		if rows[i].Epoch < rows[i-1].Epoch {
			t.Fatalf("row %d epoch went back in time", i)
		}
	}
	if got := len(h.rowsOfKind(eventlog.KindResponse)); got != 2 {
		t.Errorf("expected 2 boundary rows, got %d", got)
	}
}

func TestRunSinglePassiveEntry(t *testing.T) {
	h := newHarness(t, script.Order{{Primary: 0, Secondary: 0}})

	if err := h.session.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	onset := h.row(t, "MovieViewing_Passive_Movie_start_clip01")
	offset := h.row(t, "MovieViewing_Passive_Movie_clip01_offset")
	if got := offset.Onset - onset.Onset; got != 5.0 {
		t.Errorf("expected a 5.0s clip, got %v", got)
	}

	// Fixation precedes the onset by exactly its duration.
	instr := h.row(t, "MovieViewing_Passive_InitialInstructions_offset")
	if got := onset.Onset - instr.Onset; got != DefaultFixationSeconds {
		t.Errorf("expected %vs fixation, got %v", DefaultFixationSeconds, got)
	}
	if len(h.log.Rows()) != 8 {
		t.Errorf("expected 8 rows, got %v", h.labels())
	}
	if h.session.Cursor() != 1 {
		t.Errorf("expected cursor 1, got %d", h.session.Cursor())
	}
}

func TestRunRetroactiveReplaysSameClip(t *testing.T) {
	h := newHarness(t, script.Order{{Primary: 1, Secondary: 0}})

	if err := h.session.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if h.env.plays != 2 {
		t.Errorf("expected the clip to play twice, got %d", h.env.plays)
	}
	if len(h.loader.loaded) != 1 {
		t.Errorf("expected one load, got %v", h.loader.loaded)
	}
	if h.session.Cursor() != 1 {
		t.Errorf("expected net cursor advance of 1, got %d", h.session.Cursor())
	}
	h.row(t, "MovieViewing_Retroactive_MovieView1_start_clip01")
	h.row(t, "MovieViewing_Retroactive_MovieView2_start_clip01")
}

func TestRunProactiveBoundaries(t *testing.T) {
	h := newHarness(t, script.Order{{Primary: 1, Secondary: 1}})
	h.env.pressDuringPlay(0, 64, "space")
	h.env.pressDuringPlay(0, 128, "space")
	h.env.fixationKeys = []string{"space"}

	if err := h.session.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	start := h.row(t, "MovieViewing_Proactive_MovieView_start_clip01")
	marks := h.rowsOfKind(eventlog.KindResponse)
	if len(marks) != 2 {
		t.Fatalf("expected 2 boundary rows, got %d", len(marks))
	}
	for i, want := range []float64{1.0, 2.0} {
		if marks[i].Onset != want {
			t.Errorf("mark %d: expected onset %v, got %v", i, want, marks[i].Onset)
		}
		if marks[i].TaskClock != start.TaskClock+want {
			t.Errorf("mark %d: expected task clock %v, got %v", i, start.TaskClock+want, marks[i].TaskClock)
		}
	}
}

func TestRunAbort(t *testing.T) {
	// Flip numbering for a single-entry order: start screen 1-2,
	// instructions 3-4, fixation 5-132, clip 133-452, end screen 453-454.
	tests := []struct {
		name     string
		order    script.Order
		abortAt  int
		wantRows int
	}{
		{"start screen", script.Order{{Primary: 0, Secondary: 0}}, 2, 1},
		{"instructions", script.Order{{Primary: 0, Secondary: 0}}, 4, 3},
		{"fixation", script.Order{{Primary: 0, Secondary: 0}}, 10, 4},
		{"passive clip", script.Order{{Primary: 0, Secondary: 0}}, 140, 5},
		{"segmenting clip", script.Order{{Primary: 1, Secondary: 1}}, 140, 5},
		{"end screen", script.Order{{Primary: 0, Secondary: 0}}, 454, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.order)
			h.env.abortAt = tt.abortAt

			err := h.session.Run(context.Background())
			if !errors.Is(err, ErrAborted) {
				t.Fatalf("expected ErrAborted, got %v", err)
			}
			if h.session.State() != StateAborted {
				t.Errorf("expected aborted, got %s", h.session.State())
			}
			if got := len(h.log.Rows()); got != tt.wantRows {
				t.Errorf("expected %d rows, got %d: %v", tt.wantRows, got, h.labels())
			}
			if len(h.store.last) != tt.wantRows {
				t.Errorf("expected %d flushed rows, got %d", tt.wantRows, len(h.store.last))
			}
			if h.env.closed != 0 {
				t.Error("display should not be closed by an aborted run")
			}
		})
	}
}

func TestRunCancelledContext(t *testing.T) {
	h := newHarness(t, script.DefaultOrder())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.session.Run(ctx)
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	if got := len(h.log.Rows()); got != 0 {
		t.Errorf("expected no rows, got %v", h.labels())
	}
	if h.session.State() != StateAborted {
		t.Errorf("expected aborted, got %s", h.session.State())
	}
}

func TestRunCancelBetweenStimuliWritesNoLaterRow(t *testing.T) {
	tests := []struct {
		name      string
		order     script.Order
		cancelOn  string
		wantLast  string
		wantRows  int
		wantLoads int
	}{
		{"before next screen", script.Order{{Primary: 0, Secondary: 0}},
			"VideoSegStart_NA_NA_offset", "VideoSegStart_NA_NA_offset", 2, 0},
		{"before clip onset", script.Order{{Primary: 0, Secondary: 0}},
			"MovieViewing_Passive_InitialInstructions_offset", "MovieViewing_Passive_InitialInstructions_offset", 4, 1},
		{"before replay onset", script.Order{{Primary: 1, Secondary: 0}},
			"MovieViewing_Retroactive_MovieView1_clip01_offset", "MovieViewing_Retroactive_MovieView1_clip01_offset", 6, 1},
		{"before next order entry", script.Order{{Primary: 0, Secondary: 0}, {Primary: 0, Secondary: 0}},
			"MovieViewing_Passive_Movie_clip01_offset", "MovieViewing_Passive_Movie_clip01_offset", 6, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.order)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			h.store.onSave = func(rows []eventlog.Row) {
				if rows[len(rows)-1].Label == tt.cancelOn {
					cancel()
				}
			}

			err := h.session.Run(ctx)
			if !errors.Is(err, ErrAborted) {
				t.Fatalf("expected ErrAborted, got %v", err)
			}
			labels := h.labels()
			if len(labels) != tt.wantRows {
				t.Fatalf("expected %d rows, got %v", tt.wantRows, labels)
			}
			if labels[len(labels)-1] != tt.wantLast {
				t.Errorf("expected last row %s, got %s", tt.wantLast, labels[len(labels)-1])
			}
			if len(h.loader.loaded) != tt.wantLoads {
				t.Errorf("expected %d loads, got %v", tt.wantLoads, h.loader.loaded)
			}
		})
	}
}

func TestRunSkipsClipThatFailsToLoad(t *testing.T) {
	h := newHarness(t, script.Order{{Primary: 0, Secondary: 0}, {Primary: 0, Secondary: 0}}, "a.mp4", "b.mp4", "c.mp4")
	h.loader.fail[filepath.Join("stimuli", "a.mp4")] = true

	if err := h.session.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(h.loader.loaded) != 1 || !strings.HasSuffix(h.loader.loaded[0], "b.mp4") {
		t.Errorf("expected only b.mp4 to load, got %v", h.loader.loaded)
	}
	if h.session.Cursor() != 2 {
		t.Errorf("expected cursor 2, got %d", h.session.Cursor())
	}
	if got := len(h.log.Rows()); got != 8 {
		t.Errorf("expected 8 rows, got %v", h.labels())
	}
	h.row(t, "MovieViewing_Passive_Movie_start_b")
}

func TestRunCatalogExhausted(t *testing.T) {
	h := newHarness(t, script.Order{{Primary: 0, Secondary: 0}, {Primary: 0, Secondary: 0}}, "only.mp4")

	if err := h.session.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if h.session.State() != StateFinished {
		t.Errorf("expected finished, got %s", h.session.State())
	}
	if h.session.Cursor() != 1 {
		t.Errorf("expected cursor 1, got %d", h.session.Cursor())
	}
	if got := len(h.log.Rows()); got != 8 {
		t.Errorf("expected 8 rows, got %v", h.labels())
	}
}

func TestRunTwice(t *testing.T) {
	h := newHarness(t, script.Order{{Primary: 0, Secondary: 0}})
	if err := h.session.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := h.session.Run(context.Background()); err == nil {
		t.Error("expected second Run to fail")
	}
}

func TestNewSessionValidation(t *testing.T) {
	if _, err := NewSession(Config{}); err == nil {
		t.Error("expected error for empty config")
	}

	h := newHarness(t, nil)
	if got := h.session.order.String(); got != script.DefaultOrder().String() {
		t.Errorf("expected default order, got %s", got)
	}
	if h.session.PhaseIndex() != -1 {
		t.Errorf("expected phase -1 before Run, got %d", h.session.PhaseIndex())
	}
}
