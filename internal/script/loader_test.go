package script

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validScript = `
version: 1
phases:
  - screen:
      name: Start
      text: Ready?
      record: true
  - movie_viewing:
      name: Movies
      modes:
        - mode: passive
          tasks:
            - video: {name: Movie, marker: passive_movie, playback: passive, record: true}
        - mode: Retroactive
          tasks:
            - screen: {name: Watch, text: Watch closely, wait_key: return}
            - video: {name: View1, playback: passive_replay}
            - video: {name: View2, playback: segment}
        - mode: proactive
          tasks:
            - video: {name: View, playback: segment}
  - screen:
      name: End
      text: Thanks
`

func TestLoadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.yaml")
	if err := os.WriteFile(path, []byte(validScript), 0644); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	s, err := LoadScript(path)
	if err != nil {
		t.Fatalf("failed to load script: %v", err)
	}

	if len(s.Phases) != 3 {
		t.Fatalf("expected 3 phases, got %d", len(s.Phases))
	}

	start, ok := s.Phases[0].(*Screen)
	if !ok {
		t.Fatalf("expected first phase to be a screen, got %T", s.Phases[0])
	}
	if start.WaitKey != "space" {
		t.Errorf("expected default wait key 'space', got %q", start.WaitKey)
	}
	if !start.Record {
		t.Error("expected record flag on start screen")
	}

	mv, ok := s.Phases[1].(*MovieViewing)
	if !ok {
		t.Fatalf("expected second phase to be movie viewing, got %T", s.Phases[1])
	}

	retro := mv.Tasks(ModeRetroactive)
	if len(retro) != 3 {
		t.Fatalf("expected 3 retroactive tasks, got %d", len(retro))
	}
	if sc := retro[0].(*Screen); sc.WaitKey != "return" {
		t.Errorf("expected wait key 'return', got %q", sc.WaitKey)
	}
	if v := retro[1].(*VideoTask); v.Playback != PlaybackPassiveReplay {
		t.Errorf("expected passive_replay, got %s", v.Playback)
	}
	if v := retro[2].(*VideoTask); v.Playback != PlaybackSegment {
		t.Errorf("expected segment, got %s", v.Playback)
	}
}

func TestParseScriptErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"bad version", "version: 2\nphases: [{screen: {name: a}}]\n", "unsupported script version"},
		{"no phases", "version: 1\n", "no phases"},
		{"both kinds", "version: 1\nphases:\n  - screen: {name: a}\n    movie_viewing: {name: b}\n", "exactly one"},
		{"unnamed screen", "version: 1\nphases:\n  - screen: {text: hi}\n", "name is required"},
		{"unknown mode", "version: 1\nphases:\n  - movie_viewing:\n      name: m\n      modes:\n        - mode: sideways\n", "unknown mode"},
		{"missing mode", "version: 1\nphases:\n  - movie_viewing:\n      name: m\n      modes:\n        - mode: passive\n          tasks:\n            - video: {name: v, playback: passive}\n", "is not defined"},
		{"replay last", strings.Replace(validScript, "            - video: {name: View2, playback: segment}\n", "", 1), "no later video task"},
		{"no video", strings.Replace(validScript, "            - video: {name: View, playback: segment}\n", "            - screen: {name: Wait}\n", 1), "has no video task"},
		{"two new clips", strings.Replace(validScript, "            - video: {name: View, playback: segment}\n", "            - video: {name: View, playback: segment}\n            - video: {name: Again, playback: segment}\n", 1), "2 times"},
		{"unknown playback", strings.Replace(validScript, "playback: segment}\n        - mode: proactive", "playback: rewind}\n        - mode: proactive", 1), "unknown playback"},
		{"invalid yaml", "version: [1\n", "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScript([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestDefaultScriptShape(t *testing.T) {
	s := Default()
	if len(s.Phases) != 3 {
		t.Fatalf("expected 3 phases, got %d", len(s.Phases))
	}

	mv, ok := s.Phases[1].(*MovieViewing)
	if !ok {
		t.Fatalf("expected movie viewing phase, got %T", s.Phases[1])
	}

	countVideos := func(mode Mode) (n int, playbacks []Playback) {
		for _, task := range mv.Tasks(mode) {
			if v, ok := task.(*VideoTask); ok {
				n++
				playbacks = append(playbacks, v.Playback)
			}
		}
		return n, playbacks
	}

	if n, pb := countVideos(ModePassive); n != 1 || pb[0] != PlaybackPassive {
		t.Errorf("passive: got %d videos %v", n, pb)
	}
	if n, pb := countVideos(ModeRetroactive); n != 2 || pb[0] != PlaybackPassiveReplay || pb[1] != PlaybackSegment {
		t.Errorf("retroactive: got %d videos %v", n, pb)
	}
	if n, pb := countVideos(ModeProactive); n != 1 || pb[0] != PlaybackSegment {
		t.Errorf("proactive: got %d videos %v", n, pb)
	}
}

func TestDefaultScriptAdvancesOneClipPerMode(t *testing.T) {
	mv := Default().Phases[1].(*MovieViewing)
	for _, mode := range []Mode{ModePassive, ModeRetroactive, ModeProactive} {
		if err := checkCursorAdvance(ModeTasks{Mode: mode, Tasks: mv.Tasks(mode)}); err != nil {
			t.Errorf("%s: %v", mode, err)
		}
	}
}
