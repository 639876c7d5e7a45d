package script

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type fileScript struct {
	Version int         `yaml:"version"`
	Phases  []filePhase `yaml:"phases"`
}

type filePhase struct {
	Screen       *fileScreen       `yaml:"screen"`
	MovieViewing *fileMovieViewing `yaml:"movie_viewing"`
}

type fileScreen struct {
	Name    string `yaml:"name"`
	Text    string `yaml:"text"`
	WaitKey string `yaml:"wait_key"`
	Record  bool   `yaml:"record"`
}

type fileVideo struct {
	Name     string `yaml:"name"`
	Marker   string `yaml:"marker"`
	Playback string `yaml:"playback"`
	Record   bool   `yaml:"record"`
}

type fileTask struct {
	Screen *fileScreen `yaml:"screen"`
	Video  *fileVideo  `yaml:"video"`
}

type fileMode struct {
	Mode  string     `yaml:"mode"`
	Tasks []fileTask `yaml:"tasks"`
}

type fileMovieViewing struct {
	Name  string     `yaml:"name"`
	Modes []fileMode `yaml:"modes"`
}

// LoadScript loads a script from a YAML file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script file: %w", err)
	}
	return ParseScript(data)
}

// ParseScript decodes and validates a YAML script.
func ParseScript(data []byte) (*Script, error) {
	var fs fileScript
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return nil, fmt.Errorf("failed to parse script YAML: %w", err)
	}

	if fs.Version != 1 {
		return nil, fmt.Errorf("unsupported script version: %d", fs.Version)
	}
	if len(fs.Phases) == 0 {
		return nil, fmt.Errorf("script has no phases")
	}

	s := &Script{Version: fs.Version}
	for i, fp := range fs.Phases {
		switch {
		case fp.Screen != nil && fp.MovieViewing == nil:
			sc, err := fp.Screen.build()
			if err != nil {
				return nil, fmt.Errorf("phase %d: %w", i, err)
			}
			s.Phases = append(s.Phases, sc)
		case fp.MovieViewing != nil && fp.Screen == nil:
			mv, err := fp.MovieViewing.build()
			if err != nil {
				return nil, fmt.Errorf("phase %d: %w", i, err)
			}
			s.Phases = append(s.Phases, mv)
		default:
			return nil, fmt.Errorf("phase %d: exactly one of screen or movie_viewing is required", i)
		}
	}
	return s, nil
}

func (f *fileScreen) build() (*Screen, error) {
	if f.Name == "" {
		return nil, fmt.Errorf("screen name is required")
	}
	key := f.WaitKey
	if key == "" {
		key = "space"
	}
	return &Screen{Name: f.Name, Text: f.Text, WaitKey: key, Record: f.Record}, nil
}

func (f *fileMovieViewing) build() (*MovieViewing, error) {
	if f.Name == "" {
		return nil, fmt.Errorf("movie_viewing name is required")
	}
	mv := &MovieViewing{Name: f.Name}
	seen := make(map[Mode]bool)
	for _, fm := range f.Modes {
		mode, err := ParseMode(fm.Mode)
		if err != nil {
			return nil, err
		}
		if seen[mode] {
			return nil, fmt.Errorf("mode %s defined twice", mode)
		}
		seen[mode] = true

		mt := ModeTasks{Mode: mode}
		for j, ft := range fm.Tasks {
			switch {
			case ft.Screen != nil && ft.Video == nil:
				sc, err := ft.Screen.build()
				if err != nil {
					return nil, fmt.Errorf("%s task %d: %w", mode, j, err)
				}
				mt.Tasks = append(mt.Tasks, sc)
			case ft.Video != nil && ft.Screen == nil:
				pb := Playback(ft.Video.Playback)
				if !pb.Valid() {
					return nil, fmt.Errorf("%s task %d: unknown playback %q", mode, j, ft.Video.Playback)
				}
				if ft.Video.Name == "" {
					return nil, fmt.Errorf("%s task %d: video name is required", mode, j)
				}
				mt.Tasks = append(mt.Tasks, &VideoTask{
					Name:     ft.Video.Name,
					Marker:   ft.Video.Marker,
					Playback: pb,
					Record:   ft.Video.Record,
				})
			default:
				return nil, fmt.Errorf("%s task %d: exactly one of screen or video is required", mode, j)
			}
		}
		if err := checkCursorAdvance(mt); err != nil {
			return nil, err
		}
		mv.Modes = append(mv.Modes, mt)
	}
	for _, m := range []Mode{ModePassive, ModeRetroactive, ModeProactive} {
		if !seen[m] {
			return nil, fmt.Errorf("mode %s is not defined", m)
		}
	}
	return mv, nil
}

// checkCursorAdvance makes sure a mode consumes exactly one clip per order
// entry. A replay rewinds the cursor, so it must be followed by a video task
// that moves past the clip.
func checkCursorAdvance(mt ModeTasks) error {
	videos, replays := 0, 0
	var last *VideoTask
	for _, t := range mt.Tasks {
		if v, ok := t.(*VideoTask); ok {
			videos++
			if v.Playback == PlaybackPassiveReplay {
				replays++
			}
			last = v
		}
	}

	switch {
	case last == nil:
		return fmt.Errorf("mode %s has no video task", mt.Mode)
	case last.Playback == PlaybackPassiveReplay:
		return fmt.Errorf("mode %s: %s is a passive_replay but no later video task plays the clip", mt.Mode, last.Name)
	case videos-replays != 1:
		return fmt.Errorf("mode %s moves to the next clip %d times, want 1", mt.Mode, videos-replays)
	}
	return nil
}
