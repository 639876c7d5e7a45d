package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// ExperimentConfig is the on-disk experiment configuration (config.yaml).
// Every field is optional; accessors supply the defaults.
type ExperimentConfig struct {
	Version    int `yaml:"version"`
	Experiment struct {
		// SegmentationOrder is either a literal string "[(0,0),(1,0)]"
		// or a YAML list of pairs; it is parsed by the script package.
		SegmentationOrder yaml.Node `yaml:"segmentation_order"`
		StimuliDir        string    `yaml:"stimuli_dir"`
		OutputDir         string    `yaml:"output_dir"`
		FixationSeconds   *float64  `yaml:"fixation_seconds"`
		ScriptFile        string    `yaml:"script_file"`
	} `yaml:"experiment"`
	Keys struct {
		Boundary string `yaml:"boundary"`
		EndClip  string `yaml:"end_clip"`
		Abort    string `yaml:"abort"`
	} `yaml:"keys"`
	Display  DisplayConfig `yaml:"display"`
	Postgres struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	MQTT struct {
		Topic string `yaml:"topic"`
	} `yaml:"mqtt"`
	Trigger struct {
		Device string `yaml:"device"`
	} `yaml:"trigger"`
	Monitor struct {
		Port int `yaml:"port"`
	} `yaml:"monitor"`
}

// DisplayConfig describes the presentation window.
type DisplayConfig struct {
	Width       int     `yaml:"width"`
	Height      int     `yaml:"height"`
	Fullscreen  bool    `yaml:"fullscreen"`
	VSync       *bool   `yaml:"vsync"`
	FontFile    string  `yaml:"font_file"`
	FontSize    float64 `yaml:"font_size"`
	WrapChars   int     `yaml:"wrap_chars"`
	Background  string  `yaml:"background"`
	Foreground  string  `yaml:"foreground"`
	Fixation    string  `yaml:"fixation_color"`
	MovieWidth  int     `yaml:"movie_width"`
	MovieHeight int     `yaml:"movie_height"`
	AspectRatio float64 `yaml:"aspect_ratio"`
}

// Default returns a config with no file behind it.
func Default() *ExperimentConfig {
	return &ExperimentConfig{Version: 1}
}

// LoadExperimentConfig reads path. A missing file is not an error: the
// defaults apply.
func LoadExperimentConfig(path string) (*ExperimentConfig, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return ParseExperimentConfig(b)
}

// ParseExperimentConfig decodes and validates a config document.
func ParseExperimentConfig(b []byte) (*ExperimentConfig, error) {
	var cfg ExperimentConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported config.yaml version: %d", cfg.Version)
	}
	if f := cfg.Experiment.FixationSeconds; f != nil && *f < 0 {
		return nil, fmt.Errorf("experiment.fixation_seconds must not be negative: %v", *f)
	}
	if cfg.Display.AspectRatio < 0 {
		return nil, fmt.Errorf("display.aspect_ratio must not be negative: %v", cfg.Display.AspectRatio)
	}

	return &cfg, nil
}

// OrderNode returns the configured segmentation order, or nil if unset.
func (c *ExperimentConfig) OrderNode() *yaml.Node {
	if c.Experiment.SegmentationOrder.Kind == 0 {
		return nil
	}
	return &c.Experiment.SegmentationOrder
}

// StimuliDir returns the clip directory, defaulting to "stimuli".
func (c *ExperimentConfig) StimuliDir() string {
	if c.Experiment.StimuliDir == "" {
		return "stimuli"
	}
	return c.Experiment.StimuliDir
}

// OutputDir returns the root for per-participant folders, defaulting to "output".
func (c *ExperimentConfig) OutputDir() string {
	if c.Experiment.OutputDir == "" {
		return "output"
	}
	return c.Experiment.OutputDir
}

// FixationSeconds returns the fixation duration, defaulting to 2.0.
func (c *ExperimentConfig) FixationSeconds() float64 {
	if c.Experiment.FixationSeconds == nil {
		return 2.0
	}
	return *c.Experiment.FixationSeconds
}

// ScriptFile returns the external script path, or "" for the built-in script.
func (c *ExperimentConfig) ScriptFile() string {
	return c.Experiment.ScriptFile
}

// BoundaryKey returns the boundary-mark key, defaulting to "space".
func (c *ExperimentConfig) BoundaryKey() string {
	return orDefault(c.Keys.Boundary, "space")
}

// EndClipKey returns the early-termination key, defaulting to "n".
func (c *ExperimentConfig) EndClipKey() string {
	return orDefault(c.Keys.EndClip, "n")
}

// AbortKey returns the session abort key, defaulting to "escape".
func (c *ExperimentConfig) AbortKey() string {
	return orDefault(c.Keys.Abort, "escape")
}

// MonitorPort returns the monitor port. Zero disables the monitor.
func (c *ExperimentConfig) MonitorPort() int {
	return c.Monitor.Port
}

// MQTTTopic returns the marker topic prefix, defaulting to "dynamicseg/markers".
func (c *ExperimentConfig) MQTTTopic() string {
	return orDefault(c.MQTT.Topic, "dynamicseg/markers")
}

// WindowSize returns the window size, defaulting to 1920x1080.
func (d DisplayConfig) WindowSize() (int, int) {
	w, h := d.Width, d.Height
	if w <= 0 {
		w = 1920
	}
	if h <= 0 {
		h = 1080
	}
	return w, h
}

// MovieBox returns the largest box with the configured aspect ratio that
// fits within movie_width x movie_height (default 3:2 within 1200x1080).
func (d DisplayConfig) MovieBox() (int, int) {
	maxW, maxH := d.MovieWidth, d.MovieHeight
	if maxW <= 0 {
		maxW = 1200
	}
	if maxH <= 0 {
		maxH = 1080
	}
	ratio := d.AspectRatio
	if ratio == 0 {
		ratio = 3.0 / 2.0
	}

	w := maxW
	h := int(float64(w) / ratio)
	if h > maxH {
		h = maxH
		w = int(float64(h) * ratio)
	}
	return w, h
}

// VSyncEnabled reports whether Flip should wait for the vertical refresh.
func (d DisplayConfig) VSyncEnabled() bool {
	return d.VSync == nil || *d.VSync
}

// TextFontSize returns the instruction font size, defaulting to 50.
func (d DisplayConfig) TextFontSize() float64 {
	if d.FontSize <= 0 {
		return 50
	}
	return d.FontSize
}

// WrapWidth returns the characters per instruction line, defaulting to 40
// (about 1080 px at the default font size).
func (d DisplayConfig) WrapWidth() int {
	if d.WrapChars <= 0 {
		return 40
	}
	return d.WrapChars
}

// Colors returns the background, text and fixation colors as "R,G,B,A".
func (d DisplayConfig) Colors() (bg, text, fixation string) {
	return orDefault(d.Background, "128,128,128,255"),
		orDefault(d.Foreground, "255,255,255,255"),
		orDefault(d.Fixation, "0,0,0,255")
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
