package display

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/AaronLay10/DynamicSeg/internal/presenter"
)

// Loader decodes clips with ffmpeg, scaled to a fixed box.
type Loader struct {
	FFmpeg  string
	FFprobe string
	Width   int
	Height  int
}

// NewLoader returns a loader producing width x height RGBA frames.
func NewLoader(width, height int) *Loader {
	return &Loader{FFmpeg: "ffmpeg", FFprobe: "ffprobe", Width: width, Height: height}
}

// Load probes path and returns a paused movie positioned at 0.
func (l *Loader) Load(path string) (presenter.Movie, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open clip: %w", err)
	}

	out, err := exec.Command(l.FFprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	duration, err := parseDuration(out)
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	return &Movie{
		ffmpeg:   l.FFmpeg,
		path:     path,
		duration: duration,
		width:    l.Width,
		height:   l.Height,
	}, nil
}

func parseDuration(out []byte) (float64, error) {
	s := strings.TrimSpace(string(out))
	if s == "" || s == "N/A" {
		return 0, errors.New("clip has no duration")
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid duration %v", d)
	}
	return d, nil
}

// Movie plays a clip through an ffmpeg subprocess that writes raw RGBA
// frames at native rate. A reader goroutine keeps the newest frame; the
// display uploads it on each ShowMovie.
type Movie struct {
	ffmpeg   string
	path     string
	duration float64
	width    int
	height   int

	mu       sync.Mutex
	cmd      *exec.Cmd
	frame    []byte
	frameSeq uint64
	position float64
	started  time.Time
	playing  bool
	readErr  error
	done     chan struct{}
}

func (m *Movie) Duration() float64 { return m.duration }

// Size returns the frame dimensions.
func (m *Movie) Size() (int, int) { return m.width, m.height }

// Seek sets the position the next Play starts from.
func (m *Movie) Seek(seconds float64) error {
	if seconds < 0 || seconds > m.duration {
		return fmt.Errorf("seek %v out of range [0, %v]", seconds, m.duration)
	}
	if err := m.stop(); err != nil {
		return err
	}
	m.mu.Lock()
	m.position = seconds
	// The old frame belongs to another position. frameSeq keeps counting so
	// the next decoded frame is always seen as new.
	m.frame = nil
	m.mu.Unlock()
	return nil
}

// Play starts decoding from the current position.
func (m *Movie) Play() error {
	m.mu.Lock()
	if m.playing {
		m.mu.Unlock()
		return nil
	}
	args := ffmpegArgs(m.path, m.position, m.width, m.height)
	m.mu.Unlock()

	cmd := exec.Command(m.ffmpeg, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	done := make(chan struct{})
	m.mu.Lock()
	m.cmd = cmd
	m.playing = true
	m.started = time.Now()
	m.readErr = nil
	m.done = done
	m.mu.Unlock()

	go m.readFrames(stdout, done)
	return nil
}

func ffmpegArgs(path string, start float64, width, height int) []string {
	return []string{
		"-v", "error",
		"-re",
		"-ss", strconv.FormatFloat(start, 'f', 3, 64),
		"-i", path,
		"-an",
		"-vf", fmt.Sprintf("scale=%d:%d", width, height),
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-",
	}
}

func (m *Movie) readFrames(r io.Reader, done chan struct{}) {
	defer close(done)

	size := m.width * m.height * 4
	buf := make([]byte, size)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				m.mu.Lock()
				m.readErr = err
				m.mu.Unlock()
			}
			return
		}
		m.mu.Lock()
		if m.frame == nil {
			m.frame = make([]byte, size)
		}
		copy(m.frame, buf)
		m.frameSeq++
		m.mu.Unlock()
	}
}

// WithFrame calls fn with the newest frame if it is newer than seen and
// returns its sequence number. It returns 0 while no frame is available,
// e.g. right after a seek. pix must not be retained after fn returns.
func (m *Movie) WithFrame(seen uint64, fn func(pix []byte)) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frame == nil {
		return 0
	}
	if m.frameSeq == seen {
		return seen
	}
	fn(m.frame)
	return m.frameSeq
}

// Pause stops decoding and remembers the position.
func (m *Movie) Pause() error {
	return m.stop()
}

func (m *Movie) stop() error {
	m.mu.Lock()
	if !m.playing {
		m.mu.Unlock()
		return nil
	}
	cmd, done := m.cmd, m.done
	m.position += time.Since(m.started).Seconds()
	if m.position > m.duration {
		m.position = m.duration
	}
	m.playing = false
	m.cmd = nil
	m.mu.Unlock()

	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	<-done
	// The exit status is always "killed" here; only read errors matter.
	_ = cmd.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return fmt.Errorf("ffmpeg decode %s: %w", m.path, m.readErr)
	}
	return nil
}

// Close stops playback and drops the frame buffer.
func (m *Movie) Close() error {
	err := m.stop()
	m.mu.Lock()
	m.frame = nil
	m.mu.Unlock()
	return err
}
