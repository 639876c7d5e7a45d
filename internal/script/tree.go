package script

// Script is the experiment description walked by the presenter.
// It is built once before a run and never mutated afterwards.
type Script struct {
	Version int
	Phases  []Phase
}

// Phase is a top-level unit of the script: a *Screen or a *MovieViewing.
type Phase interface {
	PhaseName() string
	phase()
}

// Task is the smallest presentable unit inside a mode: a *Screen or a *VideoTask.
type Task interface {
	TaskName() string
	task()
}

// Screen is an instruction screen that stays up until WaitKey is pressed.
// It is used both as a top-level phase and as a task inside a mode.
type Screen struct {
	Name    string
	Text    string
	WaitKey string
	Record  bool
}

func (s *Screen) PhaseName() string { return s.Name }
func (s *Screen) TaskName() string  { return s.Name }
func (s *Screen) phase()            {}
func (s *Screen) task()             {}

// Playback selects the video routine used for a VideoTask.
type Playback string

const (
	// PlaybackPassive plays the clip with no response collection.
	PlaybackPassive Playback = "passive"
	// PlaybackPassiveReplay plays passively and rewinds the catalog cursor
	// so that the next video task in the same mode shows the same clip.
	PlaybackPassiveReplay Playback = "passive_replay"
	// PlaybackSegment plays the clip while collecting boundary marks.
	PlaybackSegment Playback = "segment"
)

// Valid reports whether p is a known playback routine.
func (p Playback) Valid() bool {
	switch p {
	case PlaybackPassive, PlaybackPassiveReplay, PlaybackSegment:
		return true
	}
	return false
}

// VideoTask presents the current clip from the catalog.
type VideoTask struct {
	Name     string
	Marker   string
	Playback Playback
	Record   bool
}

func (v *VideoTask) TaskName() string { return v.Name }
func (v *VideoTask) task()            {}

// ModeTasks is the ordered task list for one mode.
type ModeTasks struct {
	Mode  Mode
	Tasks []Task
}

// MovieViewing is the phase that consumes the segmentation order,
// one clip per entry.
type MovieViewing struct {
	Name  string
	Modes []ModeTasks
}

func (m *MovieViewing) PhaseName() string { return m.Name }
func (m *MovieViewing) phase()            {}

// Tasks returns the task list for mode, or nil if the mode is not defined.
func (m *MovieViewing) Tasks(mode Mode) []Task {
	for i := range m.Modes {
		if m.Modes[i].Mode == mode {
			return m.Modes[i].Tasks
		}
	}
	return nil
}
