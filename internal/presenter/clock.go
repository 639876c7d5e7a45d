package presenter

import "time"

// Clock is the task-relative clock. Now returns seconds since the last Reset.
type Clock interface {
	Now() float64
	Reset()
}

// TaskClock is a Clock on the monotonic system clock.
type TaskClock struct {
	start time.Time
}

func NewTaskClock() *TaskClock {
	return &TaskClock{start: time.Now()}
}

func (c *TaskClock) Now() float64 {
	return time.Since(c.start).Seconds()
}

func (c *TaskClock) Reset() {
	c.start = time.Now()
}

// UnixSeconds returns the wall-clock time as fractional epoch seconds.
func UnixSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
