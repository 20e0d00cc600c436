// Package timer provides wall-clock timing for multi-stage operations.
package timer

import "time"

// Timer tracks total and per-stage elapsed time for an operation.
type Timer interface {
	// Start begins timing. Calling Start again resets both clocks.
	Start()
	// NewStage marks the beginning of a new stage, resetting the stage clock.
	NewStage()
	// GetTiming returns the total elapsed time since Start and the elapsed
	// time of the current stage. Both are zero before Start is called.
	GetTiming() (total, stage time.Duration)
}

type clockTimer struct {
	start      time.Time
	stageStart time.Time
}

// New creates a Timer that has not been started yet.
func New() Timer {
	return &clockTimer{}
}

func (t *clockTimer) Start() {
	now := time.Now()
	t.start = now
	t.stageStart = now
}

func (t *clockTimer) NewStage() {
	t.stageStart = time.Now()
}

func (t *clockTimer) GetTiming() (time.Duration, time.Duration) {
	if t.start.IsZero() {
		return 0, 0
	}

	return time.Since(t.start), time.Since(t.stageStart)
}
