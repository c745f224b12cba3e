package perf

import "time"

// Stopwatch measures elapsed time of a run.
type Stopwatch interface {
	Start()
	// Intermediate returns the elapsed time without stopping.
	Intermediate() time.Duration
	// Stop returns the elapsed time.
	Stop() time.Duration
}

type stopwatch struct {
	start time.Time
}

// NewStopwatch returns a stopwatch on the monotonic clock.
func NewStopwatch() Stopwatch {
	return &stopwatch{}
}

func (w *stopwatch) Start() {
	w.start = time.Now()
}

func (w *stopwatch) Intermediate() time.Duration {
	return time.Since(w.start)
}

func (w *stopwatch) Stop() time.Duration {
	d := time.Since(w.start)
	w.start = time.Time{}
	return d
}
