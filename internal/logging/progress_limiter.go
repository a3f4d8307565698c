package logging

import "math"

// ProgressLimiter thins ffmpeg progress samples before they reach the log.
// A sample passes when the stage changes, when the percentage reaches the
// next step boundary, or once when the stage completes.
type ProgressLimiter struct {
	step  float64
	stage string
	next  float64
	done  bool
}

// NewProgressLimiter returns a limiter that lets through one sample per step
// percentage points. Non-positive steps fall back to 10.
func NewProgressLimiter(step float64) *ProgressLimiter {
	if step <= 0 {
		step = 10
	}
	return &ProgressLimiter{step: step}
}

// Allow reports whether the sample should be logged. A negative percent means
// the duration was unknown and only stage changes pass.
func (l *ProgressLimiter) Allow(stage string, percent float64) bool {
	if l == nil {
		return true
	}
	if stage != l.stage {
		l.stage = stage
		l.done = false
		l.next = 0
		l.mark(percent)
		return true
	}
	if percent < 0 || l.done {
		return false
	}
	if percent < l.next && percent < 100 {
		return false
	}
	l.mark(percent)
	return true
}

func (l *ProgressLimiter) mark(percent float64) {
	switch {
	case percent >= 100:
		l.done = true
	case percent >= 0:
		l.next = (math.Floor(percent/l.step) + 1) * l.step
	}
}
