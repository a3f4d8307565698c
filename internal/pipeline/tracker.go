package pipeline

import (
	"log/slog"
	"os"
	"slices"
	"sync"

	"vidtools/internal/logging"
)

type trackState int

const (
	trackPending trackState = iota
	trackKept
	trackRemoved
)

// Tracker records the files a job created so they can be removed exactly
// once. Paths that never came into existence are never registered.
type Tracker struct {
	mu     sync.Mutex
	order  []string
	state  map[string]trackState
	remove func(string) error
	logger *slog.Logger
}

// NewTracker returns a tracker that deletes with remove (os.Remove when nil).
func NewTracker(remove func(string) error, logger *slog.Logger) *Tracker {
	if remove == nil {
		remove = os.Remove
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Tracker{state: make(map[string]trackState), remove: remove, logger: logger}
}

// Track registers path if it exists. It reports whether path is tracked.
func (t *Tracker) Track(path string) bool {
	if path == "" {
		return false
	}
	if _, err := os.Stat(path); err != nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.state[path]; !ok {
		t.state[path] = trackPending
		t.order = append(t.order, path)
	}
	return true
}

// Keep exempts path from cleanup.
func (t *Tracker) Keep(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.state[path]; ok && st == trackPending {
		t.state[path] = trackKept
	}
}

// Release removes a tracked path now instead of at cleanup.
func (t *Tracker) Release(path string) {
	t.mu.Lock()
	st, ok := t.state[path]
	if !ok || st != trackPending {
		t.mu.Unlock()
		return
	}
	t.state[path] = trackRemoved
	t.mu.Unlock()
	t.removeOne(path)
}

// Cleanup removes every pending path, newest first, and returns those whose
// removal succeeded. Failures are logged and not retried.
func (t *Tracker) Cleanup() []string {
	t.mu.Lock()
	var pending []string
	for _, path := range slices.Backward(t.order) {
		if t.state[path] == trackPending {
			t.state[path] = trackRemoved
			pending = append(pending, path)
		}
	}
	t.mu.Unlock()

	removed := make([]string, 0, len(pending))
	for _, path := range pending {
		if t.removeOne(path) {
			removed = append(removed, path)
		}
	}
	return removed
}

// Tracked returns every registered path in registration order.
func (t *Tracker) Tracked() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.order...)
}

func (t *Tracker) removeOne(path string) bool {
	if err := t.remove(path); err != nil && !os.IsNotExist(err) {
		logging.WarnWithContext(t.logger, "failed to remove job file", "cleanup_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check working directory permissions"),
			logging.String(logging.FieldImpact, "file left for the stale sweeper"),
		)
		return false
	}
	return true
}
