package events

import (
	"context"
	"sync"
	"time"
)

// State is a job lifecycle state.
type State string

// Job states in the order a successful job passes through them. Probing is
// skipped by operations that never inspect their input.
const (
	StateReceived     State = "received"
	StateProbing      State = "probing"
	StateTransforming State = "transforming"
	StateCleanup      State = "cleanup"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Terminal reports whether no further events follow s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Event is one sequenced job update.
type Event struct {
	Sequence   uint64    `json:"seq"`
	Timestamp  time.Time `json:"time"`
	JobID      string    `json:"jobId"`
	Operation  string    `json:"operation,omitempty"`
	State      State     `json:"state"`
	Stage      string    `json:"stage,omitempty"`
	Percent    float64   `json:"percent"`
	Message    string    `json:"message,omitempty"`
	OutputFile string    `json:"outputFile,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Sink receives published events (for persistence).
type Sink interface {
	Append(Event)
}

// Hub stores recent events for all jobs.
type Hub struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	buffer   []Event
	nextSeq  uint64
	sinks    []Sink
}

// NewHub constructs a bounded hub. Old events are dropped first.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 2048
	}
	h := &Hub{capacity: capacity}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// AddSink wires a sink that receives every published event.
func (h *Hub) AddSink(sink Sink) {
	if h == nil || sink == nil {
		return
	}
	h.mu.Lock()
	h.sinks = append(h.sinks, sink)
	h.mu.Unlock()
}

// Publish sequences evt, stores it and wakes waiters. A nil hub drops it.
func (h *Hub) Publish(evt Event) Event {
	if h == nil {
		return evt
	}
	h.mu.Lock()
	h.nextSeq++
	evt.Sequence = h.nextSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if len(h.buffer) == h.capacity {
		copy(h.buffer, h.buffer[1:])
		h.buffer = h.buffer[:h.capacity-1]
	}
	h.buffer = append(h.buffer, evt)
	sinks := append([]Sink(nil), h.sinks...)
	h.cond.Broadcast()
	h.mu.Unlock()

	for _, sink := range sinks {
		sink.Append(evt)
	}
	return evt
}

// Fetch returns up to limit events for jobID with sequence greater than
// since, plus the cursor to pass next time. When wait is true it blocks until
// at least one matching event exists or ctx ends.
func (h *Hub) Fetch(ctx context.Context, jobID string, since uint64, limit int, wait bool) ([]Event, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}

	cancelWait := make(chan struct{})
	if wait && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				h.mu.Lock()
				h.cond.Broadcast()
				h.mu.Unlock()
			case <-cancelWait:
			}
		}()
	}
	defer close(cancelWait)

	h.mu.Lock()
	defer h.mu.Unlock()

	for {
		events, next := h.snapshotLocked(jobID, since, limit)
		if len(events) > 0 || !wait {
			return events, next, ctx.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil, next, err
		}
		h.cond.Wait()
	}
}

// Last returns the most recent buffered event for jobID.
func (h *Hub) Last(jobID string) (Event, bool) {
	if h == nil {
		return Event{}, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.buffer) - 1; i >= 0; i-- {
		if h.buffer[i].JobID == jobID {
			return h.buffer[i], true
		}
	}
	return Event{}, false
}

func (h *Hub) snapshotLocked(jobID string, since uint64, limit int) ([]Event, uint64) {
	var out []Event
	cursor := since
	for _, evt := range h.buffer {
		if evt.Sequence <= since {
			continue
		}
		cursor = evt.Sequence
		if jobID != "" && evt.JobID != jobID {
			continue
		}
		out = append(out, evt)
		if len(out) == limit {
			break
		}
	}
	return out, cursor
}
