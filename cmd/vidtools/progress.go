package main

import (
	"fmt"
	"io"
	"sync"

	"vidtools/internal/events"
)

// progressPrinter renders job events as a single updating line on a
// terminal and as one line per stage change otherwise.
type progressPrinter struct {
	w   io.Writer
	tty bool

	mu        sync.Mutex
	lastStage string
	lastPct   int
	open      bool
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w, tty: isTerminal(w), lastPct: -1}
}

// Append implements events.Sink.
func (p *progressPrinter) Append(evt events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case evt.State == events.StateTransforming:
		pct := int(evt.Percent)
		if evt.Stage == p.lastStage && pct == p.lastPct {
			return
		}
		if p.tty {
			fmt.Fprintf(p.w, "\r%-20s %3d%%", evt.Stage, pct)
			p.open = true
		} else if evt.Stage != p.lastStage || pct == 100 {
			fmt.Fprintf(p.w, "%s %d%%\n", evt.Stage, pct)
		}
		p.lastStage, p.lastPct = evt.Stage, pct
	case evt.State.Terminal():
		p.finishLine()
		if evt.State == events.StateFailed {
			fmt.Fprintf(p.w, "failed: %s\n", evt.Message)
		}
	default:
		p.finishLine()
		if evt.Message != "" {
			fmt.Fprintln(p.w, evt.Message)
		}
	}
}

func (p *progressPrinter) finishLine() {
	if p.open {
		fmt.Fprintln(p.w)
		p.open = false
	}
}
