package ffmpeg

import (
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunReportsProgress(t *testing.T) {
	r := NewRunner("", 2, nil).WithExec(func(_ context.Context, binary string, args []string, stdout, _ io.Writer) error {
		if binary != "ffmpeg" {
			t.Fatalf("unexpected binary %q", binary)
		}
		if !slices.Equal(args[:5], []string{"-hide_banner", "-y", "-progress", "pipe:1", "-nostats"}) {
			t.Fatalf("missing global flags: %v", args)
		}
		// Split mid-line to exercise buffering.
		io.WriteString(stdout, "frame=10\nout_time_ms=5000")
		io.WriteString(stdout, "000\nspeed=2.5x\nprogress=continue\n")
		io.WriteString(stdout, "out_time_us=10000000\nprogress=end\n")
		return nil
	})

	var updates []Progress
	err := r.Run(context.Background(), Command{
		Label:           "compress",
		Args:            []string{"-i", "in.mp4", "out.mp4"},
		DurationSeconds: 10,
		Progress:        func(p Progress) { updates = append(updates, p) },
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %+v", updates)
	}
	if updates[0].Percent != 50 || updates[0].Speed != 2.5 || updates[0].Done {
		t.Fatalf("unexpected first update %+v", updates[0])
	}
	if updates[1].Percent != 100 || !updates[1].Done || updates[1].OutTime != 10*time.Second {
		t.Fatalf("unexpected final update %+v", updates[1])
	}
}

func TestRunUnknownDurationReportsNegativePercent(t *testing.T) {
	r := NewRunner("ffmpeg", 1, nil).WithExec(func(_ context.Context, _ string, _ []string, stdout, _ io.Writer) error {
		io.WriteString(stdout, "out_time_ms=1000000\nprogress=end\n")
		return nil
	})
	var last Progress
	if err := r.Run(context.Background(), Command{Progress: func(p Progress) { last = p }}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if last.Percent != -1 || !last.Done {
		t.Fatalf("unexpected progress %+v", last)
	}
}

func TestRunErrorCarriesStderrTail(t *testing.T) {
	r := NewRunner("ffmpeg", 1, nil).WithExec(func(_ context.Context, _ string, _ []string, _, stderr io.Writer) error {
		io.WriteString(stderr, strings.Repeat("x", stderrTailBytes))
		io.WriteString(stderr, "\nInvalid data found when processing input\n")
		return errors.New("exit status 1")
	})
	err := r.Run(context.Background(), Command{Label: "standardize"})
	var ffErr *Error
	if !errors.As(err, &ffErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if ffErr.Label != "standardize" {
		t.Fatalf("unexpected label %q", ffErr.Label)
	}
	if !strings.HasSuffix(ffErr.Stderr, "Invalid data found when processing input") {
		t.Fatalf("unexpected stderr tail %q", ffErr.Stderr[len(ffErr.Stderr)-60:])
	}
	if len(ffErr.Stderr) > stderrTailBytes {
		t.Fatalf("stderr tail not bounded: %d", len(ffErr.Stderr))
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	r := NewRunner("ffmpeg", 2, nil).WithExec(func(context.Context, string, []string, io.Writer, io.Writer) error {
		n := inFlight.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	})

	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Run(context.Background(), Command{})
		}()
	}
	wg.Wait()
	if peak.Load() > 2 {
		t.Fatalf("expected at most 2 concurrent runs, saw %d", peak.Load())
	}
}

func TestRunCancelledWhileWaiting(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	r := NewRunner("ffmpeg", 1, nil).WithExec(func(context.Context, string, []string, io.Writer, io.Writer) error {
		close(started)
		<-release
		return nil
	})
	go func() { _ = r.Run(context.Background(), Command{}) }()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := r.Run(ctx, Command{Label: "concat"})
	close(release)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCommandLineQuotes(t *testing.T) {
	got := CommandLine("ffmpeg", []string{"-i", "/tmp/a b.mp4", "-vf", "scale=1:2"})
	want := `ffmpeg -i "/tmp/a b.mp4" -vf scale=1:2`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
