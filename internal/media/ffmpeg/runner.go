package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"vidtools/internal/logging"
)

const stderrTailBytes = 4096

// ExecFunc starts binary with args and waits for it, streaming stdout and
// stderr into the given writers. Tests substitute a fake.
type ExecFunc func(ctx context.Context, binary string, args []string, stdout, stderr io.Writer) error

// Command describes one ffmpeg invocation.
type Command struct {
	// Label names the invocation in logs ("standardize", "concat").
	Label string
	// Args are the ffmpeg arguments after the global flags.
	Args []string
	// DurationSeconds of the primary input; enables percentages.
	DurationSeconds float64
	Progress        ProgressFunc
}

// Error reports a failed ffmpeg run with the tail of its stderr.
type Error struct {
	Label  string
	Err    error
	Stderr string
}

func (e *Error) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("ffmpeg %s: %v", e.Label, e.Err)
	}
	return fmt.Sprintf("ffmpeg %s: %v: %s", e.Label, e.Err, e.Stderr)
}

func (e *Error) Unwrap() error { return e.Err }

// Runner executes ffmpeg with at most maxConcurrent invocations in flight.
type Runner struct {
	binary string
	sem    *semaphore.Weighted
	exec   ExecFunc
	logger *slog.Logger
}

// NewRunner builds a Runner. maxConcurrent below 1 is treated as 1.
func NewRunner(binary string, maxConcurrent int, logger *slog.Logger) *Runner {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		binary: binary,
		sem:    semaphore.NewWeighted(int64(maxConcurrent)),
		exec:   execCommand,
		logger: logger,
	}
}

// WithExec swaps the process launcher (for testing).
func (r *Runner) WithExec(fn ExecFunc) *Runner {
	if fn != nil {
		r.exec = fn
	}
	return r
}

// Binary returns the ffmpeg binary path.
func (r *Runner) Binary() string {
	return r.binary
}

// Run executes cmd, blocking until a concurrency slot is free.
func (r *Runner) Run(ctx context.Context, cmd Command) error {
	label := strings.TrimSpace(cmd.Label)
	if label == "" {
		label = "run"
	}
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return &Error{Label: label, Err: fmt.Errorf("waiting for encode slot: %w", err)}
	}
	defer r.sem.Release(1)

	args := BuildArgs(cmd.Args)
	logger := logging.WithContext(ctx, r.logger)
	logger.Debug("ffmpeg starting",
		logging.String("label", label),
		logging.String("command", CommandLine(r.binary, args)),
	)

	started := time.Now()
	stderr := &tailBuffer{limit: stderrTailBytes}
	stdout := newProgressParser(cmd.DurationSeconds, cmd.Progress)
	if err := r.exec(ctx, r.binary, args, stdout, stderr); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return &Error{Label: label, Err: err, Stderr: stderr.String()}
	}

	logger.Debug("ffmpeg finished",
		logging.String("label", label),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// BuildArgs prefixes args with the flags every invocation carries.
func BuildArgs(args []string) []string {
	out := make([]string, 0, len(args)+6)
	out = append(out, "-hide_banner", "-y", "-progress", "pipe:1", "-nostats")
	return append(out, args...)
}

// CommandLine renders binary and args for logs, quoting arguments with spaces.
func CommandLine(binary string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, binary)
	for _, arg := range args {
		if arg == "" || strings.ContainsAny(arg, " \t'\"") {
			arg = fmt.Sprintf("%q", arg)
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

func execCommand(ctx context.Context, binary string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}
