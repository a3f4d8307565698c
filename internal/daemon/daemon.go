package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"vidtools/internal/config"
	"vidtools/internal/deps"
	"vidtools/internal/events"
	"vidtools/internal/jobstore"
	"vidtools/internal/logging"
	"vidtools/internal/pipeline"
	"vidtools/internal/preflight"
)

// JobRunner executes pipeline requests. *pipeline.Pipeline satisfies it.
type JobRunner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// Daemon coordinates the HTTP API, the sweeper and single-instance locking.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *jobstore.Store
	hub      *events.Hub
	runner   JobRunner
	sweeper  *Sweeper
	api      *apiServer
	version  string
	provider string

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startedAt time.Time
	cancel    context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Version      string
	StartedAt    time.Time
	Provider     string
	LockFilePath string
	JobsDatabase string
	JobCounts    map[events.State]int
	Checks       []preflight.Result
	Dependencies []deps.Status
	LastSweep    *SweepResult
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithVersion sets the version reported by the status endpoint.
func WithVersion(version string) Option {
	return func(d *Daemon) { d.version = version }
}

// WithProviderName records the active transcription provider for status.
func WithProviderName(name string) Option {
	return func(d *Daemon) { d.provider = name }
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *jobstore.Store, hub *events.Hub, runner JobRunner, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil || hub == nil || runner == nil {
		return nil, errors.New("daemon requires config, job store, events hub, and job runner")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		hub:      hub,
		runner:   runner,
		version:  "dev",
		provider: cfg.Transcription.Provider,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.sweeper = NewSweeper(cfg, store, logger)
	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the instance lock, runs an initial sweep, schedules the
// sweeper and starts serving HTTP.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another vidtools instance is already using %s", d.lockPath)
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.sweeper.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start sweeper: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		d.sweeper.Stop()
		cancel()
		_ = d.lock.Unlock()
		return err
	}

	d.cancel = cancel
	d.startedAt = time.Now()
	d.running.Store(true)
	d.logger.Info("vidtools daemon started",
		logging.String("lock", d.lockPath),
		logging.String("bind", d.api.Addr()),
		logging.String("transcription_provider", d.provider),
	)
	return nil
}

// Stop shuts the HTTP server down gracefully and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.api.stop(d.cfg.ShutdownTimeout())
	d.sweeper.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "next start may report a running instance until the file is removed"),
		)
	}
	d.running.Store(false)
	d.logger.Info("vidtools daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the address the API listens on once started.
func (d *Daemon) Addr() string {
	return d.api.Addr()
}

// Handler returns the HTTP handler without starting a listener.
func (d *Daemon) Handler() http.Handler {
	return d.api.handler
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	counts, err := d.store.CountByState(ctx)
	if err != nil {
		d.logger.Warn("job counts unavailable", logging.Error(err))
	}
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Version:      d.version,
		StartedAt:    d.startedAt,
		Provider:     d.provider,
		LockFilePath: d.lockPath,
		JobsDatabase: d.store.DSN(),
		JobCounts:    counts,
		Checks:       preflight.RunAll(ctx, d.cfg),
		Dependencies: preflight.CheckSystemDeps(ctx, d.cfg),
	}
	if last, ok := d.sweeper.Last(); ok {
		status.LastSweep = &last
	}
	return status
}
