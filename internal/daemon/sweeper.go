package daemon

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"vidtools/internal/config"
	"vidtools/internal/jobstore"
	"vidtools/internal/logging"
	"vidtools/internal/staging"
)

// SweepResult summarizes one sweeper pass.
type SweepResult struct {
	FinishedAt time.Time
	Removed    []string
	Failures   int
	JobsPruned int64
	LogsPruned int
}

// jobPruner trims finished job history.
type jobPruner interface {
	Prune(ctx context.Context, keep int) (int64, error)
	DSN() string
}

// Sweeper removes stale uploads, intermediates, expired outputs, old logs
// and surplus job history on a cron schedule. Overlapping triggers share one
// pass.
type Sweeper struct {
	cfg    *config.Config
	jobs   jobPruner
	logger *slog.Logger
	now    func() time.Time

	group singleflight.Group
	cron  *cron.Cron

	mu   sync.Mutex
	last *SweepResult
}

// NewSweeper builds a sweeper for the configured directories.
func NewSweeper(cfg *config.Config, jobs *jobstore.Store, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Sweeper{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "sweeper"),
		now:    time.Now,
	}
	if jobs != nil {
		s.jobs = jobs
	}
	return s
}

// Start runs one pass immediately and then schedules cleanup.schedule.
func (s *Sweeper) Start(ctx context.Context) error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.cfg.Cleanup.Schedule, func() { s.Sweep(ctx) }); err != nil {
		return err
	}
	s.Sweep(ctx)
	s.cron.Start()
	s.logger.Info("sweeper scheduled",
		logging.String("schedule", s.cfg.Cleanup.Schedule),
		logging.Duration("max_age", s.cfg.StaleAge()),
		logging.Duration("output_retention", s.cfg.OutputRetention()),
	)
	return nil
}

// Stop halts the schedule and waits for a running pass.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
}

// Sweep runs one pass. Concurrent callers wait for and share the same pass.
func (s *Sweeper) Sweep(ctx context.Context) SweepResult {
	v, _, _ := s.group.Do("sweep", func() (any, error) {
		result := s.sweep(ctx)
		s.mu.Lock()
		s.last = &result
		s.mu.Unlock()
		return result, nil
	})
	return v.(SweepResult)
}

// Last returns the most recent pass, if any.
func (s *Sweeper) Last() (SweepResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return SweepResult{}, false
	}
	return *s.last, true
}

func (s *Sweeper) sweep(ctx context.Context) SweepResult {
	skip := []string{filepath.Base(s.cfg.LockPath())}
	if s.jobs != nil && s.jobs.DSN() != jobstore.MemoryDSN {
		base := filepath.Base(s.jobs.DSN())
		skip = append(skip, base, base+"-wal", base+"-shm")
	}

	var result SweepResult
	targets := []struct {
		dir    string
		maxAge time.Duration
	}{
		{s.cfg.Paths.UploadDir, s.cfg.StaleAge()},
		{s.cfg.Paths.TempDir, s.cfg.StaleAge()},
		{s.cfg.Paths.OutputDir, s.cfg.OutputRetention()},
	}
	for _, target := range targets {
		cleaned := staging.CleanStale(ctx, target.dir, target.maxAge, skip, s.logger)
		result.Removed = append(result.Removed, cleaned.Removed...)
		result.Failures += len(cleaned.Errors)
		for _, failure := range cleaned.Errors {
			logging.WarnWithContext(s.logger, "stale file removal failed", "sweep_failed",
				logging.String("path", failure.Path),
				logging.Error(failure.Error),
				logging.String(logging.FieldImpact, "file retried on the next pass"),
			)
		}
	}

	result.LogsPruned = logging.PruneLogs(s.logger, s.cfg.Paths.LogDir, "*.log", s.cfg.Cleanup.LogRetentionDays, s.now())

	if s.jobs != nil {
		pruned, err := s.jobs.Prune(ctx, s.cfg.Jobs.HistoryLimit)
		if err != nil {
			result.Failures++
			s.logger.Warn("job history prune failed", logging.Error(err))
		}
		result.JobsPruned = pruned
	}

	result.FinishedAt = s.now()
	level := slog.LevelDebug
	if len(result.Removed) > 0 || result.Failures > 0 {
		level = slog.LevelInfo
	}
	s.logger.Log(ctx, level, "sweep complete",
		logging.Int("files_removed", len(result.Removed)),
		logging.Int("failures", result.Failures),
		logging.Int64("jobs_pruned", result.JobsPruned),
		logging.Int("logs_pruned", result.LogsPruned),
	)
	return result
}
