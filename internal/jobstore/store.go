package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"vidtools/internal/events"
	"vidtools/internal/logging"
)

// MemoryDSN keeps the database in process memory.
const MemoryDSN = ":memory:"

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	sinkWriteTimeout        = 5 * time.Second
)

// Job is the persisted view of a pipeline run.
type Job struct {
	ID         string       `json:"id"`
	Operation  string       `json:"operation"`
	State      events.State `json:"state"`
	Stage      string       `json:"stage,omitempty"`
	Progress   float64      `json:"progress"`
	Message    string       `json:"message,omitempty"`
	OutputFile string       `json:"outputFile,omitempty"`
	Error      string       `json:"error,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
	FinishedAt *time.Time   `json:"finishedAt,omitempty"`
}

// Store manages job persistence backed by SQLite.
type Store struct {
	db     *sql.DB
	dsn    string
	logger *slog.Logger
}

// Open initializes or connects to the job database.
func Open(dsn string, logger *slog.Logger) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = MemoryDSN
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{"PRAGMA busy_timeout = 5000"}
	if dsn == MemoryDSN {
		// Each connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	} else {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, dsn: dsn, logger: logger}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DSN returns the data source the store was opened with.
func (s *Store) DSN() string {
	return s.dsn
}

// Apply upserts the job row described by evt.
func (s *Store) Apply(ctx context.Context, evt events.Event) error {
	if strings.TrimSpace(evt.JobID) == "" {
		return errors.New("apply event: empty job id")
	}
	ts := evt.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	stamp := ts.UTC().Format(time.RFC3339Nano)
	var finished any
	if evt.State.Terminal() {
		finished = stamp
	}

	return s.execWithRetry(ctx, `INSERT INTO jobs (
            id, operation, state, stage, progress, message, output_file, error,
            created_at, updated_at, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            operation = CASE WHEN excluded.operation != '' THEN excluded.operation ELSE jobs.operation END,
            state = excluded.state,
            stage = CASE WHEN excluded.stage != '' THEN excluded.stage ELSE jobs.stage END,
            progress = excluded.progress,
            message = excluded.message,
            output_file = CASE WHEN excluded.output_file != '' THEN excluded.output_file ELSE jobs.output_file END,
            error = excluded.error,
            updated_at = excluded.updated_at,
            finished_at = COALESCE(excluded.finished_at, jobs.finished_at)`,
		evt.JobID, evt.Operation, string(evt.State), evt.Stage, evt.Percent, evt.Message,
		evt.OutputFile, evt.Error, stamp, stamp, finished,
	)
}

// Append implements events.Sink. Write failures are logged.
func (s *Store) Append(evt events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), sinkWriteTimeout)
	defer cancel()
	if err := s.Apply(ctx, evt); err != nil {
		logging.WarnWithContext(s.logger, "job store write failed", "jobstore_write_failed",
			logging.String(logging.FieldJobID, evt.JobID),
			logging.String("state", string(evt.State)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "job status readers may see stale state"),
		)
	}
}

// Get returns the job with id, or nil when none exists.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// List returns up to limit jobs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, selectColumns+" ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// CountByState returns the number of jobs in each state.
func (s *Store) CountByState(ctx context.Context) (map[events.State]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT state, COUNT(1) FROM jobs GROUP BY state")
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()
	counts := make(map[events.State]int)
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[events.State(state)] = n
	}
	return counts, rows.Err()
}

// Prune keeps the newest keep finished jobs and deletes the rest. Jobs still
// running are never removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs
        WHERE finished_at IS NOT NULL
          AND id NOT IN (
            SELECT id FROM jobs WHERE finished_at IS NOT NULL
            ORDER BY finished_at DESC LIMIT ?
          )`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune jobs: %w", err)
	}
	return res.RowsAffected()
}

const selectColumns = `SELECT id, operation, state, stage, progress, message, output_file, error,
        created_at, updated_at, finished_at FROM jobs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job              Job
		state            string
		created, updated string
		finished         sql.NullString
	)
	if err := row.Scan(&job.ID, &job.Operation, &state, &job.Stage, &job.Progress, &job.Message,
		&job.OutputFile, &job.Error, &created, &updated, &finished); err != nil {
		return nil, err
	}
	job.State = events.State(state)
	job.CreatedAt = parseTime(created)
	job.UpdatedAt = parseTime(updated)
	if finished.Valid {
		t := parseTime(finished.String)
		job.FinishedAt = &t
	}
	return &job, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		_, lastErr = s.db.ExecContext(ctx, query, args...)
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
