package daemon_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"vidtools/internal/daemon"
	"vidtools/internal/events"
	"vidtools/internal/jobstore"
	"vidtools/internal/testsupport"
)

func TestSweepRemovesStaleFilesOnly(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cleanup.MaxAgeHours = 1
	cfg.Cleanup.OutputRetentionHours = 24

	staleUpload := filepath.Join(cfg.Paths.UploadDir, "old.mp4")
	freshUpload := filepath.Join(cfg.Paths.UploadDir, "new.mp4")
	staleTemp := filepath.Join(cfg.Paths.TempDir, "standardized-0-x.mp4")
	keptOutput := filepath.Join(cfg.Paths.OutputDir, "compressed-a.mp4")
	expiredOutput := filepath.Join(cfg.Paths.OutputDir, "compressed-b.mp4")
	testsupport.WriteAged(t, staleUpload, 2*time.Hour)
	testsupport.WriteAged(t, freshUpload, time.Minute)
	testsupport.WriteAged(t, staleTemp, 3*time.Hour)
	testsupport.WriteAged(t, keptOutput, 2*time.Hour)
	testsupport.WriteAged(t, expiredOutput, 48*time.Hour)
	testsupport.WriteAged(t, cfg.LockPath(), 5*time.Hour)

	store, err := jobstore.Open(jobstore.MemoryDSN, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	sweeper := daemon.NewSweeper(cfg, store, nil)
	result := sweeper.Sweep(context.Background())

	want := []string{staleUpload, staleTemp, expiredOutput}
	for _, path := range want {
		if !slices.Contains(result.Removed, path) {
			t.Fatalf("expected %s in removed %v", path, result.Removed)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("expected %s to be removed", path)
		}
	}
	for _, path := range []string{freshUpload, keptOutput, cfg.LockPath()} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to remain: %v", path, err)
		}
	}
	if result.Failures != 0 {
		t.Fatalf("unexpected failures %d", result.Failures)
	}
	last, ok := sweeper.Last()
	if !ok || len(last.Removed) != len(result.Removed) {
		t.Fatalf("expected last sweep to be recorded, got %+v", last)
	}
}

func TestSweepPrunesJobHistory(t *testing.T) {
	cfg := testConfig(t)
	cfg.Jobs.HistoryLimit = 1

	store, err := jobstore.Open(jobstore.MemoryDSN, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"a", "b", "c"} {
		evt := events.Event{
			JobID:     id,
			Operation: "compress",
			State:     events.StateDone,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Apply(ctx, evt); err != nil {
			t.Fatal(err)
		}
	}

	result := daemon.NewSweeper(cfg, store, nil).Sweep(ctx)
	if result.JobsPruned != 2 {
		t.Fatalf("expected 2 pruned jobs, got %d", result.JobsPruned)
	}
	jobs, err := store.List(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 || jobs[0].ID != "c" {
		t.Fatalf("expected newest job to remain, got %+v", jobs)
	}
}
