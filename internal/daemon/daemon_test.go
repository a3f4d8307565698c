package daemon_test

import (
	"context"
	"strings"
	"testing"

	"vidtools/internal/daemon"
	"vidtools/internal/events"
	"vidtools/internal/jobstore"
)

func TestDaemonStartStop(t *testing.T) {
	cfg := testConfig(t)
	h := newHarness(t, cfg, &recordingRunner{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := h.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := h.daemon.Status(ctx)
	if !status.Running || status.Version != "test" || status.LastSweep == nil {
		t.Fatalf("unexpected status %+v", status)
	}
	if strings.HasSuffix(h.daemon.Addr(), ":0") {
		t.Fatalf("expected bound address, got %q", h.daemon.Addr())
	}

	if err := h.daemon.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	store, err := jobstore.Open(jobstore.MemoryDSN, nil)
	if err != nil {
		t.Fatal(err)
	}
	other, err := daemon.New(cfg, store, events.NewHub(0), &recordingRunner{}, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	defer other.Close()
	if err := other.Start(ctx); err == nil || !strings.Contains(err.Error(), "already using") {
		t.Fatalf("expected lock conflict, got %v", err)
	}

	h.daemon.Stop()
	if h.daemon.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
}
