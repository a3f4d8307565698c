package testsupport

import (
	"testing"

	"vidtools/internal/events"
	"vidtools/internal/jobstore"
)

// MustOpenStore opens an in-memory job store and registers cleanup.
func MustOpenStore(t testing.TB) *jobstore.Store {
	t.Helper()

	store, err := jobstore.Open(jobstore.MemoryDSN, nil)
	if err != nil {
		t.Fatalf("jobstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewHub returns an event hub that persists into store.
func NewHub(store *jobstore.Store) *events.Hub {
	hub := events.NewHub(0)
	hub.AddSink(store)
	return hub
}
