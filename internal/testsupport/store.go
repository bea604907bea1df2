package testsupport

import (
	"context"
	"testing"

	"montage/internal/config"
	"montage/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob enqueues a pending render job for tests.
func NewJob(t testing.TB, store *queue.Store, source, output string) *queue.Job {
	t.Helper()

	job, err := store.NewJob(context.Background(), source, output, `{"decisions":[]}`, "[0:v]null[v0]")
	if err != nil {
		t.Fatalf("store.NewJob: %v", err)
	}
	return job
}
