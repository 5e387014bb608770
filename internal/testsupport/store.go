package testsupport

import (
	"context"
	"testing"

	"reelsmith/internal/config"
	"reelsmith/internal/queue"
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

// EnqueueJob inserts a job with a placeholder request payload.
func EnqueueJob(t testing.TB, store *queue.Store, id string) *queue.Job {
	t.Helper()

	job, err := store.Enqueue(context.Background(), id, `{"scenes":[]}`, 0)
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return job
}
