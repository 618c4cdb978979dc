package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"filerepo/storage"
)

func TestCleanupServiceRemovesOnlyStalePartials(t *testing.T) {
	root := t.TempDir()
	store, err := storage.NewLocalStorage(root, "/storage", 0)
	if err != nil {
		t.Fatalf("NewLocalStorage failed: %v", err)
	}

	dir := filepath.Join(root, "user_alice")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	stale := filepath.Join(dir, ".old.part")
	fresh := filepath.Join(dir, ".new.part")
	for _, p := range []string{stale, fresh} {
		if err := os.WriteFile(p, []byte("partial"), 0o644); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}
	old := time.Now().Add(-3 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes failed: %v", err)
	}

	svc := NewCleanupService(store, time.Hour)
	removed, err := svc.CleanStaleUploads(context.Background())
	if err != nil {
		t.Fatalf("CleanStaleUploads failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh partial should survive: %v", err)
	}
}

type countingCleanup struct {
	calls chan struct{}
}

func (c *countingCleanup) CleanStaleUploads(context.Context) (int, error) {
	select {
	case c.calls <- struct{}{}:
	default:
	}
	return 0, nil
}

func TestStartCleanupWorkersRunsUntilCancelled(t *testing.T) {
	fake := &countingCleanup{calls: make(chan struct{}, 1)}
	SetCleanupService(fake)
	defer SetCleanupService(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartCleanupWorkers(ctx, 10*time.Millisecond)

	select {
	case <-fake.calls:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected cleanup to run at least once")
	}
}
