package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"montage/internal/edl"
	"montage/internal/testsupport"
	"montage/internal/watch"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWatchDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "edit.json")
	testsupport.WriteEDL(t, path, edl.List{SourceVideo: "talk.mp4"})

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- watch.Watch(ctx, path, func(context.Context) error {
			calls.Add(1)
			return nil
		}, watch.Options{Debounce: 100 * time.Millisecond, Initial: true})
	}()

	waitFor(t, func() bool { return calls.Load() == 1 })
	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte(`{"decisions":[]}`), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	waitFor(t, func() bool { return calls.Load() == 2 })
	time.Sleep(300 * time.Millisecond)
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected burst to collapse into one call, got %d", got)
	}

	other := filepath.Join(dir, "other.json")
	if err := os.WriteFile(other, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write other: %v", err)
	}
	time.Sleep(300 * time.Millisecond)
	if got := calls.Load(); got != 2 {
		t.Fatalf("unrelated file triggered handler, calls=%d", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatchFollowsRenameSaves(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "edit.json")
	testsupport.WriteEDL(t, path, edl.List{SourceVideo: "talk.mp4"})

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = watch.Watch(ctx, path, func(context.Context) error {
			calls.Add(1)
			return nil
		}, watch.Options{Debounce: 50 * time.Millisecond})
	}()
	time.Sleep(150 * time.Millisecond)

	tmp := filepath.Join(dir, ".edit.json.tmp")
	if err := os.WriteFile(tmp, []byte(`{"decisions":[]}`), 0o644); err != nil {
		t.Fatalf("write tmp: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename: %v", err)
	}
	waitFor(t, func() bool { return calls.Load() >= 1 })
}

func TestWatchRejectsMissingFile(t *testing.T) {
	err := watch.Watch(context.Background(), filepath.Join(t.TempDir(), "missing.json"),
		func(context.Context) error { return nil }, watch.Options{})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
