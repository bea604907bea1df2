package render_test

import (
	"context"
	"testing"
	"time"

	"montage/internal/queue"
	"montage/internal/render"
	"montage/internal/testsupport"
)

func waitForStatus(t *testing.T, store *queue.Store, id string, want queue.Status) *queue.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if job != nil && job.Status == want {
			return job
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("job %s never reached %s", id, want)
	return nil
}

func TestWorkerRendersPendingJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBinaryScript("ffmpeg", successScript))
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	edlJSON := `{"decisions":[{"type":"layout","tool":"only_screen","startTime":0,"endTime":5}],"metadata":{"sourceDuration":5}}`
	job, err := store.NewJob(ctx, "talk.mp4", cfg.ResolveOutputPath("talk-edit.mp4"), edlJSON, "")
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	broken, err := store.NewJob(ctx, "other.mp4", cfg.ResolveOutputPath("other-edit.mp4"), `{"decisions":[{"type":"layout","tool":"pip"}]}`, "")
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}

	worker := render.NewWorker(cfg, store, nil, render.WithPollInterval(20*time.Millisecond))
	if err := worker.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer worker.Stop()
	worker.Notify()

	done := waitForStatus(t, store, job.ID, queue.StatusCompleted)
	if done.ProgressPercent != 100 {
		t.Fatalf("expected 100%% progress, got %.1f", done.ProgressPercent)
	}
	failed := waitForStatus(t, store, broken.ID, queue.StatusFailed)
	if failed.ErrorMessage == "" {
		t.Fatal("expected error message for undecodable edit list")
	}
}

func TestWorkerStartResetsInterruptedJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBinaryScript("ffmpeg", successScript))
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "a.mp4", cfg.ResolveOutputPath("a-edit.mp4"))
	if _, err := store.ClaimNext(context.Background()); err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}

	worker := render.NewWorker(cfg, store, nil, render.WithPollInterval(time.Hour))
	if err := worker.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer worker.Stop()

	fetched := waitForStatus(t, store, job.ID, queue.StatusFailed)
	if fetched.ErrorMessage != queue.InterruptedReason {
		t.Fatalf("unexpected reason %q", fetched.ErrorMessage)
	}
	if err := worker.Start(context.Background()); err == nil {
		t.Fatal("expected error starting a running worker")
	}
}
