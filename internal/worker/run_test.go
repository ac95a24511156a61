package worker

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"inkwell/internal/adapters/storage/localfs"
	"inkwell/internal/job"
	"inkwell/internal/pkg/errors"
	"inkwell/internal/store/memory"
)

type renderFunc func(ctx context.Context, payload []byte) (string, error)

func (f renderFunc) Render(ctx context.Context, payload []byte) (string, error) {
	return f(ctx, payload)
}

func fakeRender(t *testing.T) renderFunc {
	return func(ctx context.Context, payload []byte) (string, error) {
		f, err := os.CreateTemp(t.TempDir(), "artifact-*.pdf")
		if err != nil {
			return "", err
		}
		f.WriteString("pdf")
		f.Close()
		return f.Name(), nil
	}
}

func waitForStatus(t *testing.T, store *memory.JobStore, id string, want job.Status) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := store.Get(context.Background(), id)
		if err == nil && rec.Status == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	rec, _ := store.Get(context.Background(), id)
	t.Fatalf("job %s never reached %s (last seen %s)", id, want, rec.Status)
}

func TestRunDrainsQueue(t *testing.T) {
	store := memory.NewJobStore()
	queue := memory.NewQueue(16)
	artifacts := localfs.New(t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const n = 5
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("job-%d", i)
		if err := store.Put(ctx, job.New(id, []byte("x"))); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if err := queue.Push(ctx, job.Descriptor{JobID: id, Payload: "x"}); err != nil {
			t.Fatalf("Push failed: %v", err)
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Deps{
			Store:      store,
			Queue:      queue,
			Artifacts:  artifacts,
			Renderer:   fakeRender(t),
			Workers:    3,
			PopTimeout: 50 * time.Millisecond,
		})
	}()

	for i := 0; i < n; i++ {
		waitForStatus(t, store, fmt.Sprintf("job-%d", i), job.StatusDone)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("worker pool did not stop after cancellation")
	}
}

func TestRunRecordsFailures(t *testing.T) {
	store := memory.NewJobStore()
	queue := memory.NewQueue(16)
	artifacts := localfs.New(t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := store.Put(ctx, job.New("job-bad", []byte("x"))); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := queue.Push(ctx, job.Descriptor{JobID: "job-bad", Payload: "x"}); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Deps{
			Store:     store,
			Queue:     queue,
			Artifacts: artifacts,
			Renderer: renderFunc(func(ctx context.Context, payload []byte) (string, error) {
				return "", errors.RenderFailed("renderer exited: exit status 1")
			}),
			Workers:    1,
			PopTimeout: 50 * time.Millisecond,
		})
	}()

	waitForStatus(t, store, "job-bad", job.StatusFailed)

	rec, _ := store.Get(ctx, "job-bad")
	if rec.Error == "" {
		t.Error("expected a diagnostic on the failed record")
	}

	cancel()
	<-done
}

func TestRunStopsOnEmptyQueue(t *testing.T) {
	store := memory.NewJobStore()
	queue := memory.NewQueue(16)
	artifacts := localfs.New(t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Deps{
			Store:      store,
			Queue:      queue,
			Artifacts:  artifacts,
			Renderer:   fakeRender(t),
			Workers:    2,
			PopTimeout: 50 * time.Millisecond,
		})
	}()

	// Let the pool settle into its pop loop, then pull the plug.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected an idle pool to stop promptly after cancellation")
	}
}
