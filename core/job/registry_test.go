package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"AsciiTV/model"
)

// blockingRunner holds the conversion open until release is closed.
type blockingRunner struct {
	release chan struct{}
	meta    *model.Metadata
	err     error
}

func (r *blockingRunner) Run(ctx context.Context, id, srcPath string) (*model.Metadata, error) {
	<-r.release
	return r.meta, r.err
}

func waitForState(t *testing.T, reg *Registry, id string, want model.JobState) *model.JobStatus {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		status := reg.Status(context.Background(), id)
		if status.Status == want {
			return status
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached state %s", id, want)
	return nil
}

func TestStatusUnknownID(t *testing.T) {
	reg := NewRegistry(NewMemoryStore(), &blockingRunner{release: make(chan struct{})})

	status := reg.Status(context.Background(), "never-submitted")
	if status.Status != model.JobNotFound {
		t.Errorf("status = %s, want %s", status.Status, model.JobNotFound)
	}
}

func TestStatusRunningBeforeCompletion(t *testing.T) {
	runner := &blockingRunner{
		release: make(chan struct{}),
		meta:    &model.Metadata{FrameCount: 1},
	}
	reg := NewRegistry(NewMemoryStore(), runner)

	reg.Submit("vid1", "/tmp/vid1.mp4")

	status := reg.Status(context.Background(), "vid1")
	if status.Status != model.JobRunning {
		t.Errorf("status immediately after submit = %s, want %s", status.Status, model.JobRunning)
	}
	if status.StartedAt.IsZero() {
		t.Error("running job has no start time")
	}

	close(runner.release)
	final := waitForState(t, reg, "vid1", model.JobCompleted)
	if final.Metadata == nil || final.Metadata.FrameCount != 1 {
		t.Errorf("completed job metadata = %+v", final.Metadata)
	}
	if final.Error != "" {
		t.Errorf("completed job carries error %q", final.Error)
	}
}

func TestFailureRecordsErrorText(t *testing.T) {
	runner := &blockingRunner{
		release: make(chan struct{}),
		err:     errors.New("source video unreadable: bad container"),
	}
	reg := NewRegistry(NewMemoryStore(), runner)

	reg.Submit("vid2", "/tmp/vid2.mp4")
	close(runner.release)

	final := waitForState(t, reg, "vid2", model.JobFailed)
	if final.Error != "source video unreadable: bad container" {
		t.Errorf("failure text = %q", final.Error)
	}
	if final.Metadata != nil {
		t.Error("failed job carries metadata")
	}
}

func TestSubmitDoesNotBlock(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{})}
	reg := NewRegistry(NewMemoryStore(), runner)

	done := make(chan struct{})
	go func() {
		reg.Submit("vid3", "/tmp/vid3.mp4")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on pipeline completion")
	}
	close(runner.release)
}

func TestMemoryStoreIndependentIDs(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Put(ctx, "a", &model.JobStatus{Status: model.JobRunning}); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, "b", &model.JobStatus{Status: model.JobFailed, Error: "x"}); err != nil {
		t.Fatal(err)
	}

	a, err := store.Get(ctx, "a")
	if err != nil || a == nil || a.Status != model.JobRunning {
		t.Errorf("store.Get(a) = %+v, %v", a, err)
	}
	b, err := store.Get(ctx, "b")
	if err != nil || b == nil || b.Status != model.JobFailed {
		t.Errorf("store.Get(b) = %+v, %v", b, err)
	}
	missing, err := store.Get(ctx, "c")
	if err != nil || missing != nil {
		t.Errorf("store.Get(c) = %+v, %v; want nil, nil", missing, err)
	}
}
