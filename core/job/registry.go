// Package job tracks asynchronous conversion runs. Each submitted asset id
// gets one background worker; status is readable by arbitrarily many callers
// while the worker runs.
package job

import (
	"context"
	"sync"
	"time"

	"AsciiTV/logger"
	"AsciiTV/model"
)

// Runner executes one conversion for an asset id. Satisfied by
// pipeline.Pipeline.
type Runner interface {
	Run(ctx context.Context, id, srcPath string) (*model.Metadata, error)
}

// Store persists job status records. Put replaces the record for an id; Get
// returns nil without error when the id is unknown.
type Store interface {
	Put(ctx context.Context, id string, status *model.JobStatus) error
	Get(ctx context.Context, id string) (*model.JobStatus, error)
}

// MemoryStore is the default in-process Store. Entries are never evicted;
// for long-running deployments use the Redis store instead.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*model.JobStatus
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*model.JobStatus)}
}

func (s *MemoryStore) Put(ctx context.Context, id string, status *model.JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[id] = status
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*model.JobStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[id], nil
}

// Registry runs conversions in the background and answers status queries.
type Registry struct {
	store  Store
	runner Runner
}

// NewRegistry creates a Registry over the given store and runner.
func NewRegistry(store Store, runner Runner) *Registry {
	return &Registry{store: store, runner: runner}
}

// Submit starts a conversion for the asset id asynchronously and returns
// immediately. Callers are expected to generate a fresh id per upload; a
// second Submit for an id that is still running is not supported.
func (r *Registry) Submit(id, srcPath string) {
	running := &model.JobStatus{
		Status:    model.JobRunning,
		StartedAt: time.Now(),
	}
	if err := r.store.Put(context.Background(), id, running); err != nil {
		logger.Error("failed to record running job",
			logger.String("assetId", id),
			logger.ErrorField(err))
	}

	go func() {
		logger.Info("conversion started", logger.String("assetId", id))

		// The job outlives the submitting request, so it runs under its own
		// context. The design imposes no pipeline timeout.
		meta, err := r.runner.Run(context.Background(), id, srcPath)

		final := &model.JobStatus{StartedAt: running.StartedAt}
		if err != nil {
			final.Status = model.JobFailed
			final.Error = err.Error()
			logger.Error("conversion failed",
				logger.String("assetId", id),
				logger.ErrorField(err))
		} else {
			final.Status = model.JobCompleted
			final.Metadata = meta
		}

		if err := r.store.Put(context.Background(), id, final); err != nil {
			logger.Error("failed to record job result",
				logger.String("assetId", id),
				logger.ErrorField(err))
		}
	}()
}

// Status reports the current state of the job for id. Unknown ids report
// not_found.
func (r *Registry) Status(ctx context.Context, id string) *model.JobStatus {
	status, err := r.store.Get(ctx, id)
	if err != nil {
		logger.Error("failed to read job status",
			logger.String("assetId", id),
			logger.ErrorField(err))
		return &model.JobStatus{Status: model.JobNotFound}
	}
	if status == nil {
		return &model.JobStatus{Status: model.JobNotFound}
	}
	return status
}
