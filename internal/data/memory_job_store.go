// Package data provides the process-local storage backend for verification jobs.
package data

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/target/verifyd/internal/core"
	"github.com/target/verifyd/internal/domain/model"
)

var _ core.ExpiringJobStore = (*MemoryJobStore)(nil)

// MemoryJobStoreConfig holds configuration options for the in-memory job store.
type MemoryJobStoreConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// MemoryJobStore keeps jobs in a process-local map.
// Records live until DeleteCreatedBefore removes them; nothing expires on read.
type MemoryJobStore struct {
	mu           sync.RWMutex
	jobs         map[string]model.Job
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewMemoryJobStore creates an empty in-memory job store.
func NewMemoryJobStore(cfg MemoryJobStoreConfig) *MemoryJobStore {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = RealTimeProvider{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &MemoryJobStore{
		jobs:         make(map[string]model.Job),
		timeProvider: tp,
		logger:       logger.With("component", "memory_job_store"),
	}
}

// CreateJob stores a new pending job and returns a copy of it.
func (s *MemoryJobStore) CreateJob(ctx context.Context, input model.JobInput) (model.Job, error) {
	if err := ctx.Err(); err != nil {
		return model.Job{}, err
	}

	job := model.NewJob(uuid.NewString(), input, s.timeProvider.Now())

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	return job.Clone(), nil
}

// GetJob returns a snapshot of the stored job.
func (s *MemoryJobStore) GetJob(_ context.Context, id string) (model.Job, error) {
	s.mu.RLock()
	job, ok := s.jobs[id]
	s.mu.RUnlock()

	if !ok {
		return model.Job{}, model.ErrJobNotFound
	}
	return job.Clone(), nil
}

// UpdateJob merges patch into the stored job. Unknown ids are ignored.
func (s *MemoryJobStore) UpdateJob(ctx context.Context, id string, patch model.JobPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		s.logger.DebugContext(ctx, "update for unknown job ignored", "job_id", id)
		return nil
	}

	job.Apply(patch, s.timeProvider.Now())
	s.jobs[id] = job
	return nil
}

// DeleteCreatedBefore removes every job created before cutoff, whatever its status.
func (s *MemoryJobStore) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, job := range s.jobs {
		if job.CreatedAt.Before(cutoff) {
			delete(s.jobs, id)
			deleted++
		}
	}
	return deleted, nil
}

// Len returns the number of stored jobs.
func (s *MemoryJobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
