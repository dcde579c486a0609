package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/verifyd/internal/core"
	"github.com/target/verifyd/internal/domain/model"
	"github.com/target/verifyd/internal/observability/metrics"
	"github.com/target/verifyd/internal/observability/statsd"
)

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Store   core.JobStore // Required: selected job store backend
	Backend string        // Optional: backend name used for logs and metric tags
	Logger  *slog.Logger  // Optional: structured logger
	Metrics statsd.Sink   // Optional: metrics sink (StatsD-compatible)
}

// JobService is the queue facade: it delegates to whichever backend was selected at startup.
// Callers see identical behaviour regardless of the backend.
type JobService struct {
	store   core.JobStore
	backend string
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Store == nil {
		return nil, errors.New("JobStore is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "job_service")
	logger.Debug("JobService initialized", "backend", opts.Backend)

	return &JobService{
		store:   opts.Store,
		backend: opts.Backend,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// MustNewJobService constructs a new JobService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewJobService(opts JobServiceOptions) *JobService {
	svc, err := NewJobService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create JobService: %v", err))
	}
	return svc
}

// Backend returns the configured backend name.
func (s *JobService) Backend() string {
	return s.backend
}

// CreateJob stores a new pending job for input.
func (s *JobService) CreateJob(ctx context.Context, input model.JobInput) (model.Job, error) {
	job, err := s.store.CreateJob(ctx, input)
	if err != nil {
		metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
			Tier:       string(input.Tier),
			Backend:    s.backend,
			Transition: metrics.TransitionCreated,
			Result:     metrics.ResultError,
			Err:        err,
		})
		return model.Job{}, fmt.Errorf("create job: %w", err)
	}

	s.logger.InfoContext(ctx, "job created",
		"job_id", job.ID,
		"tier", job.Input.Tier,
		"has_callback", job.Input.CallbackURL != "",
	)
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		Tier:       string(input.Tier),
		Backend:    s.backend,
		Transition: metrics.TransitionCreated,
		Result:     metrics.ResultSuccess,
	})

	return job, nil
}

// GetJob returns a snapshot of the job, or model.ErrJobNotFound.
func (s *JobService) GetJob(ctx context.Context, id string) (model.Job, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			return model.Job{}, err
		}
		return model.Job{}, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// UpdateJob merges patch into the stored job. Unknown ids are ignored.
func (s *JobService) UpdateJob(ctx context.Context, id string, patch model.JobPatch) error {
	if err := s.store.UpdateJob(ctx, id, patch); err != nil {
		return fmt.Errorf("update job: %w", err)
	}

	if patch.Status != nil {
		s.logger.DebugContext(ctx, "job updated", "job_id", id, "status", *patch.Status)
	}
	return nil
}
