package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/target/verifyd/internal/core"
	"github.com/target/verifyd/internal/domain/model"
	"github.com/target/verifyd/internal/observability/metrics"
	"github.com/target/verifyd/internal/observability/statsd"
	"golang.org/x/sync/semaphore"
)

// fallbackErrorMessage is recorded when the engine fails without a message.
const fallbackErrorMessage = "verification failed"

// JobRunnerOptions groups dependencies for JobRunner.
type JobRunnerOptions struct {
	Jobs          *JobService        // Required: queue facade
	Verifier      core.Verifier      // Required: verification engine
	Webhooks      core.WebhookSender // Optional: nil disables webhook delivery
	MaxConcurrent int                // Optional: >0 caps concurrently running verifications
	Logger        *slog.Logger       // Optional: structured logger
	Metrics       statsd.Sink        // Optional: metrics sink (StatsD-compatible)
}

// JobRunner executes submitted jobs in the background.
//
// Every job runs in its own goroutine, detached from the request that created it:
// pending -> running -> done|error, with no retry. A panic in the engine is recorded
// as a job error and never escapes the goroutine.
type JobRunner struct {
	jobs     *JobService
	verifier core.Verifier
	webhooks core.WebhookSender
	sem      *semaphore.Weighted
	logger   *slog.Logger
	metrics  statsd.Sink

	wg       sync.WaitGroup
	inflight sync.Map // job id -> struct{}
}

// NewJobRunner constructs a JobRunner.
func NewJobRunner(opts JobRunnerOptions) (*JobRunner, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobService is required")
	}
	if opts.Verifier == nil {
		return nil, errors.New("Verifier is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &JobRunner{
		jobs:     opts.Jobs,
		verifier: opts.Verifier,
		webhooks: opts.Webhooks,
		logger:   logger.With("component", "job_runner"),
		metrics:  opts.Metrics,
	}
	if opts.MaxConcurrent > 0 {
		r.sem = semaphore.NewWeighted(int64(opts.MaxConcurrent))
	}
	return r, nil
}

// Submit starts job in the background and returns immediately. apiKeys travel with
// the invocation only; they are never stored. Cancellation of ctx does not stop the job.
func (r *JobRunner) Submit(ctx context.Context, job model.Job, apiKeys map[string]string) {
	detached := context.WithoutCancel(ctx)
	params := model.VerifyParams{
		Tier:     job.Input.Tier,
		Question: job.Input.Question,
		APIKeys:  apiKeys,
	}

	r.wg.Add(1)
	r.inflight.Store(job.ID, struct{}{})
	go func() {
		defer r.wg.Done()
		defer r.inflight.Delete(job.ID)
		r.execute(detached, job, params)
	}()
}

// InFlight returns the number of submitted jobs that have not finished.
func (r *JobRunner) InFlight() int {
	n := 0
	r.inflight.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Wait blocks until every submitted job has finished or ctx is done.
func (r *JobRunner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		r.logger.WarnContext(ctx, "stopped waiting for in-flight jobs", "remaining", r.InFlight())
		return ctx.Err()
	}
}

func (r *JobRunner) execute(ctx context.Context, job model.Job, params model.VerifyParams) {
	start := time.Now()
	finished := false

	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		err := fmt.Errorf("verification panicked: %v", rec)
		r.logger.ErrorContext(ctx, "job runner recovered from panic", "job_id", job.ID, "panic", rec)
		if !finished {
			r.finish(ctx, job, model.ErrorPatch(err.Error()), err, start)
		}
	}()

	if r.sem != nil {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			r.logger.ErrorContext(ctx, "admit job failed", "job_id", job.ID, "error", err)
			return
		}
		defer r.sem.Release(1)
	}

	if err := r.jobs.UpdateJob(ctx, job.ID, model.RunningPatch()); err != nil {
		r.logger.ErrorContext(ctx, "mark job running failed", "job_id", job.ID, "error", err)
	}
	metrics.EmitJobLifecycle(r.metrics, metrics.JobMetric{
		Tier:       string(job.Input.Tier),
		Backend:    r.jobs.Backend(),
		Transition: metrics.TransitionStarted,
		Result:     metrics.ResultSuccess,
	})

	result, err := r.verifier.Verify(ctx, job.Input.Output, params)

	var patch model.JobPatch
	if err != nil {
		patch = model.ErrorPatch(errorMessage(err))
		r.logger.WarnContext(ctx, "verification failed", "job_id", job.ID, "error", err)
	} else {
		if len(result) == 0 {
			result = json.RawMessage("null")
		}
		patch = model.DonePatch(result)
	}

	finished = true
	r.finish(ctx, job, patch, err, start)
}

// finish records the terminal state and, when requested, notifies the callback URL.
func (r *JobRunner) finish(ctx context.Context, job model.Job, patch model.JobPatch, cause error, start time.Time) {
	if err := r.jobs.UpdateJob(ctx, job.ID, patch); err != nil {
		r.logger.ErrorContext(ctx, "record job outcome failed", "job_id", job.ID, "error", err)
	}

	job.Apply(patch, time.Now())

	transition, result := metrics.TransitionCompleted, metrics.ResultSuccess
	if job.Status == model.JobStatusError {
		transition, result = metrics.TransitionFailed, metrics.ResultError
	}
	metrics.EmitJobLifecycle(r.metrics, metrics.JobMetric{
		Tier:       string(job.Input.Tier),
		Backend:    r.jobs.Backend(),
		Transition: transition,
		Result:     result,
		Duration:   time.Since(start),
		Err:        cause,
	})
	r.logger.InfoContext(ctx, "job finished",
		"job_id", job.ID,
		"status", job.Status,
		"duration", time.Since(start),
	)

	r.notify(ctx, job)
}

func (r *JobRunner) notify(ctx context.Context, job model.Job) {
	if r.webhooks == nil || job.Input.CallbackURL == "" || !job.Status.Terminal() {
		return
	}

	if err := r.webhooks.Deliver(ctx, job.Input.CallbackURL, model.NewWebhookPayload(job)); err != nil {
		r.logger.WarnContext(ctx, "webhook delivery failed",
			"job_id", job.ID,
			"status", job.Status,
			"receiver_rejected", IsWebhookStatusError(err),
			"error", err,
		)
	}
}

func errorMessage(err error) string {
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return fallbackErrorMessage
}
