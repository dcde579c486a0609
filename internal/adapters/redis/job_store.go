// Package redis provides the Redis-backed durable store for verification jobs.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/target/verifyd/internal/core"
	"github.com/target/verifyd/internal/domain/model"
)

const (
	// DefaultKeyPrefix namespaces job keys as "<prefix>:<id>".
	DefaultKeyPrefix = "verify:job"
	// DefaultJobTTL is applied on every write, so each update pushes expiry out again.
	DefaultJobTTL = 24 * time.Hour

	defaultHandshakeBackoff    = 500 * time.Millisecond
	defaultMaxHandshakeBackoff = 30 * time.Second
	maxUpdateAttempts          = 5
)

var _ core.JobStore = (*JobStore)(nil)

var errJobMissing = errors.New("job key missing")

// JobStoreOptions groups dependencies for JobStore.
type JobStoreOptions struct {
	Client redis.UniversalClient // Required
	Prefix string
	TTL    time.Duration
	Logger *slog.Logger
	// Now overrides the clock used for CreatedAt/UpdatedAt (tests).
	Now func() time.Time
	// HandshakeBackoff is the initial delay between failed connection checks.
	HandshakeBackoff time.Duration
}

// JobStore keeps each job as a JSON blob under its own key with a TTL.
//
// The store may be constructed before Redis is reachable: a background handshake
// pings the server and every operation waits until the first ping succeeds.
type JobStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
	ready  chan struct{}
}

// NewJobStore creates the store and starts the connection handshake.
// The handshake stops when ctx is cancelled.
func NewJobStore(ctx context.Context, opts JobStoreOptions) (*JobStore, error) {
	if opts.Client == nil {
		return nil, errors.New("redis client is required")
	}

	prefix := strings.TrimRight(strings.TrimSpace(opts.Prefix), ":")
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultJobTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	backoff := opts.HandshakeBackoff
	if backoff <= 0 {
		backoff = defaultHandshakeBackoff
	}

	s := &JobStore{
		client: opts.Client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.With("component", "redis_job_store"),
		now:    now,
		ready:  make(chan struct{}),
	}

	go s.handshake(ctx, backoff)

	return s, nil
}

// Ready is closed once the connection handshake has completed.
func (s *JobStore) Ready() <-chan struct{} {
	return s.ready
}

// Key returns the Redis key holding the job with the given id.
func (s *JobStore) Key(id string) string {
	return s.prefix + ":" + id
}

func (s *JobStore) handshake(ctx context.Context, backoff time.Duration) {
	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := s.client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			s.logger.InfoContext(ctx, "redis job store ready", "attempts", attempt)
			close(s.ready)
			return
		}

		s.logger.WarnContext(ctx, "redis not reachable, retrying",
			"attempt", attempt,
			"retry_in", backoff,
			"error", err)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.InfoContext(ctx, "redis handshake abandoned", "reason", ctx.Err())
			return
		case <-timer.C:
		}

		backoff *= 2
		if backoff > defaultMaxHandshakeBackoff {
			backoff = defaultMaxHandshakeBackoff
		}
	}
}

func (s *JobStore) waitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CreateJob writes a new pending job. A failed write is logged and the job is still
// returned; it will simply not be found when polled.
func (s *JobStore) CreateJob(ctx context.Context, input model.JobInput) (model.Job, error) {
	if err := s.waitReady(ctx); err != nil {
		return model.Job{}, err
	}

	job := model.NewJob(uuid.NewString(), input, s.now())
	data, err := json.Marshal(job)
	if err != nil {
		return model.Job{}, fmt.Errorf("marshal job: %w", err)
	}

	if err := s.client.Set(ctx, s.Key(job.ID), data, s.ttl).Err(); err != nil {
		s.logger.ErrorContext(ctx, "write job failed", "job_id", job.ID, "error", err)
	}

	return job, nil
}

// GetJob reads and decodes a job. Missing keys, read failures and undecodable
// blobs are all reported as model.ErrJobNotFound.
func (s *JobStore) GetJob(ctx context.Context, id string) (model.Job, error) {
	if id == "" {
		return model.Job{}, model.ErrJobNotFound
	}
	if err := s.waitReady(ctx); err != nil {
		return model.Job{}, err
	}

	data, err := s.client.Get(ctx, s.Key(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.ErrorContext(ctx, "read job failed", "job_id", id, "error", err)
		}
		return model.Job{}, model.ErrJobNotFound
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		s.logger.WarnContext(ctx, "discarding undecodable job", "job_id", id, "error", err)
		return model.Job{}, model.ErrJobNotFound
	}

	return job, nil
}

// UpdateJob merges patch into the stored job under WATCH and rewrites it with a fresh TTL.
// Unknown ids and storage failures are logged and otherwise ignored.
func (s *JobStore) UpdateJob(ctx context.Context, id string, patch model.JobPatch) error {
	if id == "" {
		return nil
	}
	if err := s.waitReady(ctx); err != nil {
		return err
	}

	key := s.Key(id)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return errJobMissing
		}
		if err != nil {
			return fmt.Errorf("read job: %w", err)
		}

		var job model.Job
		if err := json.Unmarshal(data, &job); err != nil {
			return fmt.Errorf("decode job: %w", err)
		}
		job.Apply(patch, s.now())

		encoded, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("marshal job: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, s.ttl)
			return nil
		})
		return err
	}

	var err error
	for range maxUpdateAttempts {
		err = s.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, errJobMissing):
		s.logger.DebugContext(ctx, "update for unknown job ignored", "job_id", id)
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		s.logger.ErrorContext(ctx, "update job failed", "job_id", id, "error", err)
		return nil
	}
}
