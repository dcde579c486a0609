package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/verifyd/internal/core"
	"github.com/target/verifyd/internal/observability/metrics"
	"github.com/target/verifyd/internal/observability/statsd"
)

const (
	// DefaultSweepInterval is how often the in-memory store is swept.
	DefaultSweepInterval = 10 * time.Minute
	// DefaultMemoryRetention is how long a job lives in the in-memory store.
	DefaultMemoryRetention = time.Hour
)

// SweeperServiceOptions groups dependencies for SweeperService.
type SweeperServiceOptions struct {
	Store     core.ExpiringJobStore // Required: store without native expiry
	Interval  time.Duration         // Optional: defaults to DefaultSweepInterval
	Retention time.Duration         // Optional: defaults to DefaultMemoryRetention
	Now       func() time.Time      // Optional: clock override
	NoJitter  bool                  // Optional: start the first sweep immediately
	Logger    *slog.Logger          // Optional: structured logger
	Metrics   statsd.Sink           // Optional: metrics sink (StatsD-compatible)
}

// SweeperService deletes in-memory jobs once they are older than the retention window,
// whatever their status. Age is measured from creation, not from the last update.
type SweeperService struct {
	store     core.ExpiringJobStore
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
	noJitter  bool
	logger    *slog.Logger
	metrics   statsd.Sink
}

// NewSweeperService constructs a new SweeperService.
func NewSweeperService(opts SweeperServiceOptions) (*SweeperService, error) {
	if opts.Store == nil {
		return nil, errors.New("ExpiringJobStore is required")
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	retention := opts.Retention
	if retention <= 0 {
		retention = DefaultMemoryRetention
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "sweeper_service")
	logger.Debug("SweeperService initialized", "interval", interval, "retention", retention)

	return &SweeperService{
		store:     opts.Store,
		interval:  interval,
		retention: retention,
		now:       now,
		noJitter:  opts.NoJitter,
		logger:    logger,
		metrics:   opts.Metrics,
	}, nil
}

// Run sweeps at the configured interval until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *SweeperService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting sweeper service",
		"interval", s.interval,
		"retention", s.retention,
	)

	// Stagger replicas that start together.
	if !s.noJitter {
		s.waitWithJitter(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "sweeper service stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil && !isContextCancellation(err) {
				s.logger.ErrorContext(ctx, "sweep failed", "error", err)
			}
		}
	}
}

// SweepOnce deletes every job created before now minus the retention window.
func (s *SweeperService) SweepOnce(ctx context.Context) (int, error) {
	start := time.Now()
	cutoff := s.now().Add(-s.retention)

	deleted, err := s.store.DeleteCreatedBefore(ctx, cutoff)
	retained := s.store.Len()
	metrics.EmitSweep(s.metrics, deleted, retained, time.Since(start), suppressContextCancellation(err))
	if err != nil {
		return deleted, fmt.Errorf("delete expired jobs: %w", err)
	}

	if deleted > 0 {
		s.logger.InfoContext(ctx, "swept expired jobs",
			"count", deleted,
			"retained", retained,
			"cutoff", cutoff,
		)
	}
	return deleted, nil
}

// waitWithJitter adds a random delay up to 10% of the interval.
func (s *SweeperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	timer := time.NewTimer(jitter)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func suppressContextCancellation(err error) error {
	if isContextCancellation(err) {
		return nil
	}
	return err
}
