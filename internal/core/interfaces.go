package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/target/verifyd/internal/domain/model"
)

// This file contains the port definitions for the verification job queue.
// Services depend on these interfaces; backends and external clients implement them.

// JobStore persists verification jobs. Both the in-memory and the Redis backend implement it
// and must behave identically.
//
// GetJob returns model.ErrJobNotFound for unknown or expired ids.
// UpdateJob on an unknown id is a no-op and returns nil.
// Implementations return copies; mutating a returned job never changes stored state.
type JobStore interface {
	CreateJob(ctx context.Context, input model.JobInput) (model.Job, error)
	GetJob(ctx context.Context, id string) (model.Job, error)
	UpdateJob(ctx context.Context, id string, patch model.JobPatch) error
}

// ExpiringJobStore is implemented by backends without native expiry.
type ExpiringJobStore interface {
	JobStore
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error)
	// Len reports how many jobs are currently held.
	Len() int
}

// Verifier is the external verification engine. Its behaviour is opaque to the queue.
type Verifier interface {
	Verify(ctx context.Context, output string, params model.VerifyParams) (json.RawMessage, error)
}

// WebhookSender delivers a single completion notification.
type WebhookSender interface {
	Deliver(ctx context.Context, url string, payload model.WebhookPayload) error
}
