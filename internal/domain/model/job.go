// Package model defines the core data types shared by the verification job queue.
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// JobStatus represents the current status of a verification job.
type JobStatus string

// Tier is a named verification strictness level. It is passed through to the engine untouched.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type Tier string

const (
	// JobStatusPending indicates a job was created and has not been picked up yet.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the verification call has been issued.
	JobStatusRunning JobStatus = "running"
	// JobStatusDone indicates the verification call returned a result.
	JobStatusDone JobStatus = "done"
	// JobStatusError indicates the verification call failed.
	JobStatusError JobStatus = "error"

	// TierBasic is the default, cheaper verification tier.
	TierBasic Tier = "basic"
	// TierPro is the stricter, more expensive verification tier.
	TierPro Tier = "pro"
)

// ErrJobNotFound is returned when a job does not exist or has expired.
var ErrJobNotFound = errors.New("job not found")

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusPending || s == JobStatusRunning || s == JobStatusDone || s == JobStatusError
}

// Terminal reports whether no further transitions happen from this status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusError
}

// Valid returns true if the Tier is known.
func (t Tier) Valid() bool {
	return t == TierBasic || t == TierPro
}

// UnmarshalText implements encoding.TextUnmarshaler for Tier.
// Tiers are case-sensitive, matching request validation.
func (t *Tier) UnmarshalText(text []byte) error {
	v := Tier(text)
	if !v.Valid() {
		return fmt.Errorf("invalid tier: %q", v)
	}
	*t = v
	return nil
}

// JobInput is the immutable request captured when a job is created.
type JobInput struct {
	Output      string `json:"output"`
	Question    string `json:"question"`
	Tier        Tier   `json:"tier"`
	CallbackURL string `json:"callbackUrl,omitempty"`
}

// Job is a single unit of asynchronous verification work.
//
// Result is populated only when Status is done, Error only when Status is error.
type Job struct {
	ID        string          `json:"id"`
	Status    JobStatus       `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Input     JobInput        `json:"input"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// NewJob builds a pending job stamped with now.
func NewJob(id string, input JobInput, now time.Time) Job {
	return Job{
		ID:        id,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		Input:     input,
	}
}

// Clone returns a copy that shares no mutable memory with j.
func (j Job) Clone() Job {
	out := j
	if j.Result != nil {
		out.Result = bytes.Clone(j.Result)
	}
	return out
}

// JobPatch is a partial update merged into a stored job.
// Nil fields are left untouched.
type JobPatch struct {
	Status *JobStatus
	Result json.RawMessage
	Error  *string
}

// RunningPatch marks a job as picked up by the runner.
func RunningPatch() JobPatch {
	s := JobStatusRunning
	return JobPatch{Status: &s}
}

// DonePatch records a successful verification result.
func DonePatch(result json.RawMessage) JobPatch {
	s := JobStatusDone
	return JobPatch{Status: &s, Result: result}
}

// ErrorPatch records a failed verification with its message.
func ErrorPatch(msg string) JobPatch {
	s := JobStatusError
	return JobPatch{Status: &s, Error: &msg}
}

// Apply merges p into j and refreshes UpdatedAt.
// Result and Error are reconciled with the resulting status so that at most one is set.
func (j *Job) Apply(p JobPatch, now time.Time) {
	if p.Status != nil {
		j.Status = *p.Status
	}
	if p.Result != nil {
		j.Result = bytes.Clone(p.Result)
	}
	if p.Error != nil {
		j.Error = *p.Error
	}

	switch j.Status {
	case JobStatusDone:
		j.Error = ""
	case JobStatusError:
		j.Result = nil
	case JobStatusPending, JobStatusRunning:
		j.Result = nil
		j.Error = ""
	}

	if now.Before(j.CreatedAt) {
		now = j.CreatedAt
	}
	if now.After(j.UpdatedAt) {
		j.UpdatedAt = now
	}
}

// VerifyParams carries the engine parameters that are not persisted with the job.
type VerifyParams struct {
	Tier     Tier
	Question string
	APIKeys  map[string]string
}

// WebhookPayload is the body POSTed to a job's callback URL on completion.
type WebhookPayload struct {
	JobID  string          `json:"jobId"`
	Status JobStatus       `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// NewWebhookPayload builds the completion notification for a terminal job.
func NewWebhookPayload(j Job) WebhookPayload {
	return WebhookPayload{
		JobID:  j.ID,
		Status: j.Status,
		Result: j.Result,
		Error:  j.Error,
	}
}
