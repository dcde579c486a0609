// Package httpx provides the HTTP API for synchronous and asynchronous verification.
package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/target/verifyd/internal/adapters/verifier"
	"github.com/target/verifyd/internal/core"
	"github.com/target/verifyd/internal/domain/model"
	apperrors "github.com/target/verifyd/internal/errors"
	"github.com/target/verifyd/internal/http/validation"
	"github.com/target/verifyd/internal/service"
)

// verifyRequest is the body accepted by both verify endpoints.
type verifyRequest struct {
	Output      string            `json:"output"                validate:"notblank"`
	Question    string            `json:"question"              validate:"notblank"`
	Tier        string            `json:"tier"                  validate:"required,oneof=basic pro"`
	CallbackURL string            `json:"callbackUrl,omitempty" validate:"omitempty,max=2048"`
	APIKeys     map[string]string `json:"apiKeys,omitempty"`
}

func (r verifyRequest) input() model.JobInput {
	return model.JobInput{
		Output:      r.Output,
		Question:    r.Question,
		Tier:        model.Tier(r.Tier),
		CallbackURL: strings.TrimSpace(r.CallbackURL),
	}
}

// asyncResponse is returned by POST /v1/verify/async.
type asyncResponse struct {
	JobID   string          `json:"jobId"`
	Status  model.JobStatus `json:"status"`
	PollURL string          `json:"pollUrl"`
}

// VerifyHandlers serves the verify endpoints.
type VerifyHandlers struct {
	Jobs            *service.JobService
	Runner          *service.JobRunner
	Verifier        core.Verifier
	Validator       *validation.Validator
	PrimaryProvider string
	EnvLookup       service.EnvLookup
	BaseURL         string
	Logger          *slog.Logger
}

// decode reads, validates and resolves credentials for a verify request.
// On failure the error response has already been written.
func (h *VerifyHandlers) decode(w http.ResponseWriter, r *http.Request) (verifyRequest, map[string]string, bool) {
	var req verifyRequest
	if !DecodeJSON(w, r, &req) {
		return verifyRequest{}, nil, false
	}

	v := h.Validator
	if v == nil {
		v = validation.Default()
	}
	if err := v.Struct(req); err != nil {
		writeAppError(w, "validation_failed", err)
		return verifyRequest{}, nil, false
	}

	keys := service.ResolveAPIKeys(req.APIKeys, h.EnvLookup)
	if err := service.ValidateAPIKeys(keys, h.PrimaryProvider); err != nil {
		writeAppError(w, "validation_failed", err)
		return verifyRequest{}, nil, false
	}

	return req, keys, true
}

// Verify handles POST /v1/verify: it blocks on the engine and returns its result.
func (h *VerifyHandlers) Verify(w http.ResponseWriter, r *http.Request) {
	req, keys, ok := h.decode(w, r)
	if !ok {
		return
	}

	result, err := h.Verifier.Verify(r.Context(), req.Output, model.VerifyParams{
		Tier:     model.Tier(req.Tier),
		Question: req.Question,
		APIKeys:  keys,
	})
	if err != nil {
		if mapped := apperrors.MapContextError(err); apperrors.IsTimeout(mapped) || apperrors.IsCanceled(mapped) {
			writeAppError(w, "verification_failed", mapped)
			return
		}
		h.logger().WarnContext(r.Context(), "synchronous verification failed",
			"tier", req.Tier,
			"providers", service.ProviderNames(keys),
			"error", err)
		writeAppError(w, "verification_failed", apperrors.Upstream(err, engineMessage(err)))
		return
	}

	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	WriteJSON(w, http.StatusOK, result)
}

// VerifyAsync handles POST /v1/verify/async: it creates a job, starts it in the
// background and answers 202 with a poll handle.
func (h *VerifyHandlers) VerifyAsync(w http.ResponseWriter, r *http.Request) {
	req, keys, ok := h.decode(w, r)
	if !ok {
		return
	}

	job, err := h.Jobs.CreateJob(r.Context(), req.input())
	if err != nil {
		h.logger().ErrorContext(r.Context(), "create job failed", "error", err)
		writeAppError(w, "job_create_failed", apperrors.MapContextError(err))
		return
	}

	h.Runner.Submit(r.Context(), job, keys)

	WriteJSON(w, http.StatusAccepted, asyncResponse{
		JobID:   job.ID,
		Status:  model.JobStatusPending,
		PollURL: pollURL(h.BaseURL, job.ID),
	})
}

func (h *VerifyHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// pollURL is relative unless a public base URL is configured.
func pollURL(base, id string) string {
	return strings.TrimRight(base, "/") + "/v1/jobs/" + id
}

// engineMessage extracts the human-readable message the engine reported.
func engineMessage(err error) string {
	var ve *verifier.Error
	if errors.As(err, &ve) && strings.TrimSpace(ve.Message) != "" {
		return ve.Message
	}
	return "verification failed"
}

// writeAppError renders err with the status derived from its AppError code.
func writeAppError(w http.ResponseWriter, errCode string, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		WriteError(w, ErrorParams{Code: apperrors.HTTPStatus(err), ErrCode: errCode, Err: errors.New(appErr.Message)})
		return
	}
	WriteError(w, ErrorParams{Code: apperrors.HTTPStatus(err), ErrCode: errCode, Err: err})
}
