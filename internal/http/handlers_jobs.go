package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/target/verifyd/internal/domain/model"
	apperrors "github.com/target/verifyd/internal/errors"
	"github.com/target/verifyd/internal/service"
)

// JobHandlers provides HTTP handlers for job-related operations.
type JobHandlers struct {
	Svc    *service.JobService
	Logger *slog.Logger
}

// GetByID handles GET /v1/jobs/{id}.
func (h *JobHandlers) GetByID(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	job, err := h.Svc.GetJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "job_not_found", Err: err})
			return
		}
		if h.Logger != nil {
			h.Logger.ErrorContext(r.Context(), "job lookup failed", "job_id", id, "error", err)
		}
		writeAppError(w, "job_lookup_failed", apperrors.MapContextError(err))
		return
	}

	WriteJSON(w, http.StatusOK, job)
}
