package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/quarterpin/oraclebot/internal/domain"
)

// JobGetter defines the store methods the job handler needs.
type JobGetter interface {
	GetByID(ctx context.Context, id string) (domain.AnalysisJob, error)
}

// JobHandler serves analysis job status endpoints.
type JobHandler struct {
	jobs   JobGetter
	logger *slog.Logger
}

// NewJobHandler creates a JobHandler.
func NewJobHandler(jobs JobGetter, logger *slog.Logger) *JobHandler {
	return &JobHandler{jobs: jobs, logger: logger}
}

// Get returns a single analysis job by its ID.
// GET /api/jobs/{id}
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing job id")
		return
	}

	job, err := h.jobs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get job failed",
			slog.String("job_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get job")
		return
	}

	writeJSON(w, http.StatusOK, job)
}
