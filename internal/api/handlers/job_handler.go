package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	middleware "github.com/inkwell-app/inkwell/internal/api/middlewares"
	"github.com/inkwell-app/inkwell/internal/services"
)

type JobHandler struct {
	jobs *services.JobService
}

func NewJobHandler(jobs *services.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	jobID := chi.URLParam(r, "id")

	job, err := h.jobs.GetJob(r.Context(), userID, jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

type completeRequest struct {
	JobID          string          `json:"job_id"`
	Status         string          `json:"status"`
	ExtractedText  string          `json:"extracted_text"`
	ErrorMessage   string          `json:"error_message"`
	WorkerResponse json.RawMessage `json:"worker_response"`
}

// Complete is the worker completion callback. In-process workers call the
// service directly; this route exists for out-of-process workers.
func (h *JobHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.JobID == "" {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	err := h.jobs.Complete(r.Context(), req.JobID, req.Status, req.ExtractedText, req.ErrorMessage, string(req.WorkerResponse))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
