package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	middleware "github.com/inkwell-app/inkwell/internal/api/middlewares"
	"github.com/inkwell-app/inkwell/internal/config"
	"github.com/inkwell-app/inkwell/internal/core"
	"github.com/inkwell-app/inkwell/internal/services"
)

type ReferenceHandler struct {
	intake *services.IntakeService
	jobs   *services.JobService
	obj    core.ObjectClient
	cfg    *config.Config
}

func NewReferenceHandler(intake *services.IntakeService, jobs *services.JobService, obj core.ObjectClient, cfg *config.Config) *ReferenceHandler {
	return &ReferenceHandler{intake: intake, jobs: jobs, obj: obj, cfg: cfg}
}

// Upload handles a multipart file upload: store the blob, then register it as
// a reference and queue its first extraction job.
func (h *ReferenceHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	projectID := chi.URLParam(r, "id")

	if err := r.ParseMultipartForm(52 << 20); err != nil {
		http.Error(w, "invalid multipart body", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "invalid file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	kind := r.FormValue("kind")
	notes := r.FormValue("usage_notes")

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "read file", http.StatusBadRequest)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// Sanitize filename to prevent path traversal or invalid characters
	cleanFilename := filepath.Base(header.Filename)
	key := fmt.Sprintf("projects/%s/references/%s/%s", projectID, uuid.NewString(), cleanFilename)

	uploadCtx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	if _, err := h.obj.UploadFile(uploadCtx, h.cfg.BucketName, key, data, contentType); err != nil {
		http.Error(w, fmt.Sprintf("upload failed: %v", err), http.StatusInternalServerError)
		return
	}

	ref, err := h.intake.AddFile(uploadCtx, userID, projectID, key, header.Filename, kind, int64(len(data)), contentType, notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ref)
}

type addFileRequest struct {
	StoragePath string `json:"storage_path"`
	FileName    string `json:"file_name"`
	FileType    string `json:"file_type"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentType string `json:"content_type"`
	UsageNotes  string `json:"usage_notes"`
}

// AddFile registers a blob that was already uploaded to storage.
func (h *ReferenceHandler) AddFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	projectID := chi.URLParam(r, "id")

	var req addFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.StoragePath == "" || req.FileName == "" {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	ref, err := h.intake.AddFile(r.Context(), userID, projectID, req.StoragePath, req.FileName, req.FileType, req.SizeBytes, req.ContentType, req.UsageNotes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"reference_id": ref.ID})
}

type addTextRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

func (h *ReferenceHandler) AddText(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	projectID := chi.URLParam(r, "id")

	var req addTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	ref, err := h.intake.AddText(r.Context(), userID, projectID, req.Name, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"reference_id": ref.ID})
}

type addLinkRequest struct {
	URL string `json:"url"`
}

func (h *ReferenceHandler) AddLink(w http.ResponseWriter, r *http.Request) {
	h.addLink(w, r, false)
}

func (h *ReferenceHandler) AddYouTube(w http.ResponseWriter, r *http.Request) {
	h.addLink(w, r, true)
}

func (h *ReferenceHandler) addLink(w http.ResponseWriter, r *http.Request, youtube bool) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	projectID := chi.URLParam(r, "id")

	var req addLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	var (
		ref any
		err error
	)
	if youtube {
		ref, err = h.intake.AddYouTube(r.Context(), userID, projectID, req.URL)
	} else {
		ref, err = h.intake.AddLink(r.Context(), userID, projectID, req.URL)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ref)
}

func (h *ReferenceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	projectID := chi.URLParam(r, "id")

	refs, err := h.intake.ListReferences(r.Context(), userID, projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, refs)
}

func (h *ReferenceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	referenceID := chi.URLParam(r, "id")

	if err := h.intake.Delete(r.Context(), userID, referenceID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type retryRequest struct {
	JobType string `json:"job_type"`
}

// Retry queues a fresh extraction job for a (typically failed) reference.
func (h *ReferenceHandler) Retry(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	referenceID := chi.URLParam(r, "id")

	var req retryRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	job, err := h.jobs.Enqueue(r.Context(), userID, referenceID, req.JobType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"job_id": job.ID, "queued": true})
}
