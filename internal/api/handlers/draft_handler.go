package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	middleware "github.com/inkwell-app/inkwell/internal/api/middlewares"
	"github.com/inkwell-app/inkwell/internal/services"
)

type DraftHandler struct {
	drafts *services.DraftService
}

func NewDraftHandler(drafts *services.DraftService) *DraftHandler {
	return &DraftHandler{drafts: drafts}
}

type generateRequest struct {
	Goal             string   `json:"goal"`
	LLMChat          string   `json:"llm_chat"`
	Vocabulary       []string `json:"vocabulary"`
	ReferenceFileIDs []string `json:"reference_file_ids"`
}

func (h *DraftHandler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	projectID := chi.URLParam(r, "id")

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	result, err := h.drafts.GenerateVersions(r.Context(), userID, projectID, req.Goal, req.LLMChat, req.Vocabulary, req.ReferenceFileIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"raw_version_id":   result.RawVersion.ID,
		"draft_version_id": result.DraftVersion.ID,
		"status":           "completed",
	})
}

type regenerateRequest struct {
	ConsolidatedBlob string `json:"consolidated_blob"`
	LLMChat          string `json:"llm_chat"`
}

func (h *DraftHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	projectID := chi.URLParam(r, "id")

	var req regenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ConsolidatedBlob == "" {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	result, err := h.drafts.Regenerate(r.Context(), userID, projectID, req.ConsolidatedBlob, req.LLMChat)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"raw_version_id":   result.RawVersion.ID,
		"draft_version_id": result.DraftVersion.ID,
		"status":           "completed",
	})
}

func (h *DraftHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	projectID := chi.URLParam(r, "id")

	versions, err := h.drafts.ListVersions(r.Context(), userID, projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, versions)
}
