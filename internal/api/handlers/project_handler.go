package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	middleware "github.com/inkwell-app/inkwell/internal/api/middlewares"
	"github.com/inkwell-app/inkwell/internal/core"
	"github.com/inkwell-app/inkwell/internal/models"
	"github.com/inkwell-app/inkwell/internal/services"
)

type ProjectHandler struct {
	dbclient core.DbClient
	status   *services.StatusService
}

func NewProjectHandler(dbclient core.DbClient, status *services.StatusService) *ProjectHandler {
	return &ProjectHandler{dbclient: dbclient, status: status}
}

type createProjectRequest struct {
	Title    string `json:"title"`
	Goal     string `json:"goal"`
	Language string `json:"language"`
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.Goal != "" && !services.ValidGoal(req.Goal) {
		http.Error(w, "unknown goal", http.StatusBadRequest)
		return
	}

	now := time.Now()
	project := &models.Project{
		ID:        uuid.NewString(),
		OwnerID:   userID,
		Title:     req.Title,
		Goal:      req.Goal,
		Language:  req.Language,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.dbclient.CreateProject(r.Context(), project); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

// Status reports the project-wide extraction job counts and the ready-to-
// consolidate signal. Clients poll it after upload/retry/delete actions.
func (h *ProjectHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	projectID := chi.URLParam(r, "id")

	hasAccess, err := h.dbclient.HasProjectAccess(r.Context(), projectID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !hasAccess {
		writeError(w, core.ErrAccessDenied)
		return
	}

	st, err := h.status.ProjectStatus(r.Context(), projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
