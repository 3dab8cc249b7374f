package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/inkwell-app/inkwell/internal/core"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the pipeline error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrAccessDenied):
		status = http.StatusForbidden
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrInvalidURL),
		errors.Is(err, core.ErrUnsupportedJobType):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrRetryLimit),
		errors.Is(err, core.ErrNoReferences):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
