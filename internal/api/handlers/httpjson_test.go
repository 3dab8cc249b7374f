package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-app/inkwell/internal/core"
)

func TestWriteError_MapsTaxonomyToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{core.ErrAccessDenied, http.StatusForbidden},
		{fmt.Errorf("reference abc: %w", core.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: %q", core.ErrInvalidURL, "nope"), http.StatusBadRequest},
		{fmt.Errorf("%w: %q", core.ErrUnsupportedJobType, "csv_parse"), http.StatusBadRequest},
		{fmt.Errorf("%w: 5 attempts", core.ErrRetryLimit), http.StatusUnprocessableEntity},
		{core.ErrNoReferences, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: model down", core.ErrProviderFailure), http.StatusInternalServerError},
		{fmt.Errorf("plain failure"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, tc.err)
		assert.Equal(t, tc.want, rec.Code, tc.err.Error())
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tc.err.Error(), body["error"])
	}
}

func TestWriteJSON_SetsHeaderAndStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusAccepted, map[string]any{"job_id": "j1", "queued": true})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"job_id":"j1","queued":true}`, rec.Body.String())
}
