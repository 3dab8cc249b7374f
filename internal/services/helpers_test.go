package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inkwell-app/inkwell/internal/core"
	"github.com/inkwell-app/inkwell/internal/core/coretest"
	"github.com/inkwell-app/inkwell/internal/models"
)

// recordingDispatcher captures enqueued job ids instead of running them.
type recordingDispatcher struct {
	mu  sync.Mutex
	ids []string
}

func (d *recordingDispatcher) Enqueue(jobID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, jobID)
}

func (d *recordingDispatcher) enqueued() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.ids))
	copy(out, d.ids)
	return out
}

const (
	testOwner   = "user-owner"
	testProject = "proj-1"
	testBucket  = "inkwell-test"
)

func seedProject(t *testing.T, db *coretest.MemStore) {
	t.Helper()
	require.NoError(t, db.CreateProject(context.Background(), &models.Project{
		ID:       testProject,
		OwnerID:  testOwner,
		Title:    "Test Project",
		Goal:     "newsletter",
		Language: "English",
	}))
}

func seedReference(t *testing.T, db *coretest.MemStore, ref models.Reference) {
	t.Helper()
	if ref.ProjectID == "" {
		ref.ProjectID = testProject
	}
	if ref.Status == "" {
		ref.Status = models.RefStatusQueued
	}
	ref.CreatedAt = time.Now()
	ref.UpdatedAt = ref.CreatedAt
	require.NoError(t, db.CreateReference(context.Background(), &ref))
}

func coreCompleteParams(jobID string) core.CompleteJobParams {
	return core.CompleteJobParams{
		JobID:         jobID,
		Status:        models.JobStatusSucceeded,
		ExtractedText: "done",
		FinishedAt:    time.Now(),
	}
}

func hasEvent(db *coretest.MemStore, eventType string) bool {
	for _, e := range db.Events() {
		if e.EventType == eventType {
			return true
		}
	}
	return false
}
