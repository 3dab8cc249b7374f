package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-app/inkwell/internal/core"
	"github.com/inkwell-app/inkwell/internal/core/coretest"
	"github.com/inkwell-app/inkwell/internal/models"
)

func newJobService(db *coretest.MemStore, maxRetries int) (*JobService, *recordingDispatcher) {
	d := &recordingDispatcher{}
	return NewJobService(db, d, maxRetries), d
}

func TestEnqueue_CreatesJobAndSwapsCurrentPointer(t *testing.T) {
	db := coretest.NewMemStore()
	seedProject(t, db)
	seedReference(t, db, models.Reference{ID: "ref-1", Name: "notes.txt", Kind: models.KindText})
	svc, disp := newJobService(db, 5)

	job, err := svc.Enqueue(context.Background(), testOwner, "ref-1", models.JobTypeTextParse)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusQueued, job.Status)
	assert.Equal(t, 1, job.Attempt)
	assert.Equal(t, []string{job.ID}, disp.enqueued())

	ref, err := db.GetReferenceByID(context.Background(), "ref-1")
	require.NoError(t, err)
	assert.Equal(t, job.ID, ref.CurrentJobID)
	assert.Equal(t, models.RefStatusQueued, ref.Status)
}

func TestEnqueue_DerivesJobTypeFromKind(t *testing.T) {
	db := coretest.NewMemStore()
	seedProject(t, db)
	seedReference(t, db, models.Reference{ID: "ref-yt", Kind: models.KindYouTube})
	svc, _ := newJobService(db, 5)

	job, err := svc.Enqueue(context.Background(), testOwner, "ref-yt", "")
	require.NoError(t, err)
	assert.Equal(t, models.JobTypeYouTube, job.JobType)
}

func TestEnqueue_NonexistentReference(t *testing.T) {
	db := coretest.NewMemStore()
	seedProject(t, db)
	svc, disp := newJobService(db, 5)

	_, err := svc.Enqueue(context.Background(), testOwner, "ghost", models.JobTypeTextParse)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Empty(t, disp.enqueued())

	jobs, _ := db.ListJobsByReference(context.Background(), "ghost")
	assert.Empty(t, jobs, "no job row may be created for a missing reference")
}

func TestEnqueue_AccessDenied(t *testing.T) {
	db := coretest.NewMemStore()
	seedProject(t, db)
	seedReference(t, db, models.Reference{ID: "ref-1", Kind: models.KindText})
	svc, _ := newJobService(db, 5)

	_, err := svc.Enqueue(context.Background(), "user-intruder", "ref-1", models.JobTypeTextParse)
	assert.ErrorIs(t, err, core.ErrAccessDenied)
}

func TestEnqueue_UnknownJobType(t *testing.T) {
	db := coretest.NewMemStore()
	seedProject(t, db)
	seedReference(t, db, models.Reference{ID: "ref-1", Kind: models.KindText})
	svc, _ := newJobService(db, 5)

	_, err := svc.Enqueue(context.Background(), testOwner, "ref-1", "spreadsheet_parse")
	assert.ErrorIs(t, err, core.ErrUnsupportedJobType)
}

func TestEnqueue_RetryIsAdditive(t *testing.T) {
	db := coretest.NewMemStore()
	seedProject(t, db)
	seedReference(t, db, models.Reference{ID: "ref-1", Name: "draft.pdf", Kind: models.KindPDF})
	svc, _ := newJobService(db, 5)
	ctx := context.Background()

	first, err := svc.Enqueue(ctx, testOwner, "ref-1", "")
	require.NoError(t, err)
	require.NoError(t, svc.Complete(ctx, first.ID, models.JobStatusFailed, "", "download failed", ""))

	second, err := svc.Enqueue(ctx, testOwner, "ref-1", "")
	require.NoError(t, err)
	assert.Equal(t, 2, second.Attempt)

	jobs, err := db.ListJobsByReference(ctx, "ref-1")
	require.NoError(t, err)
	require.Len(t, jobs, 2, "prior job row stays as history")
	assert.Equal(t, models.JobStatusFailed, jobs[0].Status)
	assert.Equal(t, models.JobStatusQueued, jobs[1].Status)

	ref, _ := db.GetReferenceByID(ctx, "ref-1")
	assert.Equal(t, second.ID, ref.CurrentJobID)
	assert.Equal(t, models.RefStatusQueued, ref.Status)
	assert.True(t, hasEvent(db, "extraction_retried"))
}

func TestEnqueue_RetryLimit(t *testing.T) {
	db := coretest.NewMemStore()
	seedProject(t, db)
	seedReference(t, db, models.Reference{ID: "ref-1", Kind: models.KindText})
	svc, _ := newJobService(db, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		job, err := svc.Enqueue(ctx, testOwner, "ref-1", "")
		require.NoError(t, err)
		require.NoError(t, svc.Complete(ctx, job.ID, models.JobStatusFailed, "", "boom", ""))
	}

	_, err := svc.Enqueue(ctx, testOwner, "ref-1", "")
	assert.ErrorIs(t, err, core.ErrRetryLimit)
}

func TestComplete_SucceededMirrorsReference(t *testing.T) {
	db := coretest.NewMemStore()
	seedProject(t, db)
	seedReference(t, db, models.Reference{ID: "ref-1", Kind: models.KindText})
	svc, _ := newJobService(db, 5)
	ctx := context.Background()

	job, err := svc.Enqueue(ctx, testOwner, "ref-1", "")
	require.NoError(t, err)
	require.NoError(t, svc.Complete(ctx, job.ID, models.JobStatusSucceeded, "the text", "", `{"chars":8}`))

	ref, _ := db.GetReferenceByID(ctx, "ref-1")
	assert.Equal(t, models.RefStatusDone, ref.Status)
	assert.Equal(t, "the text", ref.ExtractedText)

	done, _ := db.GetJobByID(ctx, job.ID)
	assert.Equal(t, models.JobStatusSucceeded, done.Status)
	assert.NotNil(t, done.FinishedAt)
}

func TestComplete_StaleCallbackLeavesReferenceUntouched(t *testing.T) {
	db := coretest.NewMemStore()
	seedProject(t, db)
	seedReference(t, db, models.Reference{ID: "ref-1", Kind: models.KindText})
	svc, _ := newJobService(db, 5)
	ctx := context.Background()

	first, err := svc.Enqueue(ctx, testOwner, "ref-1", "")
	require.NoError(t, err)
	// A retry supersedes the first job before its callback lands.
	second, err := svc.Enqueue(ctx, testOwner, "ref-1", "")
	require.NoError(t, err)

	require.NoError(t, svc.Complete(ctx, first.ID, models.JobStatusSucceeded, "stale text", "", ""))

	ref, _ := db.GetReferenceByID(ctx, "ref-1")
	assert.Equal(t, second.ID, ref.CurrentJobID)
	assert.Equal(t, models.RefStatusQueued, ref.Status)
	assert.Empty(t, ref.ExtractedText, "stale callback must not mirror onto the reference")

	stale, _ := db.GetJobByID(ctx, first.ID)
	assert.Equal(t, models.JobStatusSucceeded, stale.Status, "the stale job row itself still goes terminal")
}

func TestComplete_TerminalJobIsImmutable(t *testing.T) {
	db := coretest.NewMemStore()
	seedProject(t, db)
	seedReference(t, db, models.Reference{ID: "ref-1", Kind: models.KindText})
	svc, _ := newJobService(db, 5)
	ctx := context.Background()

	job, err := svc.Enqueue(ctx, testOwner, "ref-1", "")
	require.NoError(t, err)
	require.NoError(t, svc.Complete(ctx, job.ID, models.JobStatusSucceeded, "the text", "", ""))

	// A repeated or conflicting callback cannot rewrite a terminal row.
	err = svc.Complete(ctx, job.ID, models.JobStatusFailed, "", "late failure", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already terminal")

	done, _ := db.GetJobByID(ctx, job.ID)
	assert.Equal(t, models.JobStatusSucceeded, done.Status)
	assert.Empty(t, done.ErrorMessage)

	ref, _ := db.GetReferenceByID(ctx, "ref-1")
	assert.Equal(t, models.RefStatusDone, ref.Status)
	assert.Equal(t, "the text", ref.ExtractedText)
}

func TestComplete_RejectsInvalidTerminalStatus(t *testing.T) {
	db := coretest.NewMemStore()
	svc, _ := newJobService(db, 5)

	err := svc.Complete(context.Background(), "job-1", models.JobStatusRunning, "", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid terminal status")
}

func TestComplete_SucceededRequiresText(t *testing.T) {
	db := coretest.NewMemStore()
	svc, _ := newJobService(db, 5)

	err := svc.Complete(context.Background(), "job-1", models.JobStatusSucceeded, "", "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without extracted text")
}

func TestGetJob_ChecksAccess(t *testing.T) {
	db := coretest.NewMemStore()
	seedProject(t, db)
	seedReference(t, db, models.Reference{ID: "ref-1", Kind: models.KindText})
	svc, _ := newJobService(db, 5)
	ctx := context.Background()

	job, err := svc.Enqueue(ctx, testOwner, "ref-1", "")
	require.NoError(t, err)

	got, err := svc.GetJob(ctx, testOwner, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)

	_, err = svc.GetJob(ctx, "user-intruder", job.ID)
	assert.ErrorIs(t, err, core.ErrAccessDenied)

	_, err = svc.GetJob(ctx, testOwner, "ghost")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
