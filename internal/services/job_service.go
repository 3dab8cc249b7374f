package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/inkwell-app/inkwell/internal/core"
	"github.com/inkwell-app/inkwell/internal/models"
)

// JobDispatcher hands a persisted job to the worker pool. Satisfied by
// workers.Dispatcher; tests substitute their own.
type JobDispatcher interface {
	Enqueue(jobID string)
}

var knownJobTypes = map[string]bool{
	models.JobTypeTextParse:       true,
	models.JobTypePDFParse:        true,
	models.JobTypeDocxParse:       true,
	models.JobTypeImageParse:      true,
	models.JobTypeAudioTranscribe: true,
	models.JobTypeVideoTranscribe: true,
	models.JobTypeYouTube:         true,
	models.JobTypeURLParse:        true,
}

// JobService owns the extraction job queue: creating job rows, starting
// dispatch, and landing worker callbacks.
type JobService struct {
	db         core.DbClient
	dispatcher JobDispatcher
	maxRetries int
}

func NewJobService(db core.DbClient, dispatcher JobDispatcher, maxRetries int) *JobService {
	return &JobService{db: db, dispatcher: dispatcher, maxRetries: maxRetries}
}

// Enqueue creates a new job row for the reference and starts its dispatch.
// It returns once dispatch has been started, not completed. Retrying a failed
// reference is this same call again: purely additive, the prior job rows stay
// untouched as history.
func (s *JobService) Enqueue(ctx context.Context, userID, referenceID, jobType string) (*models.ExtractionJob, error) {
	ref, err := s.db.GetReferenceByID(ctx, referenceID)
	if err != nil {
		return nil, fmt.Errorf("load reference: %w", err)
	}
	if ref == nil {
		return nil, fmt.Errorf("reference %s: %w", referenceID, core.ErrNotFound)
	}

	ok, err := s.db.HasProjectAccess(ctx, ref.ProjectID, userID)
	if err != nil {
		return nil, fmt.Errorf("access check: %w", err)
	}
	if !ok {
		return nil, core.ErrAccessDenied
	}

	if jobType == "" {
		jobType, _ = models.JobTypeForKind(ref.Kind)
	}
	if !knownJobTypes[jobType] {
		return nil, fmt.Errorf("%w: %q", core.ErrUnsupportedJobType, jobType)
	}

	prior, err := s.db.ListJobsByReference(ctx, referenceID)
	if err != nil {
		return nil, fmt.Errorf("count prior jobs: %w", err)
	}
	attempt := len(prior) + 1
	if s.maxRetries > 0 && attempt > s.maxRetries {
		return nil, fmt.Errorf("%w: reference %s already has %d attempts", core.ErrRetryLimit, referenceID, len(prior))
	}

	job := &models.ExtractionJob{
		ID:          uuid.NewString(),
		ReferenceID: ref.ID,
		ProjectID:   ref.ProjectID,
		RequesterID: userID,
		JobType:     jobType,
		Status:      models.JobStatusQueued,
		Attempt:     attempt,
		CreatedAt:   time.Now(),
	}
	if err := s.db.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	// Swap the reference's current-job pointer so late callbacks from any
	// superseded job are detected and discarded.
	if err := s.db.MarkReferenceQueued(ctx, ref.ID, job.ID); err != nil {
		return nil, fmt.Errorf("queue reference: %w", err)
	}

	if attempt > 1 {
		s.recordEvent(ctx, ref.ProjectID, userID, "extraction_retried",
			fmt.Sprintf("retry %d for %q", attempt, ref.Name))
	}

	s.dispatcher.Enqueue(job.ID)
	return job, nil
}

// GetJob returns one job after checking project access.
func (s *JobService) GetJob(ctx context.Context, userID, jobID string) (*models.ExtractionJob, error) {
	job, err := s.db.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		return nil, fmt.Errorf("job %s: %w", jobID, core.ErrNotFound)
	}
	ok, err := s.db.HasProjectAccess(ctx, job.ProjectID, userID)
	if err != nil {
		return nil, fmt.Errorf("access check: %w", err)
	}
	if !ok {
		return nil, core.ErrAccessDenied
	}
	return job, nil
}

// Complete lands a worker's terminal outcome: the job row always goes
// terminal; the parent reference is mirrored only while this job is still its
// current job. This is the single writer of terminal reference state.
func (s *JobService) Complete(ctx context.Context, jobID, status, extractedText, errorMessage, workerResponse string) error {
	if status != models.JobStatusSucceeded && status != models.JobStatusFailed {
		return fmt.Errorf("invalid terminal status %q", status)
	}
	if status == models.JobStatusSucceeded && extractedText == "" {
		return fmt.Errorf("succeeded callback without extracted text for job %s", jobID)
	}

	job, err := s.db.GetJobByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		return fmt.Errorf("job %s: %w", jobID, core.ErrNotFound)
	}

	mirrored, err := s.db.CompleteJob(ctx, core.CompleteJobParams{
		JobID:          jobID,
		Status:         status,
		ExtractedText:  extractedText,
		ErrorMessage:   errorMessage,
		WorkerResponse: workerResponse,
		FinishedAt:     time.Now(),
	})
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if !mirrored {
		log.Printf("job %s finished %s but was superseded; reference left untouched", jobID, status)
	}
	return nil
}

func (s *JobService) recordEvent(ctx context.Context, projectID, actorID, eventType, detail string) {
	evt := &models.TimelineEvent{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		ActorID:   actorID,
		EventType: eventType,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
	if err := s.db.RecordEvent(ctx, evt); err != nil {
		log.Printf("record timeline event: %v", err)
	}
}
