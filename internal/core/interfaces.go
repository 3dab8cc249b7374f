package core

import (
	"context"
	"io"
	"time"

	"github.com/inkwell-app/inkwell/internal/models"
)

// CompleteJobParams carries a worker's terminal outcome for one job.
type CompleteJobParams struct {
	JobID          string
	Status         string // succeeded | failed
	ExtractedText  string
	ErrorMessage   string
	WorkerResponse string
	FinishedAt     time.Time
}

// DbClient defines all persistence operations the services need.
// It abstracts Postgres so higher layers never depend on a specific DB.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateProject(ctx context.Context, p *models.Project) error
	GetProjectByID(ctx context.Context, id string) (*models.Project, error)
	HasProjectAccess(ctx context.Context, projectID, userID string) (bool, error)
	AddProjectMember(ctx context.Context, projectID, userID string) error

	CreateReference(ctx context.Context, ref *models.Reference) error
	GetReferenceByID(ctx context.Context, id string) (*models.Reference, error)
	ListReferencesByProject(ctx context.Context, projectID string) ([]models.Reference, error)
	DeleteReference(ctx context.Context, id string) error
	// MarkReferenceQueued flips the reference to "queued" and swaps its
	// current-job pointer to jobID in one statement.
	MarkReferenceQueued(ctx context.Context, refID, jobID string) error

	CreateJob(ctx context.Context, job *models.ExtractionJob) error
	GetJobByID(ctx context.Context, id string) (*models.ExtractionJob, error)
	ListJobsByReference(ctx context.Context, referenceID string) ([]models.ExtractionJob, error)
	ListJobsByProject(ctx context.Context, projectID string) ([]models.ExtractionJob, error)
	ListQueuedJobs(ctx context.Context) ([]models.ExtractionJob, error)
	// StartJob marks the job running and, when the job is still the
	// reference's current job, the reference extracting.
	StartJob(ctx context.Context, jobID string, startedAt time.Time) error
	// CompleteJob writes the terminal job state and mirrors the outcome onto
	// the parent reference, in one transaction. The reference is only touched
	// while its current_job_id still points at this job; the returned bool
	// reports whether the mirror write happened.
	CompleteJob(ctx context.Context, p CompleteJobParams) (bool, error)

	CreateVersion(ctx context.Context, v *models.Version) error
	ListVersionsByProject(ctx context.Context, projectID string) ([]models.Version, error)

	RecordEvent(ctx context.Context, e *models.TimelineEvent) error

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
// It's abstract so you can replace AWS with MinIO, GCP, etc. easily.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)

	GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// LLMProvider is the generative backend. All three calls return the model's
// plain-text reply; an empty reply means the model returned no usable
// candidates (callers decide whether that is an error).
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	// GenerateWithBlob sends the prompt together with inline binary data
	// (document page images, audio, video) to a multimodal model.
	GenerateWithBlob(ctx context.Context, prompt, mimeType string, data []byte) (string, error)
	// GenerateWithFileURI sends the prompt with a remote file reference
	// (e.g. a YouTube URL) instead of inline bytes.
	GenerateWithFileURI(ctx context.Context, prompt, mimeType, uri string) (string, error)
}
