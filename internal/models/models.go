package models

import (
	"time"
)

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Project groups references, jobs and generated versions for one piece of content.
type Project struct {
	ID        string    `db:"id" json:"id"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	Title     string    `db:"title" json:"title"`
	Goal      string    `db:"goal" json:"goal"`         // newsletter | blog_post | story | ...
	Language  string    `db:"language" json:"language"` // target output language
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Reference statuses.
const (
	RefStatusQueued     = "queued"
	RefStatusExtracting = "extracting"
	RefStatusDone       = "done"
	RefStatusFailed     = "failed"
)

// Reference kinds (source material types).
const (
	KindText    = "plain-text"
	KindPDF     = "pdf"
	KindDocx    = "docx"
	KindImage   = "image"
	KindAudio   = "audio"
	KindVideo   = "video"
	KindYouTube = "youtube"
	KindURL     = "url"
)

// Reference is one unit of ingested source material: an uploaded file,
// a pasted text, or a link. extracted_text is non-empty iff status is "done";
// error_text is non-empty only when status is "failed".
type Reference struct {
	ID            string            `db:"id" json:"id"`
	ProjectID     string            `db:"project_id" json:"project_id"`
	UploaderID    string            `db:"uploader_id" json:"uploader_id"`
	StoragePath   string            `db:"storage_path" json:"storage_path"` // S3 key or original link
	Name          string            `db:"name" json:"name"`
	Kind          string            `db:"kind" json:"kind"`
	SizeBytes     int64             `db:"size_bytes" json:"size_bytes"`
	Status        string            `db:"status" json:"status"`
	ErrorText     string            `db:"error_text" json:"error_text,omitempty"`
	ExtractedText string            `db:"extracted_text" json:"extracted_text,omitempty"`
	Chunks        []string          `db:"chunks" json:"chunks,omitempty"`
	Metadata      map[string]string `db:"metadata" json:"metadata,omitempty"`
	UsageNotes    string            `db:"usage_notes" json:"usage_notes,omitempty"`
	CurrentJobID  string            `db:"current_job_id" json:"current_job_id,omitempty"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`
}

// ExtractionJob statuses. Strictly linear: queued -> running -> {succeeded, failed}.
const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
)

// Job types (strategy selectors).
const (
	JobTypeTextParse       = "txt_parse"
	JobTypePDFParse        = "pdf_parse"
	JobTypeDocxParse       = "docx_parse"
	JobTypeImageParse      = "image_parse"
	JobTypeAudioTranscribe = "audio_transcribe"
	JobTypeVideoTranscribe = "video_transcribe"
	JobTypeYouTube         = "youtube_transcribe"
	JobTypeURLParse        = "url_parse"
)

// ExtractionJob is one attempt to convert a Reference into text. A retry
// creates a new row rather than mutating an old one, so job rows accumulate
// as per-reference history.
type ExtractionJob struct {
	ID             string     `db:"id" json:"id"`
	ReferenceID    string     `db:"reference_id" json:"reference_id"`
	ProjectID      string     `db:"project_id" json:"project_id"`
	RequesterID    string     `db:"requester_id" json:"requester_id"`
	JobType        string     `db:"job_type" json:"job_type"`
	Status         string     `db:"status" json:"status"`
	Attempt        int        `db:"attempt" json:"attempt"`
	WorkerResponse string     `db:"worker_response" json:"worker_response,omitempty"`
	ErrorMessage   string     `db:"error_message" json:"error_message,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	StartedAt      *time.Time `db:"started_at" json:"started_at,omitempty"`
	FinishedAt     *time.Time `db:"finished_at" json:"finished_at,omitempty"`
}

// Version kinds.
const (
	VersionKindRaw   = "consolidated_raw"
	VersionKindDraft = "draft"
)

// Version is an immutable snapshot of project output: either the raw
// consolidated prompt blob or the generated draft.
type Version struct {
	ID        string    `db:"id" json:"id"`
	ProjectID string    `db:"project_id" json:"project_id"`
	Kind      string    `db:"kind" json:"kind"`
	Goal      string    `db:"goal" json:"goal"`
	Content   string    `db:"content" json:"content"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TimelineEvent is an audit record for a project action.
type TimelineEvent struct {
	ID        string    `db:"id" json:"id"`
	ProjectID string    `db:"project_id" json:"project_id"`
	ActorID   string    `db:"actor_id" json:"actor_id"`
	EventType string    `db:"event_type" json:"event_type"` // reference_added | extraction_retried | ...
	Detail    string    `db:"detail" json:"detail"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// JobTypeForKind maps a reference kind to the job type of its first
// extraction job.
func JobTypeForKind(kind string) (string, bool) {
	switch kind {
	case KindText:
		return JobTypeTextParse, true
	case KindPDF:
		return JobTypePDFParse, true
	case KindDocx:
		return JobTypeDocxParse, true
	case KindImage:
		return JobTypeImageParse, true
	case KindAudio:
		return JobTypeAudioTranscribe, true
	case KindVideo:
		return JobTypeVideoTranscribe, true
	case KindYouTube:
		return JobTypeYouTube, true
	case KindURL:
		return JobTypeURLParse, true
	default:
		return "", false
	}
}
