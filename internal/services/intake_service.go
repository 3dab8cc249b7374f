package services

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/inkwell-app/inkwell/internal/core"
	"github.com/inkwell-app/inkwell/internal/models"
)

// IntakeService creates reference records for uploaded files, pasted text and
// links, and queues the first extraction job for each.
type IntakeService struct {
	db     core.DbClient
	obj    core.ObjectClient
	jobs   *JobService
	bucket string
}

func NewIntakeService(db core.DbClient, obj core.ObjectClient, jobs *JobService, bucket string) *IntakeService {
	return &IntakeService{db: db, obj: obj, jobs: jobs, bucket: bucket}
}

// AddFile registers an already-uploaded blob as a reference and queues its
// first extraction job.
func (s *IntakeService) AddFile(ctx context.Context, userID, projectID, storagePath, name, kind string, sizeBytes int64, contentType, usageNotes string) (*models.Reference, error) {
	jobType, ok := models.JobTypeForKind(kind)
	if !ok || kind == models.KindURL || kind == models.KindYouTube {
		return nil, fmt.Errorf("unsupported file kind %q", kind)
	}

	var meta map[string]string
	if contentType != "" {
		meta = map[string]string{"content_type": contentType}
	}
	return s.create(ctx, userID, projectID, &models.Reference{
		StoragePath: storagePath,
		Name:        name,
		Kind:        kind,
		SizeBytes:   sizeBytes,
		Metadata:    meta,
		UsageNotes:  usageNotes,
	}, jobType)
}

// AddText uploads pasted text to object storage itself, then registers it
// like any other file.
func (s *IntakeService) AddText(ctx context.Context, userID, projectID, name, content string) (*models.Reference, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("empty text content")
	}
	if name == "" {
		name = "pasted-text.txt"
	}

	key := s.objectKey(projectID, uuid.NewString(), name)
	if _, err := s.obj.UploadFile(ctx, s.bucket, key, []byte(content), "text/plain; charset=utf-8"); err != nil {
		return nil, fmt.Errorf("store pasted text: %w", err)
	}

	return s.create(ctx, userID, projectID, &models.Reference{
		StoragePath: key,
		Name:        name,
		Kind:        models.KindText,
		SizeBytes:   int64(len(content)),
	}, models.JobTypeTextParse)
}

// AddLink registers an arbitrary web page. The URL is validated
// syntactically, never resolved here.
func (s *IntakeService) AddLink(ctx context.Context, userID, projectID, rawURL string) (*models.Reference, error) {
	u, err := validateURL(rawURL)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, userID, projectID, &models.Reference{
		StoragePath: rawURL,
		Name:        u.Host + u.Path,
		Kind:        models.KindURL,
	}, models.JobTypeURLParse)
}

// AddYouTube registers a YouTube link for caption scraping / transcription.
func (s *IntakeService) AddYouTube(ctx context.Context, userID, projectID, rawURL string) (*models.Reference, error) {
	u, err := validateURL(rawURL)
	if err != nil {
		return nil, err
	}
	if !isYouTubeHost(u.Host) {
		return nil, fmt.Errorf("%w: %q is not a YouTube URL", core.ErrInvalidURL, rawURL)
	}
	return s.create(ctx, userID, projectID, &models.Reference{
		StoragePath: rawURL,
		Name:        rawURL,
		Kind:        models.KindYouTube,
	}, models.JobTypeYouTube)
}

func (s *IntakeService) ListReferences(ctx context.Context, userID, projectID string) ([]models.Reference, error) {
	if err := s.checkAccess(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.db.ListReferencesByProject(ctx, projectID)
}

// Delete removes a reference at any time, independent of in-flight jobs. A
// job still running will find the row gone when its callback lands and will
// terminate its own row only.
func (s *IntakeService) Delete(ctx context.Context, userID, referenceID string) error {
	ref, err := s.db.GetReferenceByID(ctx, referenceID)
	if err != nil {
		return fmt.Errorf("load reference: %w", err)
	}
	if ref == nil {
		return fmt.Errorf("reference %s: %w", referenceID, core.ErrNotFound)
	}
	if err := s.checkAccess(ctx, ref.ProjectID, userID); err != nil {
		return err
	}

	if err := s.db.DeleteReference(ctx, referenceID); err != nil {
		return fmt.Errorf("delete reference: %w", err)
	}

	// Stored blobs are cleaned up best effort; links have nothing to delete.
	switch ref.Kind {
	case models.KindURL, models.KindYouTube:
	default:
		if err := s.obj.DeleteFile(ctx, s.bucket, ref.StoragePath); err != nil {
			log.Printf("delete blob for reference %s: %v", referenceID, err)
		}
	}

	s.recordEvent(ctx, ref.ProjectID, userID, "reference_deleted", ref.Name)
	return nil
}

func (s *IntakeService) create(ctx context.Context, userID, projectID string, ref *models.Reference, jobType string) (*models.Reference, error) {
	if err := s.checkAccess(ctx, projectID, userID); err != nil {
		return nil, err
	}

	now := time.Now()
	ref.ID = uuid.NewString()
	ref.ProjectID = projectID
	ref.UploaderID = userID
	ref.Status = models.RefStatusQueued
	ref.CreatedAt = now
	ref.UpdatedAt = now

	if err := s.db.CreateReference(ctx, ref); err != nil {
		return nil, fmt.Errorf("create reference: %w", err)
	}

	if _, err := s.jobs.Enqueue(ctx, userID, ref.ID, jobType); err != nil {
		return nil, fmt.Errorf("queue first extraction: %w", err)
	}

	s.recordEvent(ctx, projectID, userID, "reference_added", ref.Name)
	return ref, nil
}

func (s *IntakeService) checkAccess(ctx context.Context, projectID, userID string) error {
	ok, err := s.db.HasProjectAccess(ctx, projectID, userID)
	if err != nil {
		return fmt.Errorf("access check: %w", err)
	}
	if !ok {
		return core.ErrAccessDenied
	}
	return nil
}

func (s *IntakeService) recordEvent(ctx context.Context, projectID, actorID, eventType, detail string) {
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

// objectKey creates a consistent S3 key layout.
func (s *IntakeService) objectKey(projectID, refID, filename string) string {
	filename = strings.TrimSpace(filename)
	filename = strings.ReplaceAll(filename, " ", "_")
	return path.Join("projects", projectID, "references", refID, filename)
}

func validateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidURL, raw)
	}
	return u, nil
}

func isYouTubeHost(host string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	switch host {
	case "youtube.com", "m.youtube.com", "youtu.be", "youtube-nocookie.com":
		return true
	}
	return false
}
