package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/inkwell-app/inkwell/internal/config"
	"github.com/inkwell-app/inkwell/internal/core"
	"github.com/inkwell-app/inkwell/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Users

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`
	_, err := c.db.ExecContext(ctx, q, user.ID, user.Email, user.PasswordHash, user.CreatedAt)
	return err
}

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, email, password_hash, created_at
		FROM users WHERE email = $1
	`
	var u models.User
	err := c.db.QueryRowContext(ctx, q, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Projects

func (c *DatabaseClient) CreateProject(ctx context.Context, p *models.Project) error {
	if p == nil {
		return errors.New("nil project")
	}
	const q = `
		INSERT INTO projects (id, owner_id, title, goal, language, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()), COALESCE($7, now()))
	`
	if _, err := c.db.ExecContext(ctx, q,
		p.ID, p.OwnerID, p.Title, p.Goal, p.Language, p.CreatedAt, p.UpdatedAt); err != nil {
		return err
	}
	// The owner is always a member.
	return c.AddProjectMember(ctx, p.ID, p.OwnerID)
}

func (c *DatabaseClient) GetProjectByID(ctx context.Context, id string) (*models.Project, error) {
	const q = `
		SELECT id, owner_id, title, goal, language, created_at, updated_at
		FROM projects WHERE id = $1
	`
	var p models.Project
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&p.ID, &p.OwnerID, &p.Title, &p.Goal, &p.Language, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *DatabaseClient) HasProjectAccess(ctx context.Context, projectID, userID string) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM project_members WHERE project_id = $1 AND user_id = $2
		)
	`
	var ok bool
	if err := c.db.QueryRowContext(ctx, q, projectID, userID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (c *DatabaseClient) AddProjectMember(ctx context.Context, projectID, userID string) error {
	const q = `
		INSERT INTO project_members (project_id, user_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING
	`
	_, err := c.db.ExecContext(ctx, q, projectID, userID)
	return err
}

// References

func (c *DatabaseClient) CreateReference(ctx context.Context, ref *models.Reference) error {
	if ref == nil {
		return errors.New("nil reference")
	}
	chunks, err := marshalOrNil(ref.Chunks)
	if err != nil {
		return err
	}
	meta, err := marshalOrNil(ref.Metadata)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO project_references
			(id, project_id, uploader_id, storage_path, name, kind, size_bytes,
			 status, error_text, extracted_text, chunks, metadata, usage_notes,
			 current_job_id, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			 NULLIF($14, ''), COALESCE($15, now()), COALESCE($16, now()))
	`
	_, err = c.db.ExecContext(ctx, q,
		ref.ID, ref.ProjectID, ref.UploaderID, ref.StoragePath, ref.Name, ref.Kind, ref.SizeBytes,
		ref.Status, ref.ErrorText, ref.ExtractedText, chunks, meta, ref.UsageNotes,
		ref.CurrentJobID, ref.CreatedAt, ref.UpdatedAt)
	return err
}

const refColumns = `
	id, project_id, uploader_id, storage_path, name, kind, size_bytes,
	status, error_text, extracted_text, chunks, metadata, usage_notes,
	current_job_id, created_at, updated_at
`

func scanReference(row interface {
	Scan(dest ...any) error
}) (*models.Reference, error) {
	var (
		ref     models.Reference
		chunks  []byte
		meta    []byte
		currJob sql.NullString
	)
	if err := row.Scan(
		&ref.ID, &ref.ProjectID, &ref.UploaderID, &ref.StoragePath, &ref.Name, &ref.Kind, &ref.SizeBytes,
		&ref.Status, &ref.ErrorText, &ref.ExtractedText, &chunks, &meta, &ref.UsageNotes,
		&currJob, &ref.CreatedAt, &ref.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(chunks) > 0 {
		if err := json.Unmarshal(chunks, &ref.Chunks); err != nil {
			return nil, fmt.Errorf("decode chunks: %w", err)
		}
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &ref.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	ref.CurrentJobID = currJob.String
	return &ref, nil
}

func (c *DatabaseClient) GetReferenceByID(ctx context.Context, id string) (*models.Reference, error) {
	q := `SELECT ` + refColumns + ` FROM project_references WHERE id = $1`
	ref, err := scanReference(c.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ref, nil
}

func (c *DatabaseClient) ListReferencesByProject(ctx context.Context, projectID string) ([]models.Reference, error) {
	q := `SELECT ` + refColumns + ` FROM project_references WHERE project_id = $1 ORDER BY created_at ASC`
	rows, err := c.db.QueryContext(ctx, q, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Reference
	for rows.Next() {
		ref, err := scanReference(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ref)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) DeleteReference(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM project_references WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("reference not found: %s", id)
	}
	return nil
}

func (c *DatabaseClient) MarkReferenceQueued(ctx context.Context, refID, jobID string) error {
	const q = `
		UPDATE project_references
		SET status = 'queued', error_text = '', current_job_id = $2, updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, refID, jobID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("reference not found: %s", refID)
	}
	return nil
}

// Jobs

func (c *DatabaseClient) CreateJob(ctx context.Context, job *models.ExtractionJob) error {
	if job == nil {
		return errors.New("nil job")
	}
	const q = `
		INSERT INTO extraction_jobs
			(id, reference_id, project_id, requester_id, job_type, status, attempt,
			 worker_response, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, '')::jsonb, $9, COALESCE($10, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		job.ID, job.ReferenceID, job.ProjectID, job.RequesterID, job.JobType, job.Status, job.Attempt,
		job.WorkerResponse, job.ErrorMessage, job.CreatedAt)
	return err
}

const jobColumns = `
	id, reference_id, project_id, requester_id, job_type, status, attempt,
	COALESCE(worker_response::text, ''), error_message, created_at, started_at, finished_at
`

func scanJob(row interface {
	Scan(dest ...any) error
}) (*models.ExtractionJob, error) {
	var (
		j        models.ExtractionJob
		started  sql.NullTime
		finished sql.NullTime
	)
	if err := row.Scan(
		&j.ID, &j.ReferenceID, &j.ProjectID, &j.RequesterID, &j.JobType, &j.Status, &j.Attempt,
		&j.WorkerResponse, &j.ErrorMessage, &j.CreatedAt, &started, &finished,
	); err != nil {
		return nil, err
	}
	if started.Valid {
		j.StartedAt = &started.Time
	}
	if finished.Valid {
		j.FinishedAt = &finished.Time
	}
	return &j, nil
}

func (c *DatabaseClient) GetJobByID(ctx context.Context, id string) (*models.ExtractionJob, error) {
	q := `SELECT ` + jobColumns + ` FROM extraction_jobs WHERE id = $1`
	j, err := scanJob(c.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (c *DatabaseClient) listJobs(ctx context.Context, where, arg string) ([]models.ExtractionJob, error) {
	q := `SELECT ` + jobColumns + ` FROM extraction_jobs WHERE ` + where + ` ORDER BY created_at ASC`
	rows, err := c.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ExtractionJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) ListJobsByReference(ctx context.Context, referenceID string) ([]models.ExtractionJob, error) {
	return c.listJobs(ctx, "reference_id = $1", referenceID)
}

func (c *DatabaseClient) ListJobsByProject(ctx context.Context, projectID string) ([]models.ExtractionJob, error) {
	return c.listJobs(ctx, "project_id = $1", projectID)
}

func (c *DatabaseClient) ListQueuedJobs(ctx context.Context) ([]models.ExtractionJob, error) {
	q := `SELECT ` + jobColumns + ` FROM extraction_jobs WHERE status = 'queued' ORDER BY created_at ASC`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ExtractionJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) StartJob(ctx context.Context, jobID string, startedAt time.Time) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	const markJob = `
		UPDATE extraction_jobs
		SET status = 'running', started_at = $2
		WHERE id = $1 AND status = 'queued'
	`
	if _, err := tx.ExecContext(ctx, markJob, jobID, startedAt); err != nil {
		_ = tx.Rollback()
		return err
	}

	// Only the current job moves its reference to extracting.
	const markRef = `
		UPDATE project_references
		SET status = 'extracting', updated_at = now()
		WHERE current_job_id = $1
	`
	if _, err := tx.ExecContext(ctx, markRef, jobID); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (c *DatabaseClient) CompleteJob(ctx context.Context, p core.CompleteJobParams) (bool, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}

	// Job status is strictly linear; a terminal row is never rewritten, so a
	// repeated or conflicting completion callback lands nowhere.
	const markJob = `
		UPDATE extraction_jobs
		SET status = $2, error_message = $3, worker_response = NULLIF($4, '')::jsonb, finished_at = $5
		WHERE id = $1 AND status IN ('queued', 'running')
	`
	res, err := tx.ExecContext(ctx, markJob, p.JobID, p.Status, p.ErrorMessage, p.WorkerResponse, p.FinishedAt)
	if err != nil {
		_ = tx.Rollback()
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_ = tx.Rollback()
		return false, fmt.Errorf("job %s not found or already terminal", p.JobID)
	}

	// Mirror the outcome onto the reference, but only while this job is still
	// the reference's current job. A callback from a superseded job lands on
	// its own row and nowhere else.
	var markRef string
	if p.Status == models.JobStatusSucceeded {
		markRef = `
			UPDATE project_references
			SET status = 'done', extracted_text = $2, error_text = '', updated_at = now()
			WHERE current_job_id = $1
		`
	} else {
		markRef = `
			UPDATE project_references
			SET status = 'failed', error_text = $2, updated_at = now()
			WHERE current_job_id = $1
		`
	}
	arg := p.ExtractedText
	if p.Status != models.JobStatusSucceeded {
		arg = p.ErrorMessage
	}
	res, err = tx.ExecContext(ctx, markRef, p.JobID, arg)
	if err != nil {
		_ = tx.Rollback()
		return false, err
	}
	n, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Versions

func (c *DatabaseClient) CreateVersion(ctx context.Context, v *models.Version) error {
	if v == nil {
		return errors.New("nil version")
	}
	const q = `
		INSERT INTO versions (id, project_id, kind, goal, content, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()))
	`
	_, err := c.db.ExecContext(ctx, q, v.ID, v.ProjectID, v.Kind, v.Goal, v.Content, v.CreatedBy, v.CreatedAt)
	return err
}

func (c *DatabaseClient) ListVersionsByProject(ctx context.Context, projectID string) ([]models.Version, error) {
	const q = `
		SELECT id, project_id, kind, goal, content, created_by, created_at
		FROM versions
		WHERE project_id = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Version
	for rows.Next() {
		var v models.Version
		if err := rows.Scan(&v.ID, &v.ProjectID, &v.Kind, &v.Goal, &v.Content, &v.CreatedBy, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Timeline

func (c *DatabaseClient) RecordEvent(ctx context.Context, e *models.TimelineEvent) error {
	if e == nil {
		return errors.New("nil event")
	}
	const q = `
		INSERT INTO timeline_events (id, project_id, actor_id, event_type, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
	`
	_, err := c.db.ExecContext(ctx, q, e.ID, e.ProjectID, e.ActorID, e.EventType, e.Detail, e.CreatedAt)
	return err
}

func marshalOrNil(v any) ([]byte, error) {
	switch t := v.(type) {
	case []string:
		if len(t) == 0 {
			return nil, nil
		}
	case map[string]string:
		if len(t) == 0 {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	return b, nil
}
