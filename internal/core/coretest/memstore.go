// Package coretest provides in-memory fakes for the core interfaces so
// package tests run without Postgres, S3 or a live model backend.
package coretest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/inkwell-app/inkwell/internal/core"
	"github.com/inkwell-app/inkwell/internal/models"
)

// MemStore is an in-memory core.DbClient with the same write semantics as the
// Postgres client, including the current-job guard on reference mirroring.
type MemStore struct {
	mu         sync.Mutex
	users      map[string]models.User
	projects   map[string]models.Project
	members    map[string]map[string]bool
	references map[string]models.Reference
	jobs       map[string]models.ExtractionJob
	jobOrder   []string
	versions   []models.Version
	events     []models.TimelineEvent
}

func NewMemStore() *MemStore {
	return &MemStore{
		users:      make(map[string]models.User),
		projects:   make(map[string]models.Project),
		members:    make(map[string]map[string]bool),
		references: make(map[string]models.Reference),
		jobs:       make(map[string]models.ExtractionJob),
	}
}

var _ core.DbClient = (*MemStore)(nil)

func (m *MemStore) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return fmt.Errorf("duplicate email %s", u.Email)
		}
	}
	m.users[u.ID] = *u
	return nil
}

func (m *MemStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, nil
}

func (m *MemStore) CreateProject(_ context.Context, p *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = *p
	if m.members[p.ID] == nil {
		m.members[p.ID] = make(map[string]bool)
	}
	m.members[p.ID][p.OwnerID] = true
	return nil
}

func (m *MemStore) GetProjectByID(_ context.Context, id string) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, nil
	}
	out := p
	return &out, nil
}

func (m *MemStore) HasProjectAccess(_ context.Context, projectID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.members[projectID][userID], nil
}

func (m *MemStore) AddProjectMember(_ context.Context, projectID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.members[projectID] == nil {
		m.members[projectID] = make(map[string]bool)
	}
	m.members[projectID][userID] = true
	return nil
}

func (m *MemStore) CreateReference(_ context.Context, ref *models.Reference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.references[ref.ID] = *ref
	return nil
}

func (m *MemStore) GetReferenceByID(_ context.Context, id string) (*models.Reference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref, ok := m.references[id]
	if !ok {
		return nil, nil
	}
	out := ref
	return &out, nil
}

func (m *MemStore) ListReferencesByProject(_ context.Context, projectID string) ([]models.Reference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Reference
	for _, ref := range m.references {
		if ref.ProjectID == projectID {
			out = append(out, ref)
		}
	}
	return out, nil
}

func (m *MemStore) DeleteReference(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.references[id]; !ok {
		return fmt.Errorf("reference not found: %s", id)
	}
	delete(m.references, id)
	return nil
}

func (m *MemStore) MarkReferenceQueued(_ context.Context, refID, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref, ok := m.references[refID]
	if !ok {
		return fmt.Errorf("reference not found: %s", refID)
	}
	ref.Status = models.RefStatusQueued
	ref.ErrorText = ""
	ref.CurrentJobID = jobID
	ref.UpdatedAt = time.Now()
	m.references[refID] = ref
	return nil
}

func (m *MemStore) CreateJob(_ context.Context, job *models.ExtractionJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = *job
	m.jobOrder = append(m.jobOrder, job.ID)
	return nil
}

func (m *MemStore) GetJobByID(_ context.Context, id string) (*models.ExtractionJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}
	out := j
	return &out, nil
}

func (m *MemStore) listJobs(match func(models.ExtractionJob) bool) []models.ExtractionJob {
	var out []models.ExtractionJob
	for _, id := range m.jobOrder {
		if j, ok := m.jobs[id]; ok && match(j) {
			out = append(out, j)
		}
	}
	return out
}

func (m *MemStore) ListJobsByReference(_ context.Context, referenceID string) ([]models.ExtractionJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listJobs(func(j models.ExtractionJob) bool { return j.ReferenceID == referenceID }), nil
}

func (m *MemStore) ListJobsByProject(_ context.Context, projectID string) ([]models.ExtractionJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listJobs(func(j models.ExtractionJob) bool { return j.ProjectID == projectID }), nil
}

func (m *MemStore) ListQueuedJobs(_ context.Context) ([]models.ExtractionJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listJobs(func(j models.ExtractionJob) bool { return j.Status == models.JobStatusQueued }), nil
}

func (m *MemStore) StartJob(_ context.Context, jobID string, startedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return fmt.Errorf("job not found: %s", jobID)
	}
	if j.Status == models.JobStatusQueued {
		j.Status = models.JobStatusRunning
		j.StartedAt = &startedAt
		m.jobs[jobID] = j
	}
	for id, ref := range m.references {
		if ref.CurrentJobID == jobID {
			ref.Status = models.RefStatusExtracting
			ref.UpdatedAt = time.Now()
			m.references[id] = ref
		}
	}
	return nil
}

func (m *MemStore) CompleteJob(_ context.Context, p core.CompleteJobParams) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[p.JobID]
	if !ok {
		return false, fmt.Errorf("job %s not found or already terminal", p.JobID)
	}
	if j.Status != models.JobStatusQueued && j.Status != models.JobStatusRunning {
		return false, fmt.Errorf("job %s not found or already terminal", p.JobID)
	}
	j.Status = p.Status
	j.ErrorMessage = p.ErrorMessage
	j.WorkerResponse = p.WorkerResponse
	finished := p.FinishedAt
	j.FinishedAt = &finished
	m.jobs[p.JobID] = j

	mirrored := false
	for id, ref := range m.references {
		if ref.CurrentJobID != p.JobID {
			continue
		}
		if p.Status == models.JobStatusSucceeded {
			ref.Status = models.RefStatusDone
			ref.ExtractedText = p.ExtractedText
			ref.ErrorText = ""
		} else {
			ref.Status = models.RefStatusFailed
			ref.ErrorText = p.ErrorMessage
		}
		ref.UpdatedAt = time.Now()
		m.references[id] = ref
		mirrored = true
	}
	return mirrored, nil
}

func (m *MemStore) CreateVersion(_ context.Context, v *models.Version) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.versions = append(m.versions, *v)
	return nil
}

func (m *MemStore) ListVersionsByProject(_ context.Context, projectID string) ([]models.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Version
	for _, v := range m.versions {
		if v.ProjectID == projectID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *MemStore) RecordEvent(_ context.Context, e *models.TimelineEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *e)
	return nil
}

// Events returns a copy of the recorded timeline events.
func (m *MemStore) Events() []models.TimelineEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.TimelineEvent, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MemStore) Close() error { return nil }
