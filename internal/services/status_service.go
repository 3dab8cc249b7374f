package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/inkwell-app/inkwell/internal/core"
	"github.com/inkwell-app/inkwell/internal/models"
)

// ProjectStatus is the read-side projection of a project's extraction state.
type ProjectStatus struct {
	ProjectID       string `json:"project_id"`
	TotalJobs       int    `json:"total_jobs"`
	ActiveJobs      int    `json:"active_jobs"`
	CompletedJobs   int    `json:"completed_jobs"`
	AllJobsComplete bool   `json:"all_jobs_complete"`
}

// StatusService derives project-wide job counts from persisted state. It
// holds no authority: it only ever reads.
type StatusService struct {
	db core.DbClient
}

func NewStatusService(db core.DbClient) *StatusService {
	return &StatusService{db: db}
}

func (s *StatusService) ProjectStatus(ctx context.Context, projectID string) (ProjectStatus, error) {
	jobs, err := s.db.ListJobsByProject(ctx, projectID)
	if err != nil {
		return ProjectStatus{}, err
	}

	st := ProjectStatus{ProjectID: projectID, TotalJobs: len(jobs)}
	for _, j := range jobs {
		switch j.Status {
		case models.JobStatusQueued, models.JobStatusRunning:
			st.ActiveJobs++
		case models.JobStatusSucceeded, models.JobStatusFailed:
			st.CompletedJobs++
		}
	}
	st.AllJobsComplete = st.ActiveJobs == 0
	return st, nil
}

// Subscription is an explicit, project-scoped polling handle with a clear
// start/stop lifecycle, replacing ambient client-side polling state.
type Subscription struct {
	updates    chan ProjectStatus
	invalidate chan struct{}
	stop       chan struct{}
	stopOnce   sync.Once
}

// Subscribe starts a poll loop for the project. Every interval (and on every
// Invalidate call) the current status is pushed to Updates. Slow consumers
// only ever miss intermediate snapshots, never the latest one.
func (s *StatusService) Subscribe(ctx context.Context, projectID string, interval time.Duration) *Subscription {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	sub := &Subscription{
		updates:    make(chan ProjectStatus, 1),
		invalidate: make(chan struct{}, 1),
		stop:       make(chan struct{}),
	}

	go func() {
		defer close(sub.updates)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		push := func() {
			st, err := s.ProjectStatus(ctx, projectID)
			if err != nil {
				log.Printf("status poll for project %s: %v", projectID, err)
				return
			}
			// Drop the stale buffered snapshot so the latest always lands.
			select {
			case <-sub.updates:
			default:
			}
			sub.updates <- st
		}

		push()
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.stop:
				return
			case <-ticker.C:
				push()
			case <-sub.invalidate:
				push()
			}
		}
	}()

	return sub
}

// Updates delivers status snapshots until Stop.
func (sub *Subscription) Updates() <-chan ProjectStatus {
	return sub.updates
}

// Invalidate forces an immediate refresh, used after retry/upload/delete.
func (sub *Subscription) Invalidate() {
	select {
	case sub.invalidate <- struct{}{}:
	default:
	}
}

// Stop ends the poll loop and closes Updates. Safe to call more than once,
// from any goroutine.
func (sub *Subscription) Stop() {
	sub.stopOnce.Do(func() { close(sub.stop) })
}
