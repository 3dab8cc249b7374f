package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/inkwell-app/inkwell/internal/core"
	"github.com/inkwell-app/inkwell/internal/core/extraction"
	"github.com/inkwell-app/inkwell/internal/models"
)

// Dispatcher runs extraction jobs on a bounded worker pool. Job rows are the
// durable queue: anything still "queued" in the database is picked up again by
// Recover on startup, so the in-memory channel can be lost without losing
// work. The in-flight set makes duplicate dispatch of the same job id a no-op
// instead of a race.
type Dispatcher struct {
	db       core.DbClient
	registry *extraction.Registry
	jobs     chan string
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewDispatcher(db core.DbClient, registry *extraction.Registry) *Dispatcher {
	return &Dispatcher{
		db:       db,
		registry: registry,
		jobs:     make(chan string, 256),
		done:     make(chan struct{}),
		inflight: make(map[string]struct{}),
	}
}

// Start launches numWorkers workers reading from the jobs channel. It returns
// immediately; Wait on the returned group to drain during shutdown.
func (d *Dispatcher) Start(ctx context.Context, numWorkers int) *errgroup.Group {
	if numWorkers < 1 {
		numWorkers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < numWorkers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					d.stopOnce.Do(func() { close(d.done) })
					return nil
				case jobID := <-d.jobs:
					d.process(gctx, jobID)
				}
			}
		})
	}
	return g
}

// Enqueue hands a job id to the pool. The caller's enqueue call returns once
// dispatch has been started, not completed.
func (d *Dispatcher) Enqueue(jobID string) {
	d.mu.Lock()
	if _, dup := d.inflight[jobID]; dup {
		d.mu.Unlock()
		return
	}
	d.inflight[jobID] = struct{}{}
	d.mu.Unlock()

	select {
	case d.jobs <- jobID:
	default:
		// Channel full: hand off without blocking the caller. The job row is
		// already persisted, so abandoning the handoff at shutdown only
		// delays it until Recover.
		go func() {
			select {
			case d.jobs <- jobID:
			case <-d.done:
				d.mu.Lock()
				delete(d.inflight, jobID)
				d.mu.Unlock()
			}
		}()
	}
}

// Recover re-enqueues every job still queued in the database. Called once at
// startup so jobs survive a restart.
func (d *Dispatcher) Recover(ctx context.Context) error {
	queued, err := d.db.ListQueuedJobs(ctx)
	if err != nil {
		return fmt.Errorf("list queued jobs: %w", err)
	}
	for _, j := range queued {
		d.Enqueue(j.ID)
	}
	if len(queued) > 0 {
		log.Printf("recovered %d queued extraction job(s)", len(queued))
	}
	return nil
}

func (d *Dispatcher) process(ctx context.Context, jobID string) {
	defer func() {
		d.mu.Lock()
		delete(d.inflight, jobID)
		d.mu.Unlock()
	}()

	job, err := d.db.GetJobByID(ctx, jobID)
	if err != nil || job == nil {
		log.Printf("dispatcher: job %s not loadable: %v", jobID, err)
		return
	}
	if job.Status != models.JobStatusQueued {
		return
	}

	ref, err := d.db.GetReferenceByID(ctx, job.ReferenceID)
	if err != nil {
		log.Printf("dispatcher: reference load for job %s: %v", jobID, err)
		d.fail(ctx, jobID, fmt.Sprintf("load reference: %v", err))
		return
	}
	if ref == nil {
		// Reference deleted while the job waited; terminate the job row only.
		d.fail(ctx, jobID, "reference deleted before extraction started")
		return
	}

	strategy, err := d.registry.Get(job.JobType)
	if err != nil {
		d.fail(ctx, jobID, err.Error())
		return
	}

	if err := d.db.StartJob(ctx, jobID, time.Now()); err != nil {
		log.Printf("dispatcher: start job %s: %v", jobID, err)
		d.fail(ctx, jobID, fmt.Sprintf("start job: %v", err))
		return
	}

	text, err := d.invoke(ctx, strategy, ref)
	if err != nil {
		d.fail(ctx, jobID, err.Error())
		return
	}
	// A reference is "done" only with text to show for it; an empty result
	// (zero-byte upload, script-only page) is a failed extraction.
	if text == "" {
		d.fail(ctx, jobID, fmt.Sprintf("no text extracted from %q", ref.Name))
		return
	}

	raw, _ := json.Marshal(map[string]any{"chars": len(text), "job_type": job.JobType})
	if _, err := d.db.CompleteJob(ctx, core.CompleteJobParams{
		JobID:          jobID,
		Status:         models.JobStatusSucceeded,
		ExtractedText:  text,
		WorkerResponse: string(raw),
		FinishedAt:     time.Now(),
	}); err != nil {
		log.Printf("dispatcher: complete job %s: %v", jobID, err)
	}
}

// invoke runs the strategy, converting a panic into a plain error so one bad
// source can never take the pool down.
func (d *Dispatcher) invoke(ctx context.Context, s extraction.Strategy, ref *models.Reference) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy panic: %v", r)
		}
	}()
	return s.Extract(ctx, ref)
}

func (d *Dispatcher) fail(ctx context.Context, jobID, msg string) {
	if _, err := d.db.CompleteJob(ctx, core.CompleteJobParams{
		JobID:        jobID,
		Status:       models.JobStatusFailed,
		ErrorMessage: msg,
		FinishedAt:   time.Now(),
	}); err != nil {
		log.Printf("dispatcher: fail job %s: %v", jobID, err)
	}
}
