package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/makernet/portage/internal/db/models"
	"github.com/makernet/portage/internal/logger"
)

// recoveryInterval is how often the dispatcher sweeps the database for jobs
// that should be making progress but are not queued (crashed workers,
// dropped enqueues). Duplicate delivery is safe: the orchestrator's status
// guards make a redundant pickup a no-op.
const recoveryInterval = 30 * time.Second

// Dispatcher runs jobs on a pool of workers. It provides the "run
// process_job asynchronously, at least once" facility: enqueues are
// best-effort and the recovery sweep guarantees eventual pickup.
type Dispatcher struct {
	orchestrator *Orchestrator
	jobs         *Job
	queue        chan uuid.UUID
	workers      int
}

// NewDispatcher creates a dispatcher with the given pool size and queue depth
func NewDispatcher(orchestrator *Orchestrator, jobs *Job, workers, queueSize int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		orchestrator: orchestrator,
		jobs:         jobs,
		queue:        make(chan uuid.UUID, queueSize),
		workers:      workers,
	}
}

// Enqueue schedules a job for processing. When the queue is full the job is
// left for the recovery sweep instead of blocking the caller.
func (d *Dispatcher) Enqueue(jobID uuid.UUID) {
	select {
	case d.queue <- jobID:
	default:
		logger.Warnf("job queue full, job %s deferred to the recovery sweep", jobID)
	}
}

// Start launches the worker pool and the recovery loop. Workers stop when
// the context is cancelled; the WaitGroup is released once all have stopped.
func (d *Dispatcher) Start(ctx context.Context, wg *sync.WaitGroup) {
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go d.runWorker(ctx, wg, i)
	}

	wg.Add(1)
	go d.runRecovery(ctx, wg)
}

func (d *Dispatcher) runWorker(ctx context.Context, wg *sync.WaitGroup, id int) {
	defer wg.Done()
	logger.Infof("worker %d started", id)

	for {
		select {
		case <-ctx.Done():
			logger.Infof("worker %d received shutdown signal, stopping", id)
			return
		case jobID := <-d.queue:
			if err := d.orchestrator.ProcessJob(ctx, jobID); err != nil {
				logger.Errorf("worker %d: processing job %s failed: %v", id, jobID, err)
			}
		}
	}
}

// runRecovery re-enqueues every job that should be making progress on its
// own: pending jobs and jobs waiting for their export phase. Error statuses
// are excluded, a retry is always user-triggered. The first sweep happens
// immediately so jobs pending at startup resume without waiting a full
// interval.
func (d *Dispatcher) runRecovery(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(recoveryInterval)
	defer ticker.Stop()

	d.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.sweep(ctx)
		}
	}
}

func (d *Dispatcher) sweep(ctx context.Context) {
	jobs, err := d.jobs.ListUnfinished(ctx)
	if err != nil {
		logger.Errorf("recovery sweep failed: %v", err)
		return
	}
	for _, job := range jobs {
		if job.Status == models.StatusPending || job.Status == models.StatusImportingSuccessfully {
			d.Enqueue(job.ID)
		}
	}
}
