package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/makernet/portage/internal/db/models"
	"github.com/makernet/portage/internal/db/repos"
	"github.com/makernet/portage/internal/logger"
	"github.com/makernet/portage/internal/transfer"
)

// Orchestrator is the single asynchronous entry point invoked whenever a job
// should make progress: on creation, on retry and on worker pickup.
type Orchestrator struct {
	jobs     *Job
	registry *transfer.Registry
}

// NewOrchestrator creates a new orchestrator instance
func NewOrchestrator(jobs *Job, registry *transfer.Registry) *Orchestrator {
	return &Orchestrator{jobs: jobs, registry: registry}
}

// ProcessJob loads the job and runs whichever phases apply. A fresh job runs
// import and export sequentially in this one invocation; a job retried after
// a phase error re-enters at the phase its status permits. Duplicate task
// delivery is harmless: a terminal job or one already mid-phase is a no-op.
func (o *Orchestrator) ProcessJob(ctx context.Context, jobID uuid.UUID) error {
	job, err := o.jobs.GetByID(ctx, jobID)
	if errors.Is(err, repos.ErrJobNotFound) {
		// A cancelled-and-purged job is not an error for a stale task
		logger.Infof("job %s no longer exists, skipping", jobID)
		return nil
	}
	if err != nil {
		return err
	}

	if !job.IsActive() {
		logger.Debugf("job %s is in terminal status %s, nothing to do", jobID, job.Status)
		return nil
	}

	if job.Status.CanImport() {
		importer, err := o.registry.Importer(job.ImportService, o.jobs, job.ID)
		if err != nil {
			// Configuration error: the service passed creation-time
			// validation but has no importer registered
			return err
		}
		if procErr := importer.Process(ctx); procErr != nil {
			return o.failPhase(ctx, jobID, procErr, true)
		}
		if job, err = o.jobs.GetByID(ctx, jobID); err != nil {
			return err
		}
	}

	if job.Status.CanExport() {
		exporter, err := o.registry.Exporter(job.ExportService, o.jobs, job.ID)
		if err != nil {
			return err
		}
		if procErr := exporter.Process(ctx); procErr != nil {
			return o.failPhase(ctx, jobID, procErr, false)
		}
		if job, err = o.jobs.GetByID(ctx, jobID); err != nil {
			return err
		}
		if job.Status == models.StatusExportingSuccessfully {
			if err := o.jobs.UpdateStatus(ctx, job, models.StatusFinishedSuccessfully); err != nil {
				return err
			}
			logger.InfoWithFields("job finished", map[string]interface{}{
				"job_id": jobID.String(),
			})
		}
	}

	return nil
}

// failPhase maps an adapter error kind to the phase error status. Anything
// the adapter did not classify counts as not reachable.
func (o *Orchestrator) failPhase(ctx context.Context, jobID uuid.UUID, procErr error, importing bool) error {
	status := models.StatusImportingErrorUnreachable
	if importing && errors.Is(procErr, transfer.ErrAuthRequired) {
		status = models.StatusImportingErrorAuthRequired
	}
	if !importing {
		status = models.StatusExportingErrorUnreachable
		if errors.Is(procErr, transfer.ErrAuthRequired) {
			status = models.StatusExportingErrorAuthRequired
		}
	}

	logger.ErrorWithFields("job phase failed", map[string]interface{}{
		"job_id": jobID.String(),
		"status": status.String(),
		"error":  procErr.Error(),
	})

	job, err := o.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	return o.jobs.UpdateStatus(ctx, job, status)
}
