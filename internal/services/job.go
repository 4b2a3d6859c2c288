// Package services contains the application services: the job service, the
// orchestrator driving one job's phases and the dispatcher running jobs on a
// worker pool.
package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/makernet/portage/internal/db/models"
	"github.com/makernet/portage/internal/db/repos"
)

// Job handles job-related operations. It is the job-data-access handle the
// adapters and the API layer share.
type Job struct {
	repo *repos.JobRepository
}

// NewJobService creates a new instance of the job service
func NewJobService(repo *repos.JobRepository) *Job {
	return &Job{repo: repo}
}

// Create creates a new job in status pending
func (s *Job) Create(ctx context.Context, job *models.Job) error {
	return s.repo.Create(ctx, job)
}

// GetByID retrieves a job by id
func (s *Job) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves jobs with pagination
func (s *Job) List(ctx context.Context, opts *models.ListOptions) ([]models.Job, error) {
	return s.repo.List(ctx, opts)
}

// ListUnfinished retrieves every job outside the terminal set
func (s *Job) ListUnfinished(ctx context.Context) ([]models.Job, error) {
	return s.repo.ListUnfinished(ctx)
}

// UpdateStatus records a status transition and its log entry
func (s *Job) UpdateStatus(ctx context.Context, job *models.Job, status models.JobStatus) error {
	return s.repo.UpdateStatus(ctx, job, status)
}

// SetTotalItems records the number of files discovered during tree build
func (s *Job) SetTotalItems(ctx context.Context, id uuid.UUID, total int64) error {
	return s.repo.SetTotalItems(ctx, id, total)
}

// IncrementImportedItems adds one to the imported item counter
func (s *Job) IncrementImportedItems(ctx context.Context, id uuid.UUID) error {
	return s.repo.IncrementImportedItems(ctx, id)
}

// IncrementExportedItems adds one to the exported item counter
func (s *Job) IncrementExportedItems(ctx context.Context, id uuid.UUID) error {
	return s.repo.IncrementExportedItems(ctx, id)
}

// Retry moves a retriable job back to pending, optionally with new
// transfer parameters
func (s *Job) Retry(ctx context.Context, job *models.Job, params *repos.RetryParams) error {
	return s.repo.Retry(ctx, job, params)
}

// Cancel marks an active job as cancelling
func (s *Job) Cancel(ctx context.Context, job *models.Job) error {
	return s.repo.Cancel(ctx, job)
}

// GetLog returns the job's status transition log
func (s *Job) GetLog(ctx context.Context, id uuid.UUID) ([]models.JobLog, error) {
	return s.repo.GetLog(ctx, id)
}

// HasRequestedAuthorization reports whether the job ever entered an
// authorization-required status
func (s *Job) HasRequestedAuthorization(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.repo.HasRequestedAuthorization(ctx, id)
}
