// Package repos provides the repository layer over the database
package repos

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/makernet/portage/internal/db/models"
)

// Errors returned by job lifecycle operations. These are client input
// errors: they are surfaced synchronously and never retried.
var (
	// ErrJobNotFound indicates no job exists for the given id
	ErrJobNotFound = errors.New("job not found")
	// ErrJobDuplicated indicates an active job already exists for the same
	// (import_url, export_url) pair
	ErrJobDuplicated = errors.New("an active job for that (import_url, export_url) already exists")
	// ErrJobNotRetriable indicates the job's status does not permit a retry
	ErrJobNotRetriable = errors.New("job is not in a retriable status")
	// ErrJobNotCancellable indicates the job's status does not permit cancellation
	ErrJobNotCancellable = errors.New("job is not in a cancellable status")
)

// RetryParams optionally overwrites the transfer parameters on retry.
// Nil fields keep the job's current value.
type RetryParams struct {
	ImportURL   *string
	ImportToken *string
	ExportURL   *string
	ExportToken *string
}

// JobRepository provides access to job-related database operations
type JobRepository struct {
	db       *gorm.DB
	basePath string
}

// NewJobRepository creates a new job repository instance. basePath is the
// root under which every job's local working directory is derived.
func NewJobRepository(db *gorm.DB, basePath string) *JobRepository {
	return &JobRepository{db: db, basePath: basePath}
}

// Create inserts a new job in status pending together with its initial
// transition log entry. It fails with ErrJobDuplicated when an active job
// already exists for the same (import_url, export_url) pair. The check and
// the insert are not atomic against concurrent creation.
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	exists, err := r.ActiveJobExists(ctx, job.ImportURL, job.ExportURL)
	if err != nil {
		return err
	}
	if exists {
		return ErrJobDuplicated
	}

	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	job.Status = models.StatusPending
	job.Path = filepath.Join(r.basePath, job.ID.String())

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(job).Error; err != nil {
			return err
		}
		entry := models.JobLog{JobID: job.ID, ToStatus: job.Status}
		return tx.Create(&entry).Error
	})
}

// GetByID retrieves a job by its id
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).Where(&models.Job{ID: id}).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// List returns jobs ordered by creation time, newest first
func (r *JobRepository) List(ctx context.Context, opts *models.ListOptions) ([]models.Job, error) {
	var jobs []models.Job
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if opts != nil {
		opts.Normalize()
		query = query.Limit(opts.Limit).Offset(opts.Offset)
	}
	err := query.Find(&jobs).Error
	return jobs, err
}

// ListUnfinished returns every job whose status is outside the terminal set
func (r *JobRepository) ListUnfinished(ctx context.Context) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.WithContext(ctx).
		Where("status NOT IN ?", models.TerminalJobStatuses).
		Order("created_at ASC").
		Find(&jobs).Error
	return jobs, err
}

// ActiveJobExists reports whether a non-terminal job exists for the pair
func (r *JobRepository) ActiveJobExists(ctx context.Context, importURL, exportURL string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("import_url = ? AND export_url = ?", importURL, exportURL).
		Where("status NOT IN ?", models.TerminalJobStatuses).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check for active jobs: %w", err)
	}
	return count > 0, nil
}

// UpdateStatus records a status transition: it appends a log entry holding
// the job's status immediately before the write and then updates the job.
// The in-memory job is refreshed to the new status.
func (r *JobRepository) UpdateStatus(ctx context.Context, job *models.Job, status models.JobStatus) error {
	from := job.Status
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry := models.JobLog{JobID: job.ID, FromStatus: &from, ToStatus: status}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		return tx.Model(&models.Job{}).
			Where(&models.Job{ID: job.ID}).
			Update(models.JobStatusField, status).Error
	})
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	job.Status = status
	return nil
}

// SetTotalItems records the number of files discovered during tree build
func (r *JobRepository) SetTotalItems(ctx context.Context, id uuid.UUID, total int64) error {
	return r.db.WithContext(ctx).Model(&models.Job{}).
		Where(&models.Job{ID: id}).
		Update(models.JobTotalItemsField, total).Error
}

// IncrementImportedItems adds one to the imported item counter. The update
// is an atomic read-modify-write in the database.
func (r *JobRepository) IncrementImportedItems(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Job{}).
		Where(&models.Job{ID: id}).
		Update(models.JobImportedItemsField,
			gorm.Expr("imported_items + ?", 1)).Error
}

// IncrementExportedItems adds one to the exported item counter
func (r *JobRepository) IncrementExportedItems(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Job{}).
		Where(&models.Job{ID: id}).
		Update(models.JobExportedItemsField,
			gorm.Expr("exported_items + ?", 1)).Error
}

// Retry moves a retriable job back to pending, optionally overwriting its
// transfer parameters. It fails with ErrJobNotRetriable otherwise.
func (r *JobRepository) Retry(ctx context.Context, job *models.Job, params *RetryParams) error {
	if !job.Status.IsRetriable() {
		return ErrJobNotRetriable
	}

	if params != nil {
		updates := map[string]interface{}{}
		if params.ImportURL != nil {
			updates["import_url"] = *params.ImportURL
			job.ImportURL = *params.ImportURL
		}
		if params.ImportToken != nil {
			updates["import_token"] = *params.ImportToken
			job.ImportToken = *params.ImportToken
		}
		if params.ExportURL != nil {
			updates["export_url"] = *params.ExportURL
			job.ExportURL = *params.ExportURL
		}
		if params.ExportToken != nil {
			updates["export_token"] = *params.ExportToken
			job.ExportToken = *params.ExportToken
		}
		if len(updates) > 0 {
			err := r.db.WithContext(ctx).Model(&models.Job{}).
				Where(&models.Job{ID: job.ID}).
				Updates(updates).Error
			if err != nil {
				return fmt.Errorf("failed to update job parameters: %w", err)
			}
		}
	}

	return r.UpdateStatus(ctx, job, models.StatusPending)
}

// Cancel marks an active job as cancelling. Cancellation is cooperative: an
// in-flight transfer is not interrupted, a later orchestrator pickup observes
// the terminal status and no-ops.
func (r *JobRepository) Cancel(ctx context.Context, job *models.Job) error {
	if !job.IsActive() {
		return ErrJobNotCancellable
	}
	return r.UpdateStatus(ctx, job, models.StatusCancelling)
}

// GetLog returns the job's status transitions in chronological order
func (r *JobRepository) GetLog(ctx context.Context, id uuid.UUID) ([]models.JobLog, error) {
	var entries []models.JobLog
	err := r.db.WithContext(ctx).
		Where(&models.JobLog{JobID: id}).
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}

// HasRequestedAuthorization reports whether the job has ever entered an
// authorization-required status, derived from the transition log.
func (r *JobRepository) HasRequestedAuthorization(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.JobLog{}).
		Where("job_id = ?", id).
		Where("to_status IN ?", models.AuthRequiredJobStatuses).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
