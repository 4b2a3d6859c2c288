package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Database field names used by repository updates
const (
	// JobStatusField is the field name for the job status
	JobStatusField = "status"
	// JobTotalItemsField is the field name for the total item counter
	JobTotalItemsField = "total_items"
	// JobImportedItemsField is the field name for the imported item counter
	JobImportedItemsField = "imported_items"
	// JobExportedItemsField is the field name for the exported item counter
	JobExportedItemsField = "exported_items"
)

// JobStatus represents the current state of a job
type JobStatus string

// Job status constants
const (
	// StatusPending indicates the job is waiting to be processed
	StatusPending JobStatus = "pending"
	// StatusImporting indicates the import phase is running
	StatusImporting JobStatus = "importing"
	// StatusImportingErrorAuthRequired indicates the import phase failed because the source requires authorization
	StatusImportingErrorAuthRequired JobStatus = "importing_error_authorization_required"
	// StatusImportingErrorUnreachable indicates the import phase failed because the source data was unreachable
	StatusImportingErrorUnreachable JobStatus = "importing_error_data_unreachable"
	// StatusImportingSuccessfully indicates the import phase finished
	StatusImportingSuccessfully JobStatus = "importing_successfully"
	// StatusExporting indicates the export phase is running
	StatusExporting JobStatus = "exporting"
	// StatusExportingErrorAuthRequired indicates the export phase failed because the destination requires authorization
	StatusExportingErrorAuthRequired JobStatus = "exporting_error_authorization_required"
	// StatusExportingErrorUnreachable indicates the export phase failed because the destination was unreachable
	StatusExportingErrorUnreachable JobStatus = "exporting_error_data_unreachable"
	// StatusExportingSuccessfully indicates the export phase finished
	StatusExportingSuccessfully JobStatus = "exporting_successfully"
	// StatusFinishedSuccessfully indicates both phases finished
	StatusFinishedSuccessfully JobStatus = "finished_successfully"
	// StatusCancelling indicates cancellation was requested
	StatusCancelling JobStatus = "cancelling"
	// StatusCancelled indicates the job was cancelled
	StatusCancelled JobStatus = "cancelled"
)

// allJobStatuses lists every valid status, used by ParseJobStatus
var allJobStatuses = []JobStatus{
	StatusPending,
	StatusImporting,
	StatusImportingErrorAuthRequired,
	StatusImportingErrorUnreachable,
	StatusImportingSuccessfully,
	StatusExporting,
	StatusExportingErrorAuthRequired,
	StatusExportingErrorUnreachable,
	StatusExportingSuccessfully,
	StatusFinishedSuccessfully,
	StatusCancelling,
	StatusCancelled,
}

// TerminalJobStatuses are the statuses from which no further lifecycle
// progress, cancellation or retry is possible.
var TerminalJobStatuses = []JobStatus{
	StatusFinishedSuccessfully,
	StatusCancelling,
	StatusCancelled,
}

// RetriableJobStatuses are the statuses from which a retry is permitted.
var RetriableJobStatuses = []JobStatus{
	StatusImportingErrorAuthRequired,
	StatusImportingErrorUnreachable,
	StatusExportingErrorAuthRequired,
	StatusExportingErrorUnreachable,
}

// CanImportJobStatuses are the statuses from which the import phase runs.
var CanImportJobStatuses = []JobStatus{
	StatusPending,
	StatusImportingErrorAuthRequired,
	StatusImportingErrorUnreachable,
}

// CanExportJobStatuses are the statuses from which the export phase runs.
var CanExportJobStatuses = []JobStatus{
	StatusImportingSuccessfully,
	StatusExportingErrorAuthRequired,
	StatusExportingErrorUnreachable,
}

// AuthRequiredJobStatuses are the statuses recording that a phase stopped
// waiting for user authorization.
var AuthRequiredJobStatuses = []JobStatus{
	StatusImportingErrorAuthRequired,
	StatusExportingErrorAuthRequired,
}

func statusIn(s JobStatus, set []JobStatus) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}

// String returns the string representation of the job status
func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status is in the terminal set
func (s JobStatus) IsTerminal() bool {
	return statusIn(s, TerminalJobStatuses)
}

// IsRetriable reports whether a retry is permitted from the status
func (s JobStatus) IsRetriable() bool {
	return statusIn(s, RetriableJobStatuses)
}

// CanImport reports whether the import phase applies to the status
func (s JobStatus) CanImport() bool {
	return statusIn(s, CanImportJobStatuses)
}

// CanExport reports whether the export phase applies to the status
func (s JobStatus) CanExport() bool {
	return statusIn(s, CanExportJobStatuses)
}

// ParseJobStatus converts a string to a JobStatus
func ParseJobStatus(str string) (JobStatus, error) {
	for _, status := range allJobStatuses {
		if string(status) == str {
			return status, nil
		}
	}
	return "", fmt.Errorf("invalid job status: %s", str)
}

// Job represents one user-initiated transfer request from a source hosting
// service to a destination hosting service.
type Job struct {
	ID uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`

	ImportService string `json:"import_service" gorm:"not null"`
	ImportURL     string `json:"import_url" gorm:"not null;index"`
	ImportToken   string `json:"-"`

	ExportService string `json:"export_service" gorm:"not null"`
	ExportURL     string `json:"export_url" gorm:"not null;index"`
	ExportToken   string `json:"-"`

	Status JobStatus `json:"status" gorm:"not null;index"`

	// Path is the job's local working directory, derived from the job id at
	// creation time. Adapters must never write outside it.
	Path string `json:"-"`

	TotalItems    int64 `json:"total_items"`
	ImportedItems int64 `json:"imported_items"`
	ExportedItems int64 `json:"exported_items"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive reports whether the job is outside the terminal set
func (j *Job) IsActive() bool {
	return !j.Status.IsTerminal()
}

// GeneralProgress returns the coarse phase indicator: 0 at pending, 0.25
// during the import phase, 0.5 once imported, 0.75 during the export phase
// and 1 at any terminal status. It is independent of the item counters.
func (j *Job) GeneralProgress() float64 {
	switch j.Status {
	case StatusPending:
		return 0
	case StatusImporting, StatusImportingErrorAuthRequired, StatusImportingErrorUnreachable:
		return 0.25
	case StatusImportingSuccessfully:
		return 0.5
	case StatusExporting, StatusExportingErrorAuthRequired, StatusExportingErrorUnreachable:
		return 0.75
	case StatusExportingSuccessfully, StatusFinishedSuccessfully, StatusCancelling, StatusCancelled:
		return 1
	}
	return 0
}

// StatusProgress returns the fraction of items processed within the current
// phase, 0 when the total is unknown or zero.
func (j *Job) StatusProgress() float64 {
	if j.TotalItems == 0 {
		return 0
	}
	switch j.Status {
	case StatusImporting, StatusImportingErrorAuthRequired, StatusImportingErrorUnreachable,
		StatusImportingSuccessfully:
		return float64(j.ImportedItems) / float64(j.TotalItems)
	case StatusExporting, StatusExportingErrorAuthRequired, StatusExportingErrorUnreachable,
		StatusExportingSuccessfully, StatusFinishedSuccessfully:
		return float64(j.ExportedItems) / float64(j.TotalItems)
	}
	return 0
}

// Validate ensures that the job data is valid
func (j *Job) Validate() error {
	if j.ImportService == "" {
		return fmt.Errorf("job import_service cannot be empty")
	}
	if j.ImportURL == "" {
		return fmt.Errorf("job import_url cannot be empty")
	}
	if j.ExportService == "" {
		return fmt.Errorf("job export_service cannot be empty")
	}
	if j.ExportURL == "" {
		return fmt.Errorf("job export_url cannot be empty")
	}
	return nil
}

// BeforeCreate is a GORM hook that runs before creating a new job
func (j *Job) BeforeCreate(_ *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.Status == "" {
		j.Status = StatusPending
	}
	return j.Validate()
}
