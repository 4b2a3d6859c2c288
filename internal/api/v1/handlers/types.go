package handlers

import (
	"time"

	"github.com/google/uuid"

	"github.com/makernet/portage/internal/db/models"
)

// CreateJobRequest is the payload for creating a transfer job.
type CreateJobRequest struct {
	ImportService string `json:"import_service"`
	ImportURL     string `json:"import_url"`
	ImportToken   string `json:"import_token"`
	ExportService string `json:"export_service"`
	ExportURL     string `json:"export_url"`
	ExportToken   string `json:"export_token"`
}

// RetryJobRequest optionally replaces the transfer parameters of a failed
// job before it is re-run. Empty fields keep the stored values.
type RetryJobRequest struct {
	ImportURL   string `json:"import_url"`
	ImportToken string `json:"import_token"`
	ExportURL   string `json:"export_url"`
	ExportToken string `json:"export_token"`
}

// DiscoverRequest maps urls to the service that can handle them.
type DiscoverRequest struct {
	URLs []string `json:"urls"`
}

// DiscoverResponse lists the discovered service id per url, in request
// order. Unrecognized urls map to "unknown".
type DiscoverResponse struct {
	Services []string `json:"services"`
}

// JobResponse is a job together with its derived progress values.
type JobResponse struct {
	models.Job
	GeneralProgress float64 `json:"general_progress"`
	StatusProgress  float64 `json:"status_progress"`
}

// JobLogEntry is one status transition of a job.
type JobLogEntry struct {
	FromStatus *models.JobStatus `json:"from_status"`
	ToStatus   models.JobStatus  `json:"to_status"`
	Timestamp  time.Time         `json:"timestamp"`
}

// JobDetailResponse adds the transition log to the job view.
type JobDetailResponse struct {
	JobResponse
	Log []JobLogEntry `json:"log"`
}

// UnfinishedJobsResponse carries the ids of every non-terminal job.
type UnfinishedJobsResponse struct {
	JobIDs []uuid.UUID `json:"job_ids"`
}

func newJobResponse(job *models.Job) JobResponse {
	return JobResponse{
		Job:             *job,
		GeneralProgress: job.GeneralProgress(),
		StatusProgress:  job.StatusProgress(),
	}
}
