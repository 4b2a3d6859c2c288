// Package transfer contains the service-independent core of the transfer
// engine: the adapter contract, the error kinds every adapter translates
// vendor failures into, the service registry and the remote-tree sync
// algorithm shared by the concrete importers and exporters.
package transfer

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/makernet/portage/internal/db/models"
)

// Error kinds adapters translate vendor-specific failures into at their
// boundary. The orchestrator maps them to the phase error statuses and never
// inspects vendor error types directly.
var (
	// ErrAuthRequired indicates the remote service rejected the credentials;
	// retriable once the caller supplies fresh ones.
	ErrAuthRequired = errors.New("authorization required")
	// ErrNotReachable indicates the remote data could not be reached;
	// retriable as-is.
	ErrNotReachable = errors.New("remote data not reachable")
	// ErrValidationFailed indicates a malformed remote reference;
	// non-retriable, normally caught at job-creation URL validation.
	ErrValidationFailed = errors.New("remote reference validation failed")
)

// JobAccessor is the job-data-access handle adapters and the sync engine
// drive all job mutation through.
type JobAccessor interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	UpdateStatus(ctx context.Context, job *models.Job, status models.JobStatus) error
	SetTotalItems(ctx context.Context, id uuid.UUID, total int64) error
	IncrementImportedItems(ctx context.Context, id uuid.UUID) error
	IncrementExportedItems(ctx context.Context, id uuid.UUID) error
}

// Importer performs the import phase of one job: it mirrors the remote
// source tree into the job's local working directory.
//
// Process records the start-of-phase and success statuses itself and returns
// one of the declared error kinds on failure; construction must not perform
// network I/O.
type Importer interface {
	Process(ctx context.Context) error
}

// Exporter performs the export phase of one job: it mirrors the job's local
// working directory into the remote destination. Same contract as Importer.
type Exporter interface {
	Process(ctx context.Context) error
}

// ImporterFactory constructs the importer for one job
type ImporterFactory func(jobs JobAccessor, jobID uuid.UUID) Importer

// ExporterFactory constructs the exporter for one job
type ExporterFactory func(jobs JobAccessor, jobID uuid.UUID) Exporter

// ProgressRecorder receives the sync engine's mid-phase progress updates.
// Each increment is committed individually so a crash mid-transfer loses at
// most the progress display.
type ProgressRecorder interface {
	SetTotalItems(ctx context.Context, total int64) error
	IncrementImported(ctx context.Context) error
	IncrementExported(ctx context.Context) error
}

type jobProgress struct {
	jobs  JobAccessor
	jobID uuid.UUID
}

// Progress returns a ProgressRecorder writing to the given job
func Progress(jobs JobAccessor, jobID uuid.UUID) ProgressRecorder {
	return &jobProgress{jobs: jobs, jobID: jobID}
}

func (p *jobProgress) SetTotalItems(ctx context.Context, total int64) error {
	return p.jobs.SetTotalItems(ctx, p.jobID, total)
}

func (p *jobProgress) IncrementImported(ctx context.Context) error {
	return p.jobs.IncrementImportedItems(ctx, p.jobID)
}

func (p *jobProgress) IncrementExported(ctx context.Context) error {
	return p.jobs.IncrementExportedItems(ctx, p.jobID)
}
