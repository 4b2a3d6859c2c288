// Package handlers implements the v1 HTTP handlers.
package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/makernet/portage/internal/db/models"
	"github.com/makernet/portage/internal/db/repos"
	"github.com/makernet/portage/internal/services"
	"github.com/makernet/portage/internal/transfer"
)

// Enqueuer hands a job id to the worker pool.
type Enqueuer interface {
	Enqueue(id uuid.UUID)
}

// JobHandler serves the job endpoints.
type JobHandler struct {
	jobs     *services.Job
	registry *transfer.Registry
	queue    Enqueuer
}

func NewJobHandler(jobs *services.Job, registry *transfer.Registry, queue Enqueuer) *JobHandler {
	return &JobHandler{
		jobs:     jobs,
		registry: registry,
		queue:    queue,
	}
}

// CreateJob creates a transfer job and hands it to the workers
func (h *JobHandler) CreateJob(c *fiber.Ctx) error {
	var req CreateJobRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	job := &models.Job{
		ImportService: req.ImportService,
		ImportURL:     req.ImportURL,
		ImportToken:   req.ImportToken,
		ExportService: req.ExportService,
		ExportURL:     req.ExportURL,
		ExportToken:   req.ExportToken,
	}
	if err := job.Validate(); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if !h.registry.CanImport(req.ImportService) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": fmt.Sprintf("cannot import from service %q", req.ImportService),
		})
	}
	if !h.registry.CanExport(req.ExportService) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": fmt.Sprintf("cannot export to service %q", req.ExportService),
		})
	}

	if err := h.jobs.Create(c.Context(), job); err != nil {
		if errors.Is(err, repos.ErrJobDuplicated) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "an active job for this import/export pair already exists",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to create job: %v", err),
		})
	}

	h.queue.Enqueue(job.ID)

	return c.Status(fiber.StatusCreated).JSON(newJobResponse(job))
}

// GetJob returns one job with its progress and transition log
func (h *JobHandler) GetJob(c *fiber.Ctx) error {
	id, err := parseJobID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	job, err := h.jobs.GetByID(c.Context(), id)
	if err != nil {
		return jobError(c, "get job", err)
	}

	entries, err := h.jobs.GetLog(c.Context(), id)
	if err != nil {
		return jobError(c, "get job log", err)
	}

	return c.JSON(JobDetailResponse{
		JobResponse: newJobResponse(job),
		Log: lo.Map(entries, func(e models.JobLog, _ int) JobLogEntry {
			return JobLogEntry{
				FromStatus: e.FromStatus,
				ToStatus:   e.ToStatus,
				Timestamp:  e.Timestamp,
			}
		}),
	})
}

// ListJobs returns jobs ordered newest first
func (h *JobHandler) ListJobs(c *fiber.Ctx) error {
	opts := &models.ListOptions{
		Limit:  c.QueryInt("limit"),
		Offset: c.QueryInt("offset"),
	}

	jobs, err := h.jobs.List(c.Context(), opts)
	if err != nil {
		return jobError(c, "list jobs", err)
	}

	return c.JSON(lo.Map(jobs, func(j models.Job, _ int) JobResponse {
		return newJobResponse(&j)
	}))
}

// ListUnfinishedJobs returns the ids of every non-terminal job
func (h *JobHandler) ListUnfinishedJobs(c *fiber.Ctx) error {
	jobs, err := h.jobs.ListUnfinished(c.Context())
	if err != nil {
		return jobError(c, "list unfinished jobs", err)
	}

	return c.JSON(UnfinishedJobsResponse{
		JobIDs: lo.Map(jobs, func(j models.Job, _ int) uuid.UUID { return j.ID }),
	})
}

// RetryJob moves a failed job back to pending and re-enqueues it
func (h *JobHandler) RetryJob(c *fiber.Ctx) error {
	id, err := parseJobID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var req RetryJobRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}
	}

	job, err := h.jobs.GetByID(c.Context(), id)
	if err != nil {
		return jobError(c, "get job", err)
	}

	params := &repos.RetryParams{}
	if req.ImportURL != "" {
		params.ImportURL = &req.ImportURL
	}
	if req.ImportToken != "" {
		params.ImportToken = &req.ImportToken
	}
	if req.ExportURL != "" {
		params.ExportURL = &req.ExportURL
	}
	if req.ExportToken != "" {
		params.ExportToken = &req.ExportToken
	}

	if err := h.jobs.Retry(c.Context(), job, params); err != nil {
		return jobError(c, "retry job", err)
	}

	h.queue.Enqueue(job.ID)

	return c.JSON(newJobResponse(job))
}

// CancelJob marks an active job as cancelling
func (h *JobHandler) CancelJob(c *fiber.Ctx) error {
	id, err := parseJobID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	job, err := h.jobs.GetByID(c.Context(), id)
	if err != nil {
		return jobError(c, "get job", err)
	}

	if err := h.jobs.Cancel(c.Context(), job); err != nil {
		return jobError(c, "cancel job", err)
	}

	return c.JSON(newJobResponse(job))
}

func parseJobID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid job id %q", c.Params("id"))
	}
	return id, nil
}

func jobError(c *fiber.Ctx, action string, err error) error {
	switch {
	case errors.Is(err, repos.ErrJobNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "job not found",
		})
	case errors.Is(err, repos.ErrJobNotRetriable), errors.Is(err, repos.ErrJobNotCancellable):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to %s: %v", action, err),
		})
	}
}
