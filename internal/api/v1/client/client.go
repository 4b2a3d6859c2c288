// Package client provides a typed HTTP client for the portage API.
package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/makernet/portage/internal/api/v1/handlers"
)

// DefaultBaseURL is the address of a locally running server
const DefaultBaseURL = "http://localhost:8080"

// DefaultTimeout is the default timeout for API requests
const DefaultTimeout = 30 * time.Second

// Client defines the interface for interacting with the portage API
type Client interface {
	CreateJob(ctx context.Context, req handlers.CreateJobRequest) (*handlers.JobResponse, error)
	GetJob(ctx context.Context, id uuid.UUID) (*handlers.JobDetailResponse, error)
	ListJobs(ctx context.Context, limit, offset int) ([]handlers.JobResponse, error)
	ListUnfinishedJobs(ctx context.Context) (*handlers.UnfinishedJobsResponse, error)
	RetryJob(ctx context.Context, id uuid.UUID, req handlers.RetryJobRequest) (*handlers.JobResponse, error)
	CancelJob(ctx context.Context, id uuid.UUID) (*handlers.JobResponse, error)
	DiscoverServices(ctx context.Context, urls []string) (*handlers.DiscoverResponse, error)
	HealthCheck(ctx context.Context) error
}

// Options contains configuration options for the API client
type Options struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultOptions returns the default client options
func DefaultOptions() *Options {
	return &Options{
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// APIClient implements the Client interface
type APIClient struct {
	http *resty.Client
}

// NewClient creates a new API client with the given options
func NewClient(opts *Options) (Client, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	httpClient := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/json")

	return &APIClient{http: httpClient}, nil
}

type apiError struct {
	Error string `json:"error"`
}

func responseError(resp *resty.Response, apiErr *apiError) error {
	if apiErr.Error != "" {
		return fmt.Errorf("api error (%d): %s", resp.StatusCode(), apiErr.Error)
	}
	return fmt.Errorf("api error (%d): %s", resp.StatusCode(), resp.Status())
}

// CreateJob creates a new transfer job
func (c *APIClient) CreateJob(ctx context.Context, req handlers.CreateJobRequest) (*handlers.JobResponse, error) {
	var out handlers.JobResponse
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&apiErr).
		Post("/api/v1/jobs")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, responseError(resp, &apiErr)
	}
	return &out, nil
}

// GetJob fetches one job with its progress and transition log
func (c *APIClient) GetJob(ctx context.Context, id uuid.UUID) (*handlers.JobDetailResponse, error) {
	var out handlers.JobDetailResponse
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiErr).
		Get("/api/v1/jobs/" + id.String())
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, responseError(resp, &apiErr)
	}
	return &out, nil
}

// ListJobs fetches jobs newest first
func (c *APIClient) ListJobs(ctx context.Context, limit, offset int) ([]handlers.JobResponse, error) {
	var out []handlers.JobResponse
	var apiErr apiError
	req := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiErr)
	if limit > 0 {
		req.SetQueryParam("limit", fmt.Sprint(limit))
	}
	if offset > 0 {
		req.SetQueryParam("offset", fmt.Sprint(offset))
	}
	resp, err := req.Get("/api/v1/jobs")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, responseError(resp, &apiErr)
	}
	return out, nil
}

// ListUnfinishedJobs fetches the ids of every non-terminal job
func (c *APIClient) ListUnfinishedJobs(ctx context.Context) (*handlers.UnfinishedJobsResponse, error) {
	var out handlers.UnfinishedJobsResponse
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiErr).
		Get("/api/v1/jobs/unfinished")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, responseError(resp, &apiErr)
	}
	return &out, nil
}

// RetryJob moves a failed job back to pending
func (c *APIClient) RetryJob(ctx context.Context, id uuid.UUID, req handlers.RetryJobRequest) (*handlers.JobResponse, error) {
	var out handlers.JobResponse
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&apiErr).
		Post("/api/v1/jobs/" + id.String() + "/retry")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, responseError(resp, &apiErr)
	}
	return &out, nil
}

// CancelJob marks an active job as cancelling
func (c *APIClient) CancelJob(ctx context.Context, id uuid.UUID) (*handlers.JobResponse, error) {
	var out handlers.JobResponse
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiErr).
		Post("/api/v1/jobs/" + id.String() + "/cancel")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, responseError(resp, &apiErr)
	}
	return &out, nil
}

// DiscoverServices maps urls to service ids
func (c *APIClient) DiscoverServices(ctx context.Context, urls []string) (*handlers.DiscoverResponse, error) {
	var out handlers.DiscoverResponse
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(handlers.DiscoverRequest{URLs: urls}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/api/v1/services/discover")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, responseError(resp, &apiErr)
	}
	return &out, nil
}

// HealthCheck verifies the server is reachable
func (c *APIClient) HealthCheck(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/health")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("health check failed: %s", resp.Status())
	}
	return nil
}
