// Package exporters contains the per-service export adapters. Each adapter
// translates its vendor's failures into the transfer error kinds at this
// boundary and drives the job's export-phase statuses.
package exporters

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"regexp"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/makernet/portage/internal/db/models"
	"github.com/makernet/portage/internal/logger"
	"github.com/makernet/portage/internal/transfer"
)

// WikifactoryProjectRegex recognizes Wikifactory project URLs
var WikifactoryProjectRegex = regexp.MustCompile(
	`^(?:http(s)?://)?(www\.)?wikifactory\.com/(?P<space>[@+][\w-]+)/(?P<slug>[\w-]+)$`)

const (
	wikifactoryFileMutation = `
mutation File($fileInput: FileInput) {
  file(fileData: $fileInput) {
    file {
      id
      uploadUrl
    }
    userErrors {
      message
      key
      code
    }
  }
}`

	wikifactoryOperationMutation = `
mutation Operation($operationData: OperationInput) {
  operation(operationData: $operationData) {
    project {
      id
    }
  }
}`

	wikifactoryCommitMutation = `
mutation CommitContribution($commitData: CommitInput) {
  commit(commitData: $commitData) {
    project {
      id
      contributionCount
    }
    userErrors {
      message
      key
      code
    }
  }
}`

	wikifactoryProjectQuery = `
query Project($space: String, $slug: String) {
  project(space: $space, slug: $slug) {
    result {
      id
      private
      inSpace {
        id
      }
    }
    userErrors {
      message
      key
      code
    }
  }
}`
)

// WikifactoryExporter pushes the job's local tree into a Wikifactory project
// through its GraphQL API: one file mutation + upload + ADD operation per
// file, then a single commit contribution for the whole batch.
type WikifactoryExporter struct {
	jobs   transfer.JobAccessor
	jobID  uuid.UUID
	apiURL string
	engine transfer.Engine
}

// NewWikifactoryExporter creates the Wikifactory exporter for one job.
// apiURL is the GraphQL endpoint, overridable for tests.
func NewWikifactoryExporter(jobs transfer.JobAccessor, jobID uuid.UUID, apiURL string) *WikifactoryExporter {
	return &WikifactoryExporter{jobs: jobs, jobID: jobID, apiURL: apiURL, engine: transfer.Engine{}}
}

// SpaceSlugFromURL extracts the space and slug of a project URL; both are
// "" when the URL is not a Wikifactory project URL.
func SpaceSlugFromURL(url string) (space, slug string) {
	match := WikifactoryProjectRegex.FindStringSubmatch(url)
	if match == nil {
		return "", ""
	}
	return match[WikifactoryProjectRegex.SubexpIndex("space")],
		match[WikifactoryProjectRegex.SubexpIndex("slug")]
}

// Process runs the export phase against Wikifactory
func (e *WikifactoryExporter) Process(ctx context.Context) error {
	job, err := e.jobs.GetByID(ctx, e.jobID)
	if err != nil {
		return err
	}
	if err := e.jobs.UpdateStatus(ctx, job, models.StatusExporting); err != nil {
		return err
	}

	space, slug := SpaceSlugFromURL(job.ExportURL)
	if space == "" {
		return fmt.Errorf("%w: %s is not a wikifactory project url", transfer.ErrValidationFailed, job.ExportURL)
	}

	target := &wikifactoryTarget{
		gql:   newWikifactoryClient(e.apiURL, job.ExportToken),
		token: job.ExportToken,
	}
	if err := target.loadProject(ctx, space, slug); err != nil {
		return err
	}

	if err := e.engine.Export(ctx, target, job.Path, transfer.Progress(e.jobs, e.jobID)); err != nil {
		return err
	}

	return e.jobs.UpdateStatus(ctx, job, models.StatusExportingSuccessfully)
}

type wikifactoryUserError struct {
	Message string `json:"message"`
	Key     string `json:"key"`
	Code    string `json:"code"`
}

type wikifactoryClient struct {
	http *resty.Client
}

func newWikifactoryClient(apiURL, token string) *wikifactoryClient {
	client := resty.New().SetBaseURL(apiURL)
	if token != "" {
		client.SetAuthToken(token)
	}
	return &wikifactoryClient{http: client}
}

// execute posts one GraphQL document and decodes the named result object.
// Authorization failures, both transport-level and in userErrors, are
// translated to ErrAuthRequired here so callers never see vendor shapes.
func (c *wikifactoryClient) execute(ctx context.Context, document string, variables map[string]interface{}, root string, out interface{}) error {
	var envelope struct {
		Data   map[string]json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]interface{}{"query": document, "variables": variables}).
		SetResult(&envelope).
		Post("")
	if err != nil {
		return fmt.Errorf("%w: %v", transfer.ErrNotReachable, err)
	}
	if resp.StatusCode() == 401 {
		return fmt.Errorf("%w: wikifactory returned %d", transfer.ErrAuthRequired, resp.StatusCode())
	}
	if resp.IsError() {
		return fmt.Errorf("%w: wikifactory returned %d", transfer.ErrNotReachable, resp.StatusCode())
	}

	for _, gqlErr := range envelope.Errors {
		if containsAuthFailure(gqlErr.Message) {
			return fmt.Errorf("%w: %s", transfer.ErrAuthRequired, gqlErr.Message)
		}
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("%w: %s", transfer.ErrNotReachable, envelope.Errors[0].Message)
	}

	raw, ok := envelope.Data[root]
	if !ok || string(raw) == "null" {
		return fmt.Errorf("%w: empty result for %s", transfer.ErrNotReachable, root)
	}

	var result struct {
		UserErrors []wikifactoryUserError `json:"userErrors"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("%w: %v", transfer.ErrNotReachable, err)
	}
	for _, userErr := range result.UserErrors {
		switch userErr.Code {
		case "AUTHORISATION", "AUTHENTICATION", "NOTFOUND":
			return fmt.Errorf("%w: %s", transfer.ErrAuthRequired, userErr.Message)
		}
	}
	if len(result.UserErrors) > 0 {
		return fmt.Errorf("%w: %s", transfer.ErrNotReachable, result.UserErrors[0].Message)
	}

	return json.Unmarshal(raw, out)
}

var authFailureRegex = regexp.MustCompile(`unauthorized request|token is invalid`)

func containsAuthFailure(message string) bool {
	return authFailureRegex.MatchString(message)
}

type wikifactoryProject struct {
	ID      string
	SpaceID string
	Private bool
}

type wikifactoryTarget struct {
	gql     *wikifactoryClient
	token   string
	project wikifactoryProject
}

func (t *wikifactoryTarget) loadProject(ctx context.Context, space, slug string) error {
	var payload struct {
		Result *struct {
			ID      string `json:"id"`
			Private bool   `json:"private"`
			InSpace struct {
				ID string `json:"id"`
			} `json:"inSpace"`
		} `json:"result"`
	}
	err := t.gql.execute(ctx, wikifactoryProjectQuery,
		map[string]interface{}{"space": space, "slug": slug},
		"project", &payload)
	if err != nil {
		return err
	}
	if payload.Result == nil {
		return fmt.Errorf("%w: project %s/%s not found in wikifactory", transfer.ErrNotReachable, space, slug)
	}
	t.project = wikifactoryProject{
		ID:      payload.Result.ID,
		SpaceID: payload.Result.InSpace.ID,
		Private: payload.Result.Private,
	}
	return nil
}

// CreateFolder is a no-op, Wikifactory creates parent references implicitly
// on file creation.
func (t *wikifactoryTarget) CreateFolder(_ context.Context, _ string) error {
	return nil
}

func (t *wikifactoryTarget) CreateFile(ctx context.Context, info transfer.FileInfo) (transfer.FileTicket, error) {
	var payload struct {
		File *struct {
			ID        string `json:"id"`
			UploadURL string `json:"uploadUrl"`
		} `json:"file"`
	}
	err := t.gql.execute(ctx, wikifactoryFileMutation,
		map[string]interface{}{"fileInput": map[string]interface{}{
			"filename":    info.Name,
			"spaceId":     t.project.SpaceID,
			"size":        info.Size,
			"projectPath": info.RelPath,
			"gitHash":     info.Fingerprint,
			"completed":   false,
			"contentType": contentTypeFor(info.Name),
		}},
		"file", &payload)
	if err != nil {
		return transfer.FileTicket{}, err
	}
	if payload.File == nil || payload.File.ID == "" {
		return transfer.FileTicket{}, fmt.Errorf("%w: wikifactory file could not be created for %s", transfer.ErrNotReachable, info.RelPath)
	}
	if payload.File.UploadURL == "" {
		logger.Debugf("wikifactory already holds content for %s", info.RelPath)
	}
	return transfer.FileTicket{ID: payload.File.ID, UploadURL: payload.File.UploadURL}, nil
}

func (t *wikifactoryTarget) UploadContent(ctx context.Context, ticket transfer.FileTicket, localPath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}

	acl := "public-read"
	if t.project.Private {
		acl = "private"
	}

	// The upload URL is a presigned S3 URL, outside the GraphQL endpoint
	resp, err := resty.New().R().
		SetContext(ctx).
		SetHeader("x-amz-acl", acl).
		SetHeader("Content-Type", contentTypeFor(localPath)).
		SetBody(data).
		Put(ticket.UploadURL)
	if err != nil {
		return fmt.Errorf("%w: %v", transfer.ErrNotReachable, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: upload failed with %d", transfer.ErrNotReachable, resp.StatusCode())
	}
	return nil
}

// FinalizeFile registers the file in the project via an ADD operation and
// marks the upload as completed. Both steps run for dedupe hits too, the
// file record must exist even when the bytes were already present.
func (t *wikifactoryTarget) FinalizeFile(ctx context.Context, ticket transfer.FileTicket, info transfer.FileInfo) error {
	var operationPayload struct {
		Project *struct {
			ID string `json:"id"`
		} `json:"project"`
	}
	err := t.gql.execute(ctx, wikifactoryOperationMutation,
		map[string]interface{}{"operationData": map[string]interface{}{
			"fileId":    ticket.ID,
			"opType":    "ADD",
			"path":      info.RelPath,
			"projectId": t.project.ID,
		}},
		"operation", &operationPayload)
	if err != nil {
		return err
	}

	var completePayload struct {
		File *struct {
			ID string `json:"id"`
		} `json:"file"`
	}
	return t.gql.execute(ctx, wikifactoryFileMutation,
		map[string]interface{}{"fileInput": map[string]interface{}{
			"id":        ticket.ID,
			"spaceId":   t.project.SpaceID,
			"completed": true,
		}},
		"file", &completePayload)
}

// Commit creates the single contribution referencing every uploaded file
func (t *wikifactoryTarget) Commit(ctx context.Context) error {
	var payload struct {
		Project *struct {
			ID string `json:"id"`
		} `json:"project"`
	}
	return t.gql.execute(ctx, wikifactoryCommitMutation,
		map[string]interface{}{"commitData": map[string]interface{}{
			"projectId":   t.project.ID,
			"title":       "Import files",
			"description": "",
		}},
		"commit", &payload)
}

func contentTypeFor(name string) string {
	if ctype := mime.TypeByExtension(filepath.Ext(name)); ctype != "" {
		return ctype
	}
	return "application/octet-stream"
}
