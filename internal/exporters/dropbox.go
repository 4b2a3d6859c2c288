package exporters

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/makernet/portage/internal/db/models"
	"github.com/makernet/portage/internal/transfer"
)

const dropboxHomePrefix = "https://www.dropbox.com/home"

// DropboxExporter uploads the job's local tree under a folder of the user's
// Dropbox. Only user-folder destination URLs are accepted, shared links
// cannot be written to.
type DropboxExporter struct {
	jobs       transfer.JobAccessor
	jobID      uuid.UUID
	contentURL string
	engine     transfer.Engine
}

// NewDropboxExporter creates the Dropbox exporter for one job
func NewDropboxExporter(jobs transfer.JobAccessor, jobID uuid.UUID, contentURL string) *DropboxExporter {
	return &DropboxExporter{jobs: jobs, jobID: jobID, contentURL: contentURL, engine: transfer.Engine{}}
}

// Process runs the export phase against Dropbox
func (e *DropboxExporter) Process(ctx context.Context) error {
	job, err := e.jobs.GetByID(ctx, e.jobID)
	if err != nil {
		return err
	}
	if err := e.jobs.UpdateStatus(ctx, job, models.StatusExporting); err != nil {
		return err
	}

	if !strings.HasPrefix(job.ExportURL, dropboxHomePrefix) {
		return fmt.Errorf("%w: %s is not a dropbox home folder url", transfer.ErrValidationFailed, job.ExportURL)
	}
	rootPath := strings.TrimPrefix(job.ExportURL, dropboxHomePrefix)

	target := &dropboxTarget{
		content:  resty.New().SetBaseURL(e.contentURL).SetAuthToken(job.ExportToken),
		rootPath: rootPath,
	}

	if err := e.engine.Export(ctx, target, job.Path, transfer.Progress(e.jobs, e.jobID)); err != nil {
		return err
	}

	return e.jobs.UpdateStatus(ctx, job, models.StatusExportingSuccessfully)
}

type dropboxTarget struct {
	content  *resty.Client
	rootPath string
}

// CreateFolder is a no-op, Dropbox creates parent folders implicitly on
// file upload.
func (t *dropboxTarget) CreateFolder(_ context.Context, _ string) error {
	return nil
}

// CreateFile returns a ticket addressing the destination path; Dropbox has
// no separate creation step, the upload itself registers the file.
func (t *dropboxTarget) CreateFile(_ context.Context, info transfer.FileInfo) (transfer.FileTicket, error) {
	dest := path.Join(t.rootPath, info.RelPath)
	return transfer.FileTicket{ID: dest, UploadURL: dest}, nil
}

func (t *dropboxTarget) UploadContent(ctx context.Context, ticket transfer.FileTicket, localPath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	arg, err := json.Marshal(map[string]interface{}{
		"path": ticket.ID,
		"mode": "overwrite",
	})
	if err != nil {
		return err
	}

	resp, err := t.content.R().
		SetContext(ctx).
		SetHeader("Dropbox-API-Arg", string(arg)).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(data).
		Post("/2/files/upload")
	if err != nil {
		return fmt.Errorf("%w: %v", transfer.ErrNotReachable, err)
	}
	switch {
	case resp.StatusCode() == 401:
		return fmt.Errorf("%w: dropbox returned %d", transfer.ErrAuthRequired, resp.StatusCode())
	case resp.IsError():
		return fmt.Errorf("%w: dropbox returned %d", transfer.ErrNotReachable, resp.StatusCode())
	}
	return nil
}

func (t *dropboxTarget) FinalizeFile(_ context.Context, _ transfer.FileTicket, _ transfer.FileInfo) error {
	return nil
}

func (t *dropboxTarget) Commit(_ context.Context) error {
	return nil
}
