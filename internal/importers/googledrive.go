package importers

import (
	"context"
	"fmt"
	"regexp"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/makernet/portage/internal/db/models"
	"github.com/makernet/portage/internal/transfer"
)

// GoogleDriveFolderRegex recognizes shared Drive folder URLs
var GoogleDriveFolderRegex = regexp.MustCompile(
	`^https?://drive\.google\.com/drive/(u/[0-9]+/)?folders/(?P<folder_id>[-\w]{25,})`)

const driveFolderMimeType = "application/vnd.google-apps.folder"

// GoogleDriveImporter mirrors a shared Google Drive folder into the job's
// working directory using the Drive v3 REST API.
type GoogleDriveImporter struct {
	jobs    transfer.JobAccessor
	jobID   uuid.UUID
	baseURL string
	engine  transfer.Engine
}

// NewGoogleDriveImporter creates the Drive importer for one job. baseURL is
// the Drive v3 API root, overridable for tests.
func NewGoogleDriveImporter(jobs transfer.JobAccessor, jobID uuid.UUID, baseURL string, parallelism int) *GoogleDriveImporter {
	return &GoogleDriveImporter{
		jobs:    jobs,
		jobID:   jobID,
		baseURL: baseURL,
		engine:  transfer.Engine{Parallelism: parallelism},
	}
}

// FolderIDFromURL extracts the Drive folder id, or "" when the URL is not a
// recognized Drive folder URL.
func FolderIDFromURL(url string) string {
	match := GoogleDriveFolderRegex.FindStringSubmatch(url)
	if match == nil {
		return ""
	}
	return match[GoogleDriveFolderRegex.SubexpIndex("folder_id")]
}

// Process runs the import phase against Drive
func (i *GoogleDriveImporter) Process(ctx context.Context) error {
	job, err := i.jobs.GetByID(ctx, i.jobID)
	if err != nil {
		return err
	}
	if err := i.jobs.UpdateStatus(ctx, job, models.StatusImporting); err != nil {
		return err
	}

	folderID := FolderIDFromURL(job.ImportURL)
	if folderID == "" {
		return fmt.Errorf("%w: %s is not a google drive folder url", transfer.ErrValidationFailed, job.ImportURL)
	}

	client := resty.New().SetBaseURL(i.baseURL)
	if job.ImportToken != "" {
		client.SetAuthToken(job.ImportToken)
	}
	src := &driveSource{client: client}

	if _, err := i.engine.Import(ctx, src, folderID, job.Path, transfer.Progress(i.jobs, i.jobID)); err != nil {
		return err
	}

	return i.jobs.UpdateStatus(ctx, job, models.StatusImportingSuccessfully)
}

type driveSource struct {
	client *resty.Client
}

type driveFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
}

type driveFileList struct {
	NextPageToken string      `json:"nextPageToken"`
	Files         []driveFile `json:"files"`
}

func (s *driveSource) ListChildren(ctx context.Context, folderID, pageToken string) ([]transfer.Entry, string, error) {
	var list driveFileList
	req := s.client.R().
		SetContext(ctx).
		SetQueryParam("q", fmt.Sprintf("'%s' in parents and trashed=false", folderID)).
		SetQueryParam("fields", "nextPageToken,files(id,name,mimeType)").
		SetResult(&list)
	if pageToken != "" {
		req.SetQueryParam("pageToken", pageToken)
	}

	resp, err := req.Get("/files")
	if err := classifyDriveResponse(resp, err); err != nil {
		return nil, "", err
	}

	entries := make([]transfer.Entry, 0, len(list.Files))
	for _, f := range list.Files {
		kind := transfer.KindFile
		if f.MimeType == driveFolderMimeType {
			kind = transfer.KindFolder
		}
		entries = append(entries, transfer.Entry{ID: f.ID, Name: f.Name, Kind: kind})
	}
	return entries, list.NextPageToken, nil
}

func (s *driveSource) FetchFile(ctx context.Context, fileID, localPath string) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("alt", "media").
		SetOutput(localPath).
		Get("/files/" + fileID)
	return classifyDriveResponse(resp, err)
}

func classifyDriveResponse(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %v", transfer.ErrNotReachable, err)
	}
	switch {
	case resp.StatusCode() == 401 || resp.StatusCode() == 403:
		return fmt.Errorf("%w: google drive returned %d", transfer.ErrAuthRequired, resp.StatusCode())
	case resp.IsError():
		return fmt.Errorf("%w: google drive returned %d", transfer.ErrNotReachable, resp.StatusCode())
	}
	return nil
}
