package importers

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/makernet/portage/internal/db/models"
	"github.com/makernet/portage/internal/transfer"
)

// Dropbox URL recognizers: a shared folder link or a folder in the user's
// own Dropbox.
var (
	DropboxSharedFolderRegex = regexp.MustCompile(
		`^https?://(www\.)?dropbox\.com/sh/[\w]+/[\w-]+`)
	DropboxUserFolderRegex = regexp.MustCompile(
		`^https?://(www\.)?dropbox\.com/home/(?P<path>.+)$`)
)

// DropboxImporter mirrors a Dropbox folder into the job's working directory
// using the Dropbox HTTP API.
type DropboxImporter struct {
	jobs       transfer.JobAccessor
	jobID      uuid.UUID
	apiURL     string
	contentURL string
	engine     transfer.Engine
}

// NewDropboxImporter creates the Dropbox importer for one job. The API and
// content endpoints are overridable for tests.
func NewDropboxImporter(jobs transfer.JobAccessor, jobID uuid.UUID, apiURL, contentURL string, parallelism int) *DropboxImporter {
	return &DropboxImporter{
		jobs:       jobs,
		jobID:      jobID,
		apiURL:     apiURL,
		contentURL: contentURL,
		engine:     transfer.Engine{Parallelism: parallelism},
	}
}

// Process runs the import phase against Dropbox
func (i *DropboxImporter) Process(ctx context.Context) error {
	job, err := i.jobs.GetByID(ctx, i.jobID)
	if err != nil {
		return err
	}
	if err := i.jobs.UpdateStatus(ctx, job, models.StatusImporting); err != nil {
		return err
	}

	src := &dropboxSource{
		api:     resty.New().SetBaseURL(i.apiURL).SetAuthToken(job.ImportToken),
		content: resty.New().SetBaseURL(i.contentURL).SetAuthToken(job.ImportToken),
	}

	// The root reference is either the shared link itself or the path of a
	// folder in the user's Dropbox; children are listed by entry id.
	var rootID string
	switch {
	case DropboxSharedFolderRegex.MatchString(job.ImportURL):
		src.sharedLink = job.ImportURL
		rootID = dropboxSharedRoot
	case DropboxUserFolderRegex.MatchString(job.ImportURL):
		match := DropboxUserFolderRegex.FindStringSubmatch(job.ImportURL)
		rootID = "/" + match[DropboxUserFolderRegex.SubexpIndex("path")]
	default:
		return fmt.Errorf("%w: %s is not a dropbox folder url", transfer.ErrValidationFailed, job.ImportURL)
	}

	if _, err := i.engine.Import(ctx, src, rootID, job.Path, transfer.Progress(i.jobs, i.jobID)); err != nil {
		return err
	}

	return i.jobs.UpdateStatus(ctx, job, models.StatusImportingSuccessfully)
}

// dropboxSharedRoot marks the root of a shared-link tree, which is listed
// with an empty path plus the shared_link parameter.
const dropboxSharedRoot = ""

type dropboxSource struct {
	api        *resty.Client
	content    *resty.Client
	sharedLink string
}

type dropboxEntry struct {
	Tag  string `json:".tag"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

type dropboxListing struct {
	Entries []dropboxEntry `json:"entries"`
	Cursor  string         `json:"cursor"`
	HasMore bool           `json:"has_more"`
}

func (s *dropboxSource) ListChildren(ctx context.Context, folderID, pageToken string) ([]transfer.Entry, string, error) {
	var listing dropboxListing
	var resp *resty.Response
	var err error

	if pageToken != "" {
		resp, err = s.api.R().
			SetContext(ctx).
			SetBody(map[string]string{"cursor": pageToken}).
			SetResult(&listing).
			Post("/2/files/list_folder/continue")
	} else {
		body := map[string]interface{}{"path": folderID}
		if folderID == dropboxSharedRoot && s.sharedLink != "" {
			body["shared_link"] = map[string]string{"url": s.sharedLink}
		}
		resp, err = s.api.R().
			SetContext(ctx).
			SetBody(body).
			SetResult(&listing).
			Post("/2/files/list_folder")
	}
	if err := classifyDropboxResponse(resp, err); err != nil {
		return nil, "", err
	}

	entries := make([]transfer.Entry, 0, len(listing.Entries))
	for _, e := range listing.Entries {
		kind := transfer.KindFile
		if e.Tag == "folder" {
			kind = transfer.KindFolder
		}
		entries = append(entries, transfer.Entry{ID: e.ID, Name: e.Name, Kind: kind})
	}

	next := ""
	if listing.HasMore {
		next = listing.Cursor
	}
	return entries, next, nil
}

func (s *dropboxSource) FetchFile(ctx context.Context, fileID, localPath string) error {
	arg, err := json.Marshal(map[string]string{"path": fileID})
	if err != nil {
		return err
	}
	resp, err := s.content.R().
		SetContext(ctx).
		SetHeader("Dropbox-API-Arg", string(arg)).
		SetOutput(localPath).
		Post("/2/files/download")
	return classifyDropboxResponse(resp, err)
}

func classifyDropboxResponse(resp *resty.Response, err error) error {
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
