package importers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makernet/portage/internal/db/models"
	"github.com/makernet/portage/internal/transfer"
)

func TestFolderIDFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://drive.google.com/drive/folders/1a2B3c4D5e6F7g8H9i0JkLmNoPqRsTuVw", "1a2B3c4D5e6F7g8H9i0JkLmNoPqRsTuVw"},
		{"https://drive.google.com/drive/u/0/folders/1a2B3c4D5e6F7g8H9i0JkLmNoPqRsTuVw", "1a2B3c4D5e6F7g8H9i0JkLmNoPqRsTuVw"},
		{"https://drive.google.com/drive/folders/short", ""},
		{"https://example.com/drive/folders/1a2B3c4D5e6F7g8H9i0JkLmNoPqRsTuVw", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FolderIDFromURL(tt.url), "url %s", tt.url)
	}
}

// newDriveServer serves a minimal Drive v3 API over one folder containing a
// subfolder with one file
func newDriveServer(t *testing.T) *httptest.Server {
	t.Helper()

	const rootID = "1a2B3c4D5e6F7g8H9i0JkLmNoPqRsTuVw"

	listings := map[string][]driveFile{
		rootID: {
			{ID: "folder-1", Name: "docs", MimeType: driveFolderMimeType},
			{ID: "file-1", Name: "readme.md", MimeType: "text/markdown"},
		},
		"folder-1": {
			{ID: "file-2", Name: "manual.txt", MimeType: "text/plain"},
		},
	}
	contents := map[string]string{
		"file-1": "hello",
		"file-2": "world",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/files", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		q := r.URL.Query().Get("q")
		for folderID, files := range listings {
			if strings.Contains(q, fmt.Sprintf("'%s' in parents", folderID)) {
				_ = json.NewEncoder(w).Encode(driveFileList{Files: files})
				return
			}
		}
		_ = json.NewEncoder(w).Encode(driveFileList{})
	})
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		fileID := strings.TrimPrefix(r.URL.Path, "/files/")
		content, ok := contents[fileID]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(content))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestGoogleDriveImporterMirrorsFolder(t *testing.T) {
	server := newDriveServer(t)
	workdir := filepath.Join(t.TempDir(), "job")

	jobs := &memJobs{job: &models.Job{
		ID:        uuid.New(),
		ImportURL: "https://drive.google.com/drive/folders/1a2B3c4D5e6F7g8H9i0JkLmNoPqRsTuVw",
		Status:    models.StatusPending,
		Path:      workdir,
	}}

	importer := NewGoogleDriveImporter(jobs, jobs.job.ID, server.URL, 2)
	require.NoError(t, importer.Process(context.Background()))

	job := jobs.snapshot()
	assert.Equal(t, models.StatusImportingSuccessfully, job.Status)
	assert.Equal(t, int64(2), job.TotalItems)
	assert.Equal(t, int64(2), job.ImportedItems)

	data, err := os.ReadFile(filepath.Join(workdir, "readme.md"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	data, err = os.ReadFile(filepath.Join(workdir, "docs", "manual.txt"))
	require.NoError(t, err)
	assert.Equal(t, "world", string(data))
}

func TestGoogleDriveImporterInvalidURL(t *testing.T) {
	jobs := &memJobs{job: &models.Job{
		ID:        uuid.New(),
		ImportURL: "https://example.com/not-drive",
		Status:    models.StatusPending,
		Path:      t.TempDir(),
	}}

	importer := NewGoogleDriveImporter(jobs, jobs.job.ID, "http://localhost:0", 1)
	err := importer.Process(context.Background())
	assert.ErrorIs(t, err, transfer.ErrValidationFailed)
}

func TestGoogleDriveImporterAuthRequired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	jobs := &memJobs{job: &models.Job{
		ID:        uuid.New(),
		ImportURL: "https://drive.google.com/drive/folders/1a2B3c4D5e6F7g8H9i0JkLmNoPqRsTuVw",
		Status:    models.StatusPending,
		Path:      t.TempDir(),
	}}

	importer := NewGoogleDriveImporter(jobs, jobs.job.ID, server.URL, 1)
	err := importer.Process(context.Background())
	assert.ErrorIs(t, err, transfer.ErrAuthRequired)
}
