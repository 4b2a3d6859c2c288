package importers

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makernet/portage/internal/db/models"
	"github.com/makernet/portage/internal/transfer"
)

// memJobs is an in-memory JobAccessor for adapter tests. The engine
// increments counters from concurrent transfer goroutines, so every
// access goes through the mutex.
type memJobs struct {
	mu  sync.Mutex
	job *models.Job
}

func (m *memJobs) GetByID(_ context.Context, _ uuid.UUID) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *m.job
	return &copy, nil
}

func (m *memJobs) UpdateStatus(_ context.Context, _ *models.Job, status models.JobStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.job.Status = status
	return nil
}

func (m *memJobs) SetTotalItems(_ context.Context, _ uuid.UUID, total int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.job.TotalItems = total
	return nil
}

func (m *memJobs) IncrementImportedItems(_ context.Context, _ uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.job.ImportedItems++
	return nil
}

func (m *memJobs) IncrementExportedItems(_ context.Context, _ uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.job.ExportedItems++
	return nil
}

// snapshot returns a copy of the job for assertions after concurrent runs.
func (m *memJobs) snapshot() models.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.job
}

// initSourceRepo creates an on-disk git repository with two committed files
func initSourceRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs", "manual.txt"), []byte("world"), 0o644))

	worktree, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, worktree.AddWithOptions(&git.AddOptions{All: true}))
	_, err = worktree.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com"},
	})
	require.NoError(t, err)

	return dir
}

func TestGitImporterClonesWorkingTree(t *testing.T) {
	source := initSourceRepo(t)
	workdir := filepath.Join(t.TempDir(), "job")

	jobs := &memJobs{job: &models.Job{
		ID:            uuid.New(),
		ImportService: "git",
		ImportURL:     source,
		Status:        models.StatusPending,
		Path:          workdir,
	}}

	importer := NewGitImporter(jobs, jobs.job.ID)
	require.NoError(t, importer.Process(context.Background()))

	assert.Equal(t, models.StatusImportingSuccessfully, jobs.job.Status)
	assert.Equal(t, int64(2), jobs.job.TotalItems)
	assert.Equal(t, int64(2), jobs.job.ImportedItems)

	// The files are mirrored, the git metadata is not
	data, err := os.ReadFile(filepath.Join(workdir, "readme.md"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = os.Stat(filepath.Join(workdir, ".git"))
	assert.True(t, os.IsNotExist(err))
}

func TestGitImporterUnreachableSource(t *testing.T) {
	jobs := &memJobs{job: &models.Job{
		ID:        uuid.New(),
		ImportURL: filepath.Join(t.TempDir(), "missing"),
		Status:    models.StatusPending,
		Path:      filepath.Join(t.TempDir(), "job"),
	}}

	importer := NewGitImporter(jobs, jobs.job.ID)
	err := importer.Process(context.Background())
	assert.ErrorIs(t, err, transfer.ErrNotReachable)
	assert.Equal(t, models.StatusImporting, jobs.job.Status)
}
