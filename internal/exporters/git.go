package exporters

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"time"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/google/uuid"

	"github.com/makernet/portage/internal/db/models"
	"github.com/makernet/portage/internal/transfer"
)

// GitRepoRegex recognizes GitHub/GitLab repository URLs
var GitRepoRegex = regexp.MustCompile(
	`^https?://(www\.)?git(hub|lab)\.com/(?P<organization>[\w-]+)/(?P<project>[\w-]+)`)

// GitExporter publishes the job's local tree as the initial commit of a git
// repository and pushes it to the destination URL.
type GitExporter struct {
	jobs      transfer.JobAccessor
	jobID     uuid.UUID
	userName  string
	userEmail string
}

// NewGitExporter creates the git exporter for one job. userName and
// userEmail identify the commit author.
func NewGitExporter(jobs transfer.JobAccessor, jobID uuid.UUID, userName, userEmail string) *GitExporter {
	return &GitExporter{jobs: jobs, jobID: jobID, userName: userName, userEmail: userEmail}
}

// Process runs the export phase against a git remote
func (e *GitExporter) Process(ctx context.Context) error {
	job, err := e.jobs.GetByID(ctx, e.jobID)
	if err != nil {
		return err
	}
	if err := e.jobs.UpdateStatus(ctx, job, models.StatusExporting); err != nil {
		return err
	}

	if err := e.pushToRemote(ctx, job); err != nil {
		return classifyGitError(err)
	}

	// The push transferred the whole tree in one operation; commit the
	// per-file progress afterwards.
	if err := e.recordExportedFiles(ctx, job.Path); err != nil {
		return err
	}

	return e.jobs.UpdateStatus(ctx, job, models.StatusExportingSuccessfully)
}

func (e *GitExporter) pushToRemote(ctx context.Context, job *models.Job) error {
	repo, err := git.PlainInit(job.Path, false)
	if errors.Is(err, git.ErrRepositoryAlreadyExists) {
		// A previous attempt got as far as the local commit
		repo, err = git.PlainOpen(job.Path)
	}
	if err != nil {
		return err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return err
	}
	if err := worktree.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return err
	}

	status, err := worktree.Status()
	if err != nil {
		return err
	}
	if !status.IsClean() {
		_, err = worktree.Commit("Initial commit from imported project", &git.CommitOptions{
			Author: &object.Signature{
				Name:  e.userName,
				Email: e.userEmail,
				When:  time.Now(),
			},
		})
		if err != nil {
			return err
		}
	}

	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{job.ExportURL},
	})
	if err != nil && !errors.Is(err, git.ErrRemoteExists) {
		return err
	}

	pushOpts := &git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []gitconfig.RefSpec{"refs/heads/master:refs/heads/main"},
	}
	if job.ExportToken != "" {
		pushOpts.Auth = &githttp.BasicAuth{Username: "token", Password: job.ExportToken}
	}

	err = repo.PushContext(ctx, pushOpts)
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}

func (e *GitExporter) recordExportedFiles(ctx context.Context, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		return e.jobs.IncrementExportedItems(ctx, e.jobID)
	})
}

func classifyGitError(err error) error {
	switch {
	case errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed):
		return fmt.Errorf("%w: %v", transfer.ErrAuthRequired, err)
	default:
		return fmt.Errorf("%w: %v", transfer.ErrNotReachable, err)
	}
}
