package repos

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/makernet/portage/internal/db/models"
)

type JobRepositoryTestSuite struct {
	DBRepositoryTestSuite
}

func TestJobRepository(t *testing.T) {
	suite.Run(t, new(JobRepositoryTestSuite))
}

func (s *JobRepositoryTestSuite) TestCreate() {
	job := s.createTestJob()

	s.NotEqual(uuid.Nil, job.ID)
	s.Equal(models.StatusPending, job.Status)
	s.NotEmpty(job.Path)

	// Creation writes the initial log entry with no from_status
	entries, err := s.jobRepo.GetLog(s.ctx, job.ID)
	s.NoError(err)
	s.Require().Len(entries, 1)
	s.Nil(entries[0].FromStatus)
	s.Equal(models.StatusPending, entries[0].ToStatus)
}

func (s *JobRepositoryTestSuite) TestCreateDuplicate() {
	job := s.createTestJob()

	dup := &models.Job{
		ImportService: job.ImportService,
		ImportURL:     job.ImportURL,
		ExportService: job.ExportService,
		ExportURL:     job.ExportURL,
	}
	err := s.jobRepo.Create(s.ctx, dup)
	s.ErrorIs(err, ErrJobDuplicated)

	// A terminal job frees the pair for a new one
	s.advanceTo(job, models.StatusImporting, models.StatusImportingSuccessfully,
		models.StatusExporting, models.StatusExportingSuccessfully,
		models.StatusFinishedSuccessfully)

	err = s.jobRepo.Create(s.ctx, dup)
	s.NoError(err)
}

func (s *JobRepositoryTestSuite) TestGetByID() {
	job := s.createTestJob()

	found, err := s.jobRepo.GetByID(s.ctx, job.ID)
	s.NoError(err)
	s.Equal(job.ID, found.ID)
	s.Equal(job.ImportURL, found.ImportURL)

	_, err = s.jobRepo.GetByID(s.ctx, uuid.New())
	s.ErrorIs(err, ErrJobNotFound)
}

func (s *JobRepositoryTestSuite) TestList() {
	s.createTestJob()
	s.createTestJob()

	jobs, err := s.jobRepo.List(s.ctx, nil)
	s.NoError(err)
	s.Len(jobs, 2)

	limited, err := s.jobRepo.List(s.ctx, &models.ListOptions{Limit: 1})
	s.NoError(err)
	s.Len(limited, 1)
}

func (s *JobRepositoryTestSuite) TestListUnfinished() {
	active := s.createTestJob()
	done := s.createTestJob()
	s.advanceTo(done, models.StatusImporting, models.StatusImportingSuccessfully,
		models.StatusExporting, models.StatusExportingSuccessfully,
		models.StatusFinishedSuccessfully)

	jobs, err := s.jobRepo.ListUnfinished(s.ctx)
	s.NoError(err)
	s.Require().Len(jobs, 1)
	s.Equal(active.ID, jobs[0].ID)
}

func (s *JobRepositoryTestSuite) TestUpdateStatusAppendsLog() {
	job := s.createTestJob()

	s.advanceTo(job, models.StatusImporting, models.StatusImportingErrorUnreachable)
	s.Equal(models.StatusImportingErrorUnreachable, job.Status)

	entries, err := s.jobRepo.GetLog(s.ctx, job.ID)
	s.NoError(err)
	s.Require().Len(entries, 3)

	s.Nil(entries[0].FromStatus)
	s.Equal(models.StatusPending, entries[0].ToStatus)

	s.Require().NotNil(entries[1].FromStatus)
	s.Equal(models.StatusPending, *entries[1].FromStatus)
	s.Equal(models.StatusImporting, entries[1].ToStatus)

	s.Require().NotNil(entries[2].FromStatus)
	s.Equal(models.StatusImporting, *entries[2].FromStatus)
	s.Equal(models.StatusImportingErrorUnreachable, entries[2].ToStatus)
}

func (s *JobRepositoryTestSuite) TestCounters() {
	job := s.createTestJob()

	s.NoError(s.jobRepo.SetTotalItems(s.ctx, job.ID, 3))
	s.NoError(s.jobRepo.IncrementImportedItems(s.ctx, job.ID))
	s.NoError(s.jobRepo.IncrementImportedItems(s.ctx, job.ID))
	s.NoError(s.jobRepo.IncrementExportedItems(s.ctx, job.ID))

	found, err := s.jobRepo.GetByID(s.ctx, job.ID)
	s.NoError(err)
	s.Equal(int64(3), found.TotalItems)
	s.Equal(int64(2), found.ImportedItems)
	s.Equal(int64(1), found.ExportedItems)
}

func (s *JobRepositoryTestSuite) TestRetry() {
	job := s.createTestJob()

	// Pending is not retriable
	err := s.jobRepo.Retry(s.ctx, job, nil)
	s.ErrorIs(err, ErrJobNotRetriable)

	s.advanceTo(job, models.StatusImporting, models.StatusImportingErrorAuthRequired)

	newToken := "fresh-token"
	err = s.jobRepo.Retry(s.ctx, job, &RetryParams{ImportToken: &newToken})
	s.NoError(err)
	s.Equal(models.StatusPending, job.Status)

	found, err := s.jobRepo.GetByID(s.ctx, job.ID)
	s.NoError(err)
	s.Equal(models.StatusPending, found.Status)
	s.Equal(newToken, found.ImportToken)
}

func (s *JobRepositoryTestSuite) TestCancel() {
	job := s.createTestJob()

	s.NoError(s.jobRepo.Cancel(s.ctx, job))
	s.Equal(models.StatusCancelling, job.Status)

	// Terminal jobs cannot be cancelled again
	err := s.jobRepo.Cancel(s.ctx, job)
	s.ErrorIs(err, ErrJobNotCancellable)
}

func (s *JobRepositoryTestSuite) TestHasRequestedAuthorization() {
	job := s.createTestJob()

	requested, err := s.jobRepo.HasRequestedAuthorization(s.ctx, job.ID)
	s.NoError(err)
	s.False(requested)

	s.advanceTo(job, models.StatusImporting, models.StatusImportingErrorAuthRequired)

	requested, err = s.jobRepo.HasRequestedAuthorization(s.ctx, job.ID)
	s.NoError(err)
	s.True(requested)
}
