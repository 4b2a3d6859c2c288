package repos

import (
	"context"
	"fmt"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/makernet/portage/internal/db/models"
)

// DBRepositoryTestSuite provides a base test suite for repository tests
type DBRepositoryTestSuite struct {
	suite.Suite
	db      *gorm.DB
	ctx     context.Context
	jobRepo *JobRepository

	jobSeq int
}

func (s *DBRepositoryTestSuite) SetupTest() {
	// A named in-memory database keeps every pooled connection on the same
	// data while isolating tests from each other
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", s.T().Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(s.T(), err, "Failed to create in-memory database")

	err = db.AutoMigrate(&models.Job{}, &models.JobLog{})
	require.NoError(s.T(), err, "Failed to run database migrations")

	s.db = db
	s.jobRepo = NewJobRepository(db, s.T().TempDir())
	s.ctx = context.Background()
}

func (s *DBRepositoryTestSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	if err == nil && sqlDB != nil {
		_ = sqlDB.Close()
	}
}

// createTestJob inserts a pending job with a unique import/export pair
func (s *DBRepositoryTestSuite) createTestJob() *models.Job {
	s.jobSeq++
	job := &models.Job{
		ImportService: "git",
		ImportURL:     fmt.Sprintf("https://github.com/example/project-%d", s.jobSeq),
		ExportService: "wikifactory",
		ExportURL:     fmt.Sprintf("https://wikifactory.com/@example/project-%d", s.jobSeq),
	}
	s.Require().NoError(s.jobRepo.Create(s.ctx, job))
	return job
}

// advanceTo walks the job through transitions until it holds the status
func (s *DBRepositoryTestSuite) advanceTo(job *models.Job, statuses ...models.JobStatus) {
	for _, status := range statuses {
		s.Require().NoError(s.jobRepo.UpdateStatus(s.ctx, job, status))
	}
}
