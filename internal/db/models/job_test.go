package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJobStatus(t *testing.T) {
	for _, status := range allJobStatuses {
		parsed, err := ParseJobStatus(string(status))
		require.NoError(t, err)
		assert.Equal(t, status, parsed)
	}

	_, err := ParseJobStatus("not-a-status")
	assert.Error(t, err)
}

func TestJobStatusSets(t *testing.T) {
	tests := []struct {
		status    JobStatus
		terminal  bool
		retriable bool
		canImport bool
		canExport bool
	}{
		{StatusPending, false, false, true, false},
		{StatusImporting, false, false, false, false},
		{StatusImportingErrorAuthRequired, false, true, true, false},
		{StatusImportingErrorUnreachable, false, true, true, false},
		{StatusImportingSuccessfully, false, false, false, true},
		{StatusExporting, false, false, false, false},
		{StatusExportingErrorAuthRequired, false, true, false, true},
		{StatusExportingErrorUnreachable, false, true, false, true},
		{StatusExportingSuccessfully, false, false, false, false},
		{StatusFinishedSuccessfully, true, false, false, false},
		{StatusCancelling, true, false, false, false},
		{StatusCancelled, true, false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
			assert.Equal(t, tt.retriable, tt.status.IsRetriable())
			assert.Equal(t, tt.canImport, tt.status.CanImport())
			assert.Equal(t, tt.canExport, tt.status.CanExport())
		})
	}
}

func TestJobIsActive(t *testing.T) {
	assert.True(t, (&Job{Status: StatusPending}).IsActive())
	assert.True(t, (&Job{Status: StatusImportingErrorUnreachable}).IsActive())
	assert.False(t, (&Job{Status: StatusFinishedSuccessfully}).IsActive())
	assert.False(t, (&Job{Status: StatusCancelling}).IsActive())
	assert.False(t, (&Job{Status: StatusCancelled}).IsActive())
}

func TestGeneralProgress(t *testing.T) {
	tests := []struct {
		status JobStatus
		want   float64
	}{
		{StatusPending, 0},
		{StatusImporting, 0.25},
		{StatusImportingErrorAuthRequired, 0.25},
		{StatusImportingErrorUnreachable, 0.25},
		{StatusImportingSuccessfully, 0.5},
		{StatusExporting, 0.75},
		{StatusExportingErrorAuthRequired, 0.75},
		{StatusExportingErrorUnreachable, 0.75},
		{StatusExportingSuccessfully, 1},
		{StatusFinishedSuccessfully, 1},
		{StatusCancelling, 1},
		{StatusCancelled, 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			job := &Job{Status: tt.status}
			assert.Equal(t, tt.want, job.GeneralProgress())
		})
	}
}

func TestStatusProgress(t *testing.T) {
	// Unknown total reports zero
	job := &Job{Status: StatusImporting, ImportedItems: 3}
	assert.Zero(t, job.StatusProgress())

	// Import phase counts imported items
	job = &Job{Status: StatusImporting, TotalItems: 4, ImportedItems: 1}
	assert.Equal(t, 0.25, job.StatusProgress())

	// Error statuses keep the last committed fraction
	job = &Job{Status: StatusImportingErrorUnreachable, TotalItems: 4, ImportedItems: 2}
	assert.Equal(t, 0.5, job.StatusProgress())

	// Export phase counts exported items even with imports complete
	job = &Job{Status: StatusExporting, TotalItems: 4, ImportedItems: 4, ExportedItems: 3}
	assert.Equal(t, 0.75, job.StatusProgress())

	job = &Job{Status: StatusFinishedSuccessfully, TotalItems: 4, ExportedItems: 4}
	assert.Equal(t, 1.0, job.StatusProgress())

	// Pending has no phase counter
	job = &Job{Status: StatusPending, TotalItems: 4}
	assert.Zero(t, job.StatusProgress())
}

func TestJobValidate(t *testing.T) {
	job := &Job{
		ImportService: "git",
		ImportURL:     "https://github.com/example/project",
		ExportService: "wikifactory",
		ExportURL:     "https://wikifactory.com/@example/project",
	}
	assert.NoError(t, job.Validate())

	for _, mutate := range []func(*Job){
		func(j *Job) { j.ImportService = "" },
		func(j *Job) { j.ImportURL = "" },
		func(j *Job) { j.ExportService = "" },
		func(j *Job) { j.ExportURL = "" },
	} {
		broken := *job
		mutate(&broken)
		assert.Error(t, broken.Validate())
	}
}
