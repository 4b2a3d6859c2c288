// Package adapters wires the concrete import/export adapters into the
// service registry.
package adapters

import (
	"regexp"

	"github.com/google/uuid"

	"github.com/makernet/portage/internal/config"
	"github.com/makernet/portage/internal/exporters"
	"github.com/makernet/portage/internal/importers"
	"github.com/makernet/portage/internal/transfer"
)

// Service identifiers
const (
	ServiceGit         = "git"
	ServiceGoogleDrive = "google_drive"
	ServiceDropbox     = "dropbox"
	ServiceWikifactory = "wikifactory"
)

// fileParallelism bounds concurrent sibling downloads inside one job
const fileParallelism = 4

// NewRegistry builds the registry of every supported service
func NewRegistry(cfg *config.Config) *transfer.Registry {
	registry := transfer.NewRegistry()

	registry.Register(transfer.Service{
		ID: ServiceGit,
		Recognizers: []*regexp.Regexp{
			exporters.GitRepoRegex,
		},
		NewImporter: func(jobs transfer.JobAccessor, jobID uuid.UUID) transfer.Importer {
			return importers.NewGitImporter(jobs, jobID)
		},
		NewExporter: func(jobs transfer.JobAccessor, jobID uuid.UUID) transfer.Exporter {
			return exporters.NewGitExporter(jobs, jobID, cfg.Services.GitUser, cfg.Services.GitEmail)
		},
	})

	registry.Register(transfer.Service{
		ID: ServiceGoogleDrive,
		Recognizers: []*regexp.Regexp{
			importers.GoogleDriveFolderRegex,
		},
		NewImporter: func(jobs transfer.JobAccessor, jobID uuid.UUID) transfer.Importer {
			return importers.NewGoogleDriveImporter(jobs, jobID, cfg.Services.GoogleDriveAPIURL, fileParallelism)
		},
	})

	registry.Register(transfer.Service{
		ID: ServiceDropbox,
		Recognizers: []*regexp.Regexp{
			importers.DropboxSharedFolderRegex,
			importers.DropboxUserFolderRegex,
		},
		NewImporter: func(jobs transfer.JobAccessor, jobID uuid.UUID) transfer.Importer {
			return importers.NewDropboxImporter(jobs, jobID,
				cfg.Services.DropboxAPIURL, cfg.Services.DropboxContentURL, fileParallelism)
		},
		NewExporter: func(jobs transfer.JobAccessor, jobID uuid.UUID) transfer.Exporter {
			return exporters.NewDropboxExporter(jobs, jobID, cfg.Services.DropboxContentURL)
		},
	})

	registry.Register(transfer.Service{
		ID: ServiceWikifactory,
		Recognizers: []*regexp.Regexp{
			exporters.WikifactoryProjectRegex,
		},
		NewExporter: func(jobs transfer.JobAccessor, jobID uuid.UUID) transfer.Exporter {
			return exporters.NewWikifactoryExporter(jobs, jobID, cfg.Services.WikifactoryAPIURL)
		},
	})

	return registry
}
