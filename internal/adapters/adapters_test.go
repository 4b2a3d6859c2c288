package adapters

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makernet/portage/internal/config"
	"github.com/makernet/portage/internal/transfer"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestRegistryCapabilities(t *testing.T) {
	registry := NewRegistry(testConfig(t))

	assert.Equal(t, []string{ServiceGit, ServiceGoogleDrive, ServiceDropbox, ServiceWikifactory},
		registry.Services())

	assert.True(t, registry.CanImport(ServiceGit))
	assert.True(t, registry.CanExport(ServiceGit))
	assert.True(t, registry.CanImport(ServiceGoogleDrive))
	assert.False(t, registry.CanExport(ServiceGoogleDrive))
	assert.True(t, registry.CanImport(ServiceDropbox))
	assert.True(t, registry.CanExport(ServiceDropbox))
	assert.False(t, registry.CanImport(ServiceWikifactory))
	assert.True(t, registry.CanExport(ServiceWikifactory))
}

func TestRegistryConstructsAdapters(t *testing.T) {
	registry := NewRegistry(testConfig(t))
	jobID := uuid.New()

	for _, id := range []string{ServiceGit, ServiceGoogleDrive, ServiceDropbox} {
		imp, err := registry.Importer(id, nil, jobID)
		require.NoError(t, err, "importer for %s", id)
		assert.NotNil(t, imp)
	}
	for _, id := range []string{ServiceGit, ServiceDropbox, ServiceWikifactory} {
		exp, err := registry.Exporter(id, nil, jobID)
		require.NoError(t, err, "exporter for %s", id)
		assert.NotNil(t, exp)
	}
}

func TestDiscoverService(t *testing.T) {
	registry := NewRegistry(testConfig(t))

	tests := []struct {
		url  string
		want string
	}{
		{"https://github.com/wikifactory/sample-project", ServiceGit},
		{"https://gitlab.com/wikifactory/sample-project", ServiceGit},
		{"https://drive.google.com/drive/folders/1a2B3c4D5e6F7g8H9i0JkLmNoPqRsTuVw", ServiceGoogleDrive},
		{"https://drive.google.com/drive/u/0/folders/1a2B3c4D5e6F7g8H9i0JkLmNoPqRsTuVw", ServiceGoogleDrive},
		{"https://www.dropbox.com/sh/abc123/AAAxyz-456", ServiceDropbox},
		{"https://www.dropbox.com/home/projects/gearbox", ServiceDropbox},
		{"https://wikifactory.com/@maker/gearbox", ServiceWikifactory},
		{"https://wikifactory.com/+openhardware/gearbox", ServiceWikifactory},
		{"https://example.com/not-a-service", transfer.ServiceUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, registry.DiscoverService(tt.url), "url %s", tt.url)
	}
}
