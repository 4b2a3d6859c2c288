package transfer

import (
	"context"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopImporter struct{}

func (nopImporter) Process(context.Context) error { return nil }

func testRegistry() *Registry {
	r := NewRegistry()
	r.Register(Service{
		ID:          "git",
		Recognizers: []*regexp.Regexp{regexp.MustCompile(`github\.com|gitlab\.com`)},
		NewImporter: func(JobAccessor, uuid.UUID) Importer { return nopImporter{} },
	})
	r.Register(Service{
		ID:          "dropbox",
		Recognizers: []*regexp.Regexp{regexp.MustCompile(`dropbox\.com`)},
	})
	return r
}

func TestRegistryCapabilities(t *testing.T) {
	r := testRegistry()

	assert.Equal(t, []string{"git", "dropbox"}, r.Services())

	assert.True(t, r.CanImport("git"))
	assert.False(t, r.CanExport("git"))
	assert.False(t, r.CanImport("dropbox"))
	assert.False(t, r.CanImport("unregistered"))

	imp, err := r.Importer("git", nil, uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, imp)

	_, err = r.Importer("dropbox", nil, uuid.New())
	assert.Error(t, err)

	_, err = r.Exporter("git", nil, uuid.New())
	assert.Error(t, err)
}

func TestDiscoverService(t *testing.T) {
	r := testRegistry()

	tests := []struct {
		url  string
		want string
	}{
		{"https://github.com/example/project", "git"},
		{"https://gitlab.com/example/project", "git"},
		{"https://www.dropbox.com/sh/abc/xyz", "dropbox"},
		{"https://example.com/whatever", ServiceUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.DiscoverService(tt.url), "url %s", tt.url)
	}
}
