package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Worker.Count)
	assert.NotEmpty(t, cfg.Downloads.BasePath)
	assert.NotEmpty(t, cfg.Services.WikifactoryAPIURL)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PORTAGE_SERVER_PORT", "9090")
	t.Setenv("PORTAGE_DATABASE_NAME", "portage_test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "portage_test", cfg.Database.Name)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.local",
		Port:     5433,
		User:     "portage",
		Password: "secret",
		Name:     "portage",
		SSLMode:  "disable",
	}
	assert.Equal(t,
		"host=db.local user=portage password=secret dbname=portage port=5433 sslmode=disable",
		cfg.DSN())
}
