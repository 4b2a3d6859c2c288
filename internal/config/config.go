// Package config loads the application configuration from environment
// variables and an optional .env file.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the full application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Downloads DownloadsConfig `mapstructure:"downloads"`
	Services  ServicesConfig  `mapstructure:"services"`
}

// ServerConfig holds the HTTP server settings
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DatabaseConfig holds the PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
}

// WorkerConfig holds the job worker pool settings
type WorkerConfig struct {
	Count     int `mapstructure:"count"`
	QueueSize int `mapstructure:"queue_size"`
}

// DownloadsConfig holds the local working directory settings
type DownloadsConfig struct {
	BasePath string `mapstructure:"base_path"`
}

// ServicesConfig holds the per-service endpoint settings. The endpoints are
// overridable so tests can point the vendor clients at local servers.
type ServicesConfig struct {
	WikifactoryAPIURL string `mapstructure:"wikifactory_api_url"`
	DropboxAPIURL     string `mapstructure:"dropbox_api_url"`
	DropboxContentURL string `mapstructure:"dropbox_content_url"`
	GoogleDriveAPIURL string `mapstructure:"google_drive_api_url"`
	GitUser           string `mapstructure:"git_user"`
	GitEmail          string `mapstructure:"git_email"`
}

// Load reads the configuration from the environment. A .env file in the
// working directory is honored when present.
func Load() (*Config, error) {
	// Missing .env is fine, the environment may be set directly
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PORTAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "portage")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("worker.count", 4)
	v.SetDefault("worker.queue_size", 64)

	v.SetDefault("downloads.base_path", "/tmp/portage")

	v.SetDefault("services.wikifactory_api_url", "https://wikifactory.com/api/graphql")
	v.SetDefault("services.dropbox_api_url", "https://api.dropboxapi.com")
	v.SetDefault("services.dropbox_content_url", "https://content.dropboxapi.com")
	v.SetDefault("services.google_drive_api_url", "https://www.googleapis.com/drive/v3")
	v.SetDefault("services.git_user", "portage-exporter")
	v.SetDefault("services.git_email", "exporter@portage.local")
}
