// Package db provides database connectivity and schema migration
package db

import (
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/makernet/portage/internal/db/models"
)

// New creates a new database connection for the given PostgreSQL DSN and
// runs the schema migrations.
func New(dsn string) (*gorm.DB, error) {
	// Custom logger that ignores record not found errors
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate runs the schema migrations for all models
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Job{},
		&models.JobLog{},
	)
}
