// Runs the database schema migration and exits.
// How to run:
// go run cmd/migrate/main.go
package main

import (
	"fmt"
	"os"

	"github.com/makernet/portage/internal/config"
	"github.com/makernet/portage/internal/db"
	"github.com/makernet/portage/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logger.Initialize()

	if _, err := db.New(cfg.Database.DSN()); err != nil {
		logger.Fatalf("migration failed: %v", err)
	}

	logger.Info("database schema is up to date")
}
