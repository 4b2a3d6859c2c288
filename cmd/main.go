package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/makernet/portage/internal/adapters"
	"github.com/makernet/portage/internal/api/middleware"
	"github.com/makernet/portage/internal/api/v1/handlers"
	v1 "github.com/makernet/portage/internal/api/v1/routes"
	"github.com/makernet/portage/internal/config"
	"github.com/makernet/portage/internal/db"
	"github.com/makernet/portage/internal/db/repos"
	"github.com/makernet/portage/internal/logger"
	"github.com/makernet/portage/internal/services"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Initialize()

	database, err := db.New(cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	jobRepo := repos.NewJobRepository(database, cfg.Downloads.BasePath)
	jobService := services.NewJobService(jobRepo)
	registry := adapters.NewRegistry(cfg)
	orchestrator := services.NewOrchestrator(jobService, registry)
	dispatcher := services.NewDispatcher(orchestrator, jobService, cfg.Worker.Count, cfg.Worker.QueueSize)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	dispatcher.Start(ctx, &wg)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})
	app.Use(middleware.Logger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	jobHandler := handlers.NewJobHandler(jobService, registry, dispatcher)
	serviceHandler := handlers.NewServiceHandler(registry)
	v1.Register(app, jobHandler, serviceHandler)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(fmt.Sprintf(":%d", cfg.Server.Port))
	}()

	select {
	case err := <-errCh:
		stop()
		wg.Wait()
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	wg.Wait()
	return nil
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
