// Package routes wires the v1 handlers onto the fiber app.
package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/makernet/portage/internal/api/v1/handlers"
)

// SetupRoutes configures all the v1 routes
func SetupRoutes(router fiber.Router, jobs *handlers.JobHandler, svcs *handlers.ServiceHandler) {
	jobGroup := router.Group("/jobs")
	jobGroup.Post("/", jobs.CreateJob)
	jobGroup.Get("/", jobs.ListJobs)
	jobGroup.Get("/unfinished", jobs.ListUnfinishedJobs)
	jobGroup.Get("/:id", jobs.GetJob)
	jobGroup.Post("/:id/retry", jobs.RetryJob)
	jobGroup.Post("/:id/cancel", jobs.CancelJob)

	serviceGroup := router.Group("/services")
	serviceGroup.Post("/discover", svcs.DiscoverServices)
}

// Register registers the v1 routes
func Register(app *fiber.App, jobs *handlers.JobHandler, svcs *handlers.ServiceHandler) {
	v1Group := app.Group("/api/v1")
	SetupRoutes(v1Group, jobs, svcs)
}
