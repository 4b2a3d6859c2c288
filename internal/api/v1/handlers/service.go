package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"github.com/makernet/portage/internal/transfer"
)

// ServiceHandler serves the service discovery endpoint.
type ServiceHandler struct {
	registry *transfer.Registry
}

func NewServiceHandler(registry *transfer.Registry) *ServiceHandler {
	return &ServiceHandler{registry: registry}
}

// DiscoverServices maps each url in the request to the service able to
// handle it, "unknown" when none matches
func (h *ServiceHandler) DiscoverServices(c *fiber.Ctx) error {
	var req DiscoverRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	return c.JSON(DiscoverResponse{
		Services: lo.Map(req.URLs, func(url string, _ int) string {
			return h.registry.DiscoverService(url)
		}),
	})
}
