package middleware

import (
	"time"

	fiber "github.com/gofiber/fiber/v2"

	log "github.com/makernet/portage/internal/logger"
)

// Logger returns a middleware that logs HTTP requests
func Logger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		stop := time.Now()
		latency := stop.Sub(start)

		log.InfoWithFields("Request", map[string]interface{}{
			"timestamp": stop.Format("2006/01/02 - 15:04:05"),
			"status":    c.Response().StatusCode(),
			"latency":   latency,
			"ip":        c.IP(),
			"method":    c.Method(),
			"path":      c.Path(),
		})

		return err
	}
}
