package middleware

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
)

// LoggerMiddleware logs HTTP requests with latency and status. Health
// probes are skipped to keep the log readable.
func LoggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/health" || path == "/ready" {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		latency := time.Since(start)
		status := c.Response().StatusCode()

		log.Printf("[%s] %s - %d in %v", c.Method(), path, status, latency)
		return err
	}
}
