package middleware

import (
	"log"
	"runtime/debug"

	"github.com/gofiber/fiber/v2"
)

// RecoveryMiddleware recovers from panics and returns an opaque 500.
// The panic value stays in the log; responses never echo internal
// state.
func RecoveryMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				log.Printf("PANIC: %v\n%s", r, stack)

				if err := c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "Internal server error",
				}); err != nil {
					log.Printf("Error sending panic response: %v", err)
				}
			}
		}()

		return c.Next()
	}
}
