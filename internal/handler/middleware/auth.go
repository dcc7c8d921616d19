package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/centralauth/identity-hub/internal/domain"
	"github.com/centralauth/identity-hub/internal/service"
)

// AuthMiddleware validates bearer tokens issued for the hub itself and
// extracts user claims
func AuthMiddleware(authorize *service.AuthorizeService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Extract Authorization header
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing authorization header",
			})
		}

		// Check if it's a Bearer token
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid authorization header format",
			})
		}

		raw := parts[1]
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing token",
			})
		}

		// Tokens for hub routes must be signed for the hub audience
		claims, err := authorize.VerifyToken(c.Context(), raw, domain.HubServiceID)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid token",
			})
		}

		// Store claims in fiber.Locals for downstream handlers
		c.Locals("user_id", claims.UserID)
		c.Locals("email", claims.Email)
		c.Locals("claims", claims)

		return c.Next()
	}
}
