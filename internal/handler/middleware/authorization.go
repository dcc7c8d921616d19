package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/centralauth/identity-hub/internal/domain"
	"github.com/centralauth/identity-hub/internal/repository"
	"github.com/centralauth/identity-hub/internal/service"
)

// RequirePermission verifies that the caller's resolved permission set
// contains the named permission.
func RequirePermission(authorize *service.AuthorizeService, permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(*domain.Claims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		perms, err := authorize.PermissionsForClaims(c.Context(), claims)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to check permissions",
			})
		}
		for _, p := range perms {
			if p.Name == permission {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden: missing required permission",
			"required_permission": permission,
		})
	}
}

// RequireAdmin verifies that the caller either carries the bootstrap
// admin flag or holds the named hub permission through a role on the
// hub's own model.
func RequireAdmin(users repository.UserRepository, authorize *service.AuthorizeService, permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Get user ID from context (set by AuthMiddleware)
		userID, ok := c.Locals("user_id").(uuid.UUID)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		user, err := users.GetByID(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to check permissions",
			})
		}
		if user.IsAdmin {
			return c.Next()
		}

		claims, ok := c.Locals("claims").(*domain.Claims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		perms, err := authorize.PermissionsForClaims(c.Context(), claims)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to check permissions",
			})
		}
		for _, p := range perms {
			if p.Name == permission {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden: insufficient permissions",
		})
	}
}
