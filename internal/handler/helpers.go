package handler

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/centralauth/identity-hub/internal/domain"
)

// respondError maps the domain error taxonomy to HTTP statuses. Unknown
// errors are logged with context and surfaced as an opaque 500, so that
// storage or crypto details never reach the caller.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return respond(c, fiber.StatusNotFound, err)
	case errors.Is(err, domain.ErrConflict):
		return respond(c, fiber.StatusConflict, err)
	case errors.Is(err, domain.ErrInvalidReference), errors.Is(err, domain.ErrInvalidDefault):
		return respond(c, fiber.StatusUnprocessableEntity, err)
	case errors.Is(err, domain.ErrProtectedService):
		return respond(c, fiber.StatusForbidden, err)
	case errors.Is(err, domain.ErrServiceNotConfigured):
		return respond(c, fiber.StatusServiceUnavailable, err)
	case errors.Is(err, domain.ErrAccountLocked):
		return respond(c, fiber.StatusLocked, err)
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrTokenMalformed),
		errors.Is(err, domain.ErrWrongAudience):
		return respond(c, fiber.StatusUnauthorized, err)
	default:
		log.Printf("Unhandled error [%s %s]: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}
}

func respond(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// parseIDParam parses a UUID route parameter.
func parseIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}
