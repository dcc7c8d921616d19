package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/centralauth/identity-hub/internal/domain"
	"github.com/centralauth/identity-hub/internal/service"
	"github.com/centralauth/identity-hub/pkg/validator"
)

type LoginConfigHandler struct {
	authMethods *service.AuthMethodService
	validator   *validator.Validator
}

func NewLoginConfigHandler(authMethods *service.AuthMethodService, validator *validator.Validator) *LoginConfigHandler {
	return &LoginConfigHandler{
		authMethods: authMethods,
		validator:   validator,
	}
}

// GetLoginConfig returns the service's login page configuration
// GET /api/services/:id/login-config
func (h *LoginConfigHandler) GetLoginConfig(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	cfg, err := h.authMethods.GetLoginConfig(c.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		// No config yet is not an error for readers; branding is all
		// defaults.
		return c.Status(fiber.StatusOK).JSON(fiber.Map{})
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(cfg)
}

// UpdateLoginConfig applies a partial branding update
// PATCH /api/services/:id/login-config
func (h *LoginConfigHandler) UpdateLoginConfig(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req service.UpdateLoginConfigRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := h.validator.Validate(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	cfg, err := h.authMethods.UpdateLoginConfig(c.Context(), id, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(cfg)
}

// ReplaceMethods atomically replaces the per-service method set
// PATCH /api/services/:id/login-config/methods
func (h *LoginConfigHandler) ReplaceMethods(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req service.ReplaceMethodsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := h.validator.Validate(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := h.authMethods.ReplaceMethods(c.Context(), id, req); err != nil {
		return respondError(c, err)
	}

	methods, err := h.authMethods.ListForService(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"methods": methods,
	})
}

// ListMethods returns the effective, ordered method list
// GET /api/services/:id/auth-methods
func (h *LoginConfigHandler) ListMethods(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	methods, err := h.authMethods.ListForService(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"methods": methods,
	})
}
