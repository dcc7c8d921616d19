package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/centralauth/identity-hub/internal/service"
	"github.com/centralauth/identity-hub/pkg/validator"
)

type AuthHandler struct {
	authService *service.AuthService
	validator   *validator.Validator
}

func NewAuthHandler(authService *service.AuthService, validator *validator.Validator) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validator:   validator,
	}
}

// Register handles user registration
// POST /api/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req service.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	// redirect_uri may arrive as a query parameter instead of the body.
	if req.RedirectURI == "" {
		req.RedirectURI = c.Query("redirect_uri")
	}

	if err := h.validator.Validate(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	resp, err := h.authService.Register(c.Context(), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Login handles user login
// POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req service.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.RedirectURI == "" {
		req.RedirectURI = c.Query("redirect_uri")
	}

	if err := h.validator.Validate(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	resp, err := h.authService.Login(c.Context(), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

// RequestMagicLink sends a one-time sign-in link
// POST /api/auth/magic-link
func (h *AuthHandler) RequestMagicLink(c *fiber.Ctx) error {
	var req service.MagicLinkRequest
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

	if err := h.authService.RequestMagicLink(c.Context(), req); err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "If the address is registered, a sign-in link has been sent",
	})
}

// VerifyMagicLink redeems a one-time code
// POST /api/auth/magic-link/verify
func (h *AuthHandler) VerifyMagicLink(c *fiber.Ctx) error {
	var req service.MagicLinkVerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.RedirectURI == "" {
		req.RedirectURI = c.Query("redirect_uri")
	}

	if err := h.validator.Validate(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	resp, err := h.authService.VerifyMagicLink(c.Context(), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}
