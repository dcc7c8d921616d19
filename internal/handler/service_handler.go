package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/centralauth/identity-hub/internal/service"
	"github.com/centralauth/identity-hub/pkg/validator"
)

type ServiceHandler struct {
	registry    *service.RegistryService
	rbacService *service.RbacService
	authorize   *service.AuthorizeService
	validator   *validator.Validator
}

func NewServiceHandler(
	registry *service.RegistryService,
	rbacService *service.RbacService,
	authorize *service.AuthorizeService,
	validator *validator.Validator,
) *ServiceHandler {
	return &ServiceHandler{
		registry:    registry,
		rbacService: rbacService,
		authorize:   authorize,
		validator:   validator,
	}
}

// Create registers a downstream service
// POST /api/services
func (h *ServiceHandler) Create(c *fiber.Ctx) error {
	var req service.CreateServiceRequest
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

	svc, err := h.registry.Create(c.Context(), req)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(svc)
}

// List returns all registered services
// GET /api/services
func (h *ServiceHandler) List(c *fiber.Ctx) error {
	services, err := h.registry.List(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(services)
}

// Get returns one service
// GET /api/services/:id
func (h *ServiceHandler) Get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	svc, err := h.registry.Get(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(svc)
}

// Delete removes a service; system services are protected
// DELETE /api/services/:id
func (h *ServiceHandler) Delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.registry.Delete(c.Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Service deleted",
	})
}

// RotateSecret installs a fresh signing secret, invalidating all
// outstanding tokens for the service
// POST /api/services/:id/rotate-secret
func (h *ServiceHandler) RotateSecret(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	preview, err := h.registry.RotateSecret(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"secret_preview": preview,
	})
}

// SecretPreview returns the stored preview, never the plaintext
// GET /api/services/:id/secret-preview
func (h *ServiceHandler) SecretPreview(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	preview, err := h.registry.SecretPreview(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"secret_preview": preview,
	})
}

// BindModel binds an RBAC model to the service
// POST /api/services/:id/bind-model
func (h *ServiceHandler) BindModel(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req struct {
		ModelID string `json:"model_id" validate:"required,uuid"`
	}
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

	modelID, _ := uuid.Parse(req.ModelID)
	if err := h.rbacService.BindModel(c.Context(), id, modelID); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Model bound",
	})
}

// UnbindModel removes the service's model binding
// DELETE /api/services/:id/bind-model
func (h *ServiceHandler) UnbindModel(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.rbacService.UnbindModel(c.Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Model unbound",
	})
}

// AssignRole grants a user a role on the service
// POST /api/services/:id/assignments
func (h *ServiceHandler) AssignRole(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req struct {
		UserID string `json:"user_id" validate:"required,uuid"`
		RoleID string `json:"role_id" validate:"required,uuid"`
	}
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

	userID, _ := uuid.Parse(req.UserID)
	roleID, _ := uuid.Parse(req.RoleID)
	if err := h.rbacService.AssignRole(c.Context(), userID, id, roleID); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Role assigned",
	})
}

// UnassignRole revokes a user's role on the service
// DELETE /api/services/:id/assignments
func (h *ServiceHandler) UnassignRole(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req struct {
		UserID string `json:"user_id" validate:"required,uuid"`
		RoleID string `json:"role_id" validate:"required,uuid"`
	}
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

	userID, _ := uuid.Parse(req.UserID)
	roleID, _ := uuid.Parse(req.RoleID)
	if err := h.rbacService.UnassignRole(c.Context(), userID, id, roleID); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Role unassigned",
	})
}

// MyPermissions resolves the bearer's current permission set for the
// service, re-derived from the RBAC graph on every call
// GET /api/services/:id/permissions/me
func (h *ServiceHandler) MyPermissions(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	userID, ok := c.Locals("user_id").(uuid.UUID)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	perms, err := h.rbacService.ResolvePermissions(c.Context(), userID, id)
	if err != nil {
		return respondError(c, err)
	}

	names := make([]string, len(perms))
	for i, p := range perms {
		names[i] = p.Name
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"permissions": names,
	})
}
