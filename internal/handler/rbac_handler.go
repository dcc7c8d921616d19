package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/centralauth/identity-hub/internal/service"
	"github.com/centralauth/identity-hub/pkg/validator"
)

type RbacHandler struct {
	rbacService *service.RbacService
	validator   *validator.Validator
}

func NewRbacHandler(rbacService *service.RbacService, validator *validator.Validator) *RbacHandler {
	return &RbacHandler{
		rbacService: rbacService,
		validator:   validator,
	}
}

// CreateModel creates an RBAC model
// POST /api/rbac/models
func (h *RbacHandler) CreateModel(c *fiber.Ctx) error {
	var req service.CreateModelRequest
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

	createdBy, _ := c.Locals("user_id").(uuid.UUID)
	model, err := h.rbacService.CreateModel(c.Context(), createdBy, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(model)
}

// ListModels lists all RBAC models
// GET /api/rbac/models
func (h *RbacHandler) ListModels(c *fiber.Ctx) error {
	models, err := h.rbacService.ListModels(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(models)
}

// GetModel returns one model with its roles and permissions
// GET /api/rbac/models/:id
func (h *RbacHandler) GetModel(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	model, err := h.rbacService.GetModel(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	roles, err := h.rbacService.ListRoles(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	perms, err := h.rbacService.ListPermissions(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"model":       model,
		"roles":       roles,
		"permissions": perms,
	})
}

// DeleteModel deletes a model, cascading to roles, permissions, edges,
// assignments and service bindings
// DELETE /api/rbac/models/:id
func (h *RbacHandler) DeleteModel(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.rbacService.DeleteModel(c.Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Model deleted",
	})
}

// CreateRole adds a role to a model
// POST /api/rbac/models/:id/roles
func (h *RbacHandler) CreateRole(c *fiber.Ctx) error {
	modelID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req service.CreateRoleRequest
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

	role, err := h.rbacService.CreateRole(c.Context(), modelID, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(role)
}

// DeleteRole removes a role and its edges and assignments
// DELETE /api/rbac/roles/:id
func (h *RbacHandler) DeleteRole(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.rbacService.DeleteRole(c.Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Role deleted",
	})
}

// CreatePermission adds a permission to a model
// POST /api/rbac/models/:id/permissions
func (h *RbacHandler) CreatePermission(c *fiber.Ctx) error {
	modelID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req service.CreatePermissionRequest
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

	perm, err := h.rbacService.CreatePermission(c.Context(), modelID, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(perm)
}

// DeletePermission removes a permission and its role edges
// DELETE /api/rbac/permissions/:id
func (h *RbacHandler) DeletePermission(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.rbacService.DeletePermission(c.Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Permission deleted",
	})
}

// AddRolePermission links a permission to a role within one model
// POST /api/rbac/roles/:id/permissions
func (h *RbacHandler) AddRolePermission(c *fiber.Ctx) error {
	roleID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req struct {
		PermissionID string `json:"permission_id" validate:"required,uuid"`
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

	permissionID, _ := uuid.Parse(req.PermissionID)
	if err := h.rbacService.AddRolePermission(c.Context(), roleID, permissionID); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Permission added to role",
	})
}

// RemoveRolePermission unlinks a permission from a role
// DELETE /api/rbac/roles/:id/permissions/:permID
func (h *RbacHandler) RemoveRolePermission(c *fiber.Ctx) error {
	roleID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	permissionID, err := parseIDParam(c, "permID")
	if err != nil {
		return err
	}

	if err := h.rbacService.RemoveRolePermission(c.Context(), roleID, permissionID); err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Permission removed from role",
	})
}

// ListRolePermissions lists a role's permissions
// GET /api/rbac/roles/:id/permissions
func (h *RbacHandler) ListRolePermissions(c *fiber.Ctx) error {
	roleID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	perms, err := h.rbacService.ListRolePermissions(c.Context(), roleID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(perms)
}
