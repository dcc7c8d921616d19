package handler

import (
	"github.com/gofiber/fiber/v2"
)

func SetupRoutes(
	app *fiber.App,
	authHandler *AuthHandler,
	serviceHandler *ServiceHandler,
	rbacHandler *RbacHandler,
	loginConfigHandler *LoginConfigHandler,
	healthHandler *HealthHandler,
	authMiddleware fiber.Handler,
	requireAdmin fiber.Handler,
) {
	// Health checks (public)
	app.Get("/health", healthHandler.Health)
	app.Get("/ready", healthHandler.Ready)

	api := app.Group("/api")

	// Auth routes (public)
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/magic-link", authHandler.RequestMagicLink)
	auth.Post("/magic-link/verify", authHandler.VerifyMagicLink)

	// Service registry
	services := api.Group("/services")

	// Public surface: login page config and the effective method list
	// are read by downstream login screens before any token exists
	services.Get("/:id/auth-methods", loginConfigHandler.ListMethods)
	services.Get("/:id/login-config", loginConfigHandler.GetLoginConfig)

	// Bearer-protected surface
	services.Get("/:id", authMiddleware, serviceHandler.Get)
	services.Get("/:id/permissions/me", authMiddleware, serviceHandler.MyPermissions)

	// Admin surface
	services.Get("/", authMiddleware, requireAdmin, serviceHandler.List)
	services.Post("/", authMiddleware, requireAdmin, serviceHandler.Create)
	services.Delete("/:id", authMiddleware, requireAdmin, serviceHandler.Delete)
	services.Post("/:id/rotate-secret", authMiddleware, requireAdmin, serviceHandler.RotateSecret)
	services.Get("/:id/secret-preview", authMiddleware, requireAdmin, serviceHandler.SecretPreview)
	services.Patch("/:id/login-config", authMiddleware, requireAdmin, loginConfigHandler.UpdateLoginConfig)
	services.Patch("/:id/login-config/methods", authMiddleware, requireAdmin, loginConfigHandler.ReplaceMethods)
	services.Post("/:id/bind-model", authMiddleware, requireAdmin, serviceHandler.BindModel)
	services.Delete("/:id/bind-model", authMiddleware, requireAdmin, serviceHandler.UnbindModel)
	services.Post("/:id/assignments", authMiddleware, requireAdmin, serviceHandler.AssignRole)
	services.Delete("/:id/assignments", authMiddleware, requireAdmin, serviceHandler.UnassignRole)

	// RBAC graph management (admin only)
	rbac := api.Group("/rbac", authMiddleware, requireAdmin)

	models := rbac.Group("/models")
	models.Post("/", rbacHandler.CreateModel)
	models.Get("/", rbacHandler.ListModels)
	models.Get("/:id", rbacHandler.GetModel)
	models.Delete("/:id", rbacHandler.DeleteModel)
	models.Post("/:id/roles", rbacHandler.CreateRole)
	models.Post("/:id/permissions", rbacHandler.CreatePermission)

	roles := rbac.Group("/roles")
	roles.Get("/:id/permissions", rbacHandler.ListRolePermissions)
	roles.Post("/:id/permissions", rbacHandler.AddRolePermission)
	roles.Delete("/:id/permissions/:permID", rbacHandler.RemoveRolePermission)
	roles.Delete("/:id", rbacHandler.DeleteRole)

	rbac.Delete("/permissions/:id", rbacHandler.DeletePermission)
}
