package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/centralauth/identity-hub/internal/domain"
)

// RbacRepository is the row store behind the RBAC graph: models, roles,
// permissions, role-permission edges, service-model bindings and
// user-service-role assignments.
type RbacRepository interface {
	// Models
	CreateModel(ctx context.Context, model *domain.RbacModel) error
	GetModel(ctx context.Context, id uuid.UUID) (*domain.RbacModel, error)
	ListModels(ctx context.Context) ([]*domain.RbacModel, error)
	// DeleteModelCascade removes the model with its roles, permissions,
	// edges, assignments and service bindings in one transaction.
	DeleteModelCascade(ctx context.Context, id uuid.UUID) error

	// Roles and permissions
	CreateRole(ctx context.Context, role *domain.Role) error
	GetRole(ctx context.Context, id uuid.UUID) (*domain.Role, error)
	ListRolesByModel(ctx context.Context, modelID uuid.UUID) ([]*domain.Role, error)
	DeleteRole(ctx context.Context, id uuid.UUID) error
	CreatePermission(ctx context.Context, perm *domain.Permission) error
	GetPermission(ctx context.Context, id uuid.UUID) (*domain.Permission, error)
	ListPermissionsByModel(ctx context.Context, modelID uuid.UUID) ([]*domain.Permission, error)
	DeletePermission(ctx context.Context, id uuid.UUID) error

	// Edges. AddRolePermission is idempotent.
	AddRolePermission(ctx context.Context, roleID, permissionID uuid.UUID) error
	RemoveRolePermission(ctx context.Context, roleID, permissionID uuid.UUID) error
	ListRolePermissions(ctx context.Context, roleID uuid.UUID) ([]*domain.Permission, error)

	// Service-model binding. BindModel inserts the unique binding row;
	// a service already bound (to any model) surfaces ErrConflict.
	BindModel(ctx context.Context, serviceID, modelID uuid.UUID) error
	UnbindModel(ctx context.Context, serviceID uuid.UUID) error
	GetBinding(ctx context.Context, serviceID uuid.UUID) (*domain.ServiceModelBinding, error)

	// Assignments. AssignRole surfaces ErrConflict when the exact
	// triple already exists; the row set is unchanged either way.
	AssignRole(ctx context.Context, userID, serviceID, roleID uuid.UUID) error
	UnassignRole(ctx context.Context, userID, serviceID, roleID uuid.UUID) error
	GetUserRoles(ctx context.Context, userID, serviceID uuid.UUID) ([]*domain.Role, error)

	// ResolvePermissions unions permissions over every role the user
	// holds for the service. Empty result, not an error, for a user
	// with no roles.
	ResolvePermissions(ctx context.Context, userID, serviceID uuid.UUID) ([]*domain.Permission, error)

	// PermissionsForRoles expands an explicit role set through the
	// role-permission edges, restricted to that service's assignments.
	PermissionsForRoles(ctx context.Context, roleIDs []uuid.UUID) ([]*domain.Permission, error)
}
