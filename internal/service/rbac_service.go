package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/centralauth/identity-hub/internal/domain"
	"github.com/centralauth/identity-hub/internal/repository"
)

// RbacService owns the RBAC graph semantics: model lifecycle, the
// service-model binding, role assignment and permission resolution.
// Constraints the row store cannot express (a role must belong to the
// service's bound model, an edge must stay within one model) are
// enforced here at write time.
type RbacService struct {
	rbacRepo    repository.RbacRepository
	serviceRepo repository.ServiceRepository
}

func NewRbacService(rbacRepo repository.RbacRepository, serviceRepo repository.ServiceRepository) *RbacService {
	return &RbacService{rbacRepo: rbacRepo, serviceRepo: serviceRepo}
}

type CreateModelRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=500"`
}

func (s *RbacService) CreateModel(ctx context.Context, createdBy uuid.UUID, req CreateModelRequest) (*domain.RbacModel, error) {
	now := time.Now()
	model := &domain.RbacModel{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.rbacRepo.CreateModel(ctx, model); err != nil {
		return nil, err
	}
	return model, nil
}

func (s *RbacService) GetModel(ctx context.Context, id uuid.UUID) (*domain.RbacModel, error) {
	return s.rbacRepo.GetModel(ctx, id)
}

func (s *RbacService) ListModels(ctx context.Context) ([]*domain.RbacModel, error) {
	return s.rbacRepo.ListModels(ctx)
}

// DeleteModel cascades to the model's roles, permissions, edges,
// assignments, and unbinds every service using it.
func (s *RbacService) DeleteModel(ctx context.Context, id uuid.UUID) error {
	return s.rbacRepo.DeleteModelCascade(ctx, id)
}

type CreateRoleRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=500"`
}

func (s *RbacService) CreateRole(ctx context.Context, modelID uuid.UUID, req CreateRoleRequest) (*domain.Role, error) {
	if _, err := s.rbacRepo.GetModel(ctx, modelID); err != nil {
		return nil, err
	}
	role := &domain.Role{
		ID:          uuid.New(),
		ModelID:     modelID,
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   time.Now(),
	}
	if err := s.rbacRepo.CreateRole(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *RbacService) ListRoles(ctx context.Context, modelID uuid.UUID) ([]*domain.Role, error) {
	return s.rbacRepo.ListRolesByModel(ctx, modelID)
}

func (s *RbacService) DeleteRole(ctx context.Context, id uuid.UUID) error {
	return s.rbacRepo.DeleteRole(ctx, id)
}

type CreatePermissionRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=500"`
}

func (s *RbacService) CreatePermission(ctx context.Context, modelID uuid.UUID, req CreatePermissionRequest) (*domain.Permission, error) {
	if _, err := s.rbacRepo.GetModel(ctx, modelID); err != nil {
		return nil, err
	}
	perm := &domain.Permission{
		ID:          uuid.New(),
		ModelID:     modelID,
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   time.Now(),
	}
	if err := s.rbacRepo.CreatePermission(ctx, perm); err != nil {
		return nil, err
	}
	return perm, nil
}

func (s *RbacService) ListPermissions(ctx context.Context, modelID uuid.UUID) ([]*domain.Permission, error) {
	return s.rbacRepo.ListPermissionsByModel(ctx, modelID)
}

func (s *RbacService) DeletePermission(ctx context.Context, id uuid.UUID) error {
	return s.rbacRepo.DeletePermission(ctx, id)
}

// AddRolePermission links a permission to a role. Both must belong to
// the same model; the repository re-checks this inside the insert
// transaction, this pre-check exists to return a precise error without
// opening one.
func (s *RbacService) AddRolePermission(ctx context.Context, roleID, permissionID uuid.UUID) error {
	role, err := s.rbacRepo.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	perm, err := s.rbacRepo.GetPermission(ctx, permissionID)
	if err != nil {
		return err
	}
	if role.ModelID != perm.ModelID {
		return fmt.Errorf("role %s and permission %s belong to different models: %w",
			roleID, permissionID, domain.ErrInvalidReference)
	}
	return s.rbacRepo.AddRolePermission(ctx, roleID, permissionID)
}

func (s *RbacService) RemoveRolePermission(ctx context.Context, roleID, permissionID uuid.UUID) error {
	return s.rbacRepo.RemoveRolePermission(ctx, roleID, permissionID)
}

func (s *RbacService) ListRolePermissions(ctx context.Context, roleID uuid.UUID) ([]*domain.Permission, error) {
	return s.rbacRepo.ListRolePermissions(ctx, roleID)
}

// BindModel binds a model to a service. A service bound to a different
// model must be unbound first; re-binding the same model is a no-op.
func (s *RbacService) BindModel(ctx context.Context, serviceID, modelID uuid.UUID) error {
	if _, err := s.serviceRepo.GetByID(ctx, serviceID); err != nil {
		return err
	}
	if _, err := s.rbacRepo.GetModel(ctx, modelID); err != nil {
		return err
	}

	binding, err := s.rbacRepo.GetBinding(ctx, serviceID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if binding != nil {
		if binding.ModelID == modelID {
			return nil
		}
		return fmt.Errorf("service %s is bound to model %s: %w", serviceID, binding.ModelID, domain.ErrConflict)
	}

	return s.rbacRepo.BindModel(ctx, serviceID, modelID)
}

func (s *RbacService) UnbindModel(ctx context.Context, serviceID uuid.UUID) error {
	return s.rbacRepo.UnbindModel(ctx, serviceID)
}

func (s *RbacService) GetBinding(ctx context.Context, serviceID uuid.UUID) (*domain.ServiceModelBinding, error) {
	return s.rbacRepo.GetBinding(ctx, serviceID)
}

// AssignRole grants a user a role for a service. The role must belong
// to the model bound to that service; assigning an already-held role is
// surfaced as a conflict with the row set unchanged.
func (s *RbacService) AssignRole(ctx context.Context, userID, serviceID, roleID uuid.UUID) error {
	binding, err := s.rbacRepo.GetBinding(ctx, serviceID)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("service %s has no bound model: %w", serviceID, domain.ErrInvalidReference)
	}
	if err != nil {
		return err
	}

	role, err := s.rbacRepo.GetRole(ctx, roleID)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("role %s: %w", roleID, domain.ErrInvalidReference)
	}
	if err != nil {
		return err
	}
	if role.ModelID != binding.ModelID {
		return fmt.Errorf("role %s is not part of the model bound to service %s: %w",
			roleID, serviceID, domain.ErrInvalidReference)
	}

	return s.rbacRepo.AssignRole(ctx, userID, serviceID, roleID)
}

func (s *RbacService) UnassignRole(ctx context.Context, userID, serviceID, roleID uuid.UUID) error {
	return s.rbacRepo.UnassignRole(ctx, userID, serviceID, roleID)
}

func (s *RbacService) GetUserRoles(ctx context.Context, userID, serviceID uuid.UUID) ([]*domain.Role, error) {
	return s.rbacRepo.GetUserRoles(ctx, userID, serviceID)
}

// ResolvePermissions unions permissions across every role the user
// holds for the service. A user with no roles resolves to an empty set,
// not an error.
func (s *RbacService) ResolvePermissions(ctx context.Context, userID, serviceID uuid.UUID) ([]*domain.Permission, error) {
	return s.rbacRepo.ResolvePermissions(ctx, userID, serviceID)
}
