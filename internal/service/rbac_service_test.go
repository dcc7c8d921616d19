package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/centralauth/identity-hub/internal/domain"
)

type rbacFixture struct {
	rbac     *RbacService
	rbacRepo *fakeRbacRepo
	svcRepo  *fakeServiceRepo
}

func newRbacFixture() *rbacFixture {
	rbacRepo := newFakeRbacRepo()
	svcRepo := newFakeServiceRepo()
	return &rbacFixture{
		rbac:     NewRbacService(rbacRepo, svcRepo),
		rbacRepo: rbacRepo,
		svcRepo:  svcRepo,
	}
}

func (f *rbacFixture) model(t *testing.T, name string) *domain.RbacModel {
	t.Helper()
	model, err := f.rbac.CreateModel(context.Background(), uuid.New(), CreateModelRequest{Name: name})
	if err != nil {
		t.Fatalf("CreateModel(%s): %v", name, err)
	}
	return model
}

func (f *rbacFixture) role(t *testing.T, modelID uuid.UUID, name string) *domain.Role {
	t.Helper()
	role, err := f.rbac.CreateRole(context.Background(), modelID, CreateRoleRequest{Name: name})
	if err != nil {
		t.Fatalf("CreateRole(%s): %v", name, err)
	}
	return role
}

func (f *rbacFixture) permission(t *testing.T, modelID uuid.UUID, name string) *domain.Permission {
	t.Helper()
	perm, err := f.rbac.CreatePermission(context.Background(), modelID, CreatePermissionRequest{Name: name})
	if err != nil {
		t.Fatalf("CreatePermission(%s): %v", name, err)
	}
	return perm
}

func (f *rbacFixture) service(t *testing.T) *domain.Service {
	t.Helper()
	return seedService(t, f.svcRepo, false)
}

func TestAddRolePermissionRejectsCrossModelEdge(t *testing.T) {
	f := newRbacFixture()
	ctx := context.Background()

	support := f.model(t, "Support")
	billing := f.model(t, "Billing")
	agent := f.role(t, support.ID, "Agent")
	refund := f.permission(t, billing.ID, "billing.refund")

	err := f.rbac.AddRolePermission(ctx, agent.ID, refund.ID)
	if !errors.Is(err, domain.ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}

	sameModel := f.permission(t, support.ID, "ticket.read")
	if err := f.rbac.AddRolePermission(ctx, agent.ID, sameModel.ID); err != nil {
		t.Fatalf("same-model edge: %v", err)
	}
}

func TestBindModelSemantics(t *testing.T) {
	f := newRbacFixture()
	ctx := context.Background()

	modelA := f.model(t, "ModelA")
	modelB := f.model(t, "ModelB")
	svc := f.service(t)

	if err := f.rbac.BindModel(ctx, svc.ID, modelA.ID); err != nil {
		t.Fatalf("BindModel: %v", err)
	}

	// Re-binding the same model is a no-op.
	if err := f.rbac.BindModel(ctx, svc.ID, modelA.ID); err != nil {
		t.Fatalf("re-bind same model: %v", err)
	}

	// Binding a different model without unbinding is a conflict.
	if err := f.rbac.BindModel(ctx, svc.ID, modelB.ID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if err := f.rbac.UnbindModel(ctx, svc.ID); err != nil {
		t.Fatalf("UnbindModel: %v", err)
	}
	if err := f.rbac.BindModel(ctx, svc.ID, modelB.ID); err != nil {
		t.Fatalf("rebind after unbind: %v", err)
	}
}

func TestBindModelUnknownReferences(t *testing.T) {
	f := newRbacFixture()
	ctx := context.Background()
	model := f.model(t, "Model")
	svc := f.service(t)

	if err := f.rbac.BindModel(ctx, uuid.New(), model.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown service: expected ErrNotFound, got %v", err)
	}
	if err := f.rbac.BindModel(ctx, svc.ID, uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown model: expected ErrNotFound, got %v", err)
	}
}

func TestAssignRoleRequiresBoundModel(t *testing.T) {
	f := newRbacFixture()
	ctx := context.Background()

	model := f.model(t, "Support")
	role := f.role(t, model.ID, "Agent")
	svc := f.service(t)
	userID := uuid.New()

	// No binding yet.
	err := f.rbac.AssignRole(ctx, userID, svc.ID, role.ID)
	if !errors.Is(err, domain.ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference without a binding, got %v", err)
	}

	if err := f.rbac.BindModel(ctx, svc.ID, model.ID); err != nil {
		t.Fatalf("BindModel: %v", err)
	}

	// Role from another model is rejected.
	other := f.model(t, "Other")
	foreignRole := f.role(t, other.ID, "Outsider")
	err = f.rbac.AssignRole(ctx, userID, svc.ID, foreignRole.ID)
	if !errors.Is(err, domain.ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference for foreign role, got %v", err)
	}

	if err := f.rbac.AssignRole(ctx, userID, svc.ID, role.ID); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}

	// The exact same triple again is a conflict with no state change.
	err = f.rbac.AssignRole(ctx, userID, svc.ID, role.ID)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate assignment, got %v", err)
	}
	roles, err := f.rbac.GetUserRoles(ctx, userID, svc.ID)
	if err != nil {
		t.Fatalf("GetUserRoles: %v", err)
	}
	if len(roles) != 1 {
		t.Fatalf("expected exactly one role, got %d", len(roles))
	}
}

func TestResolvePermissionsUnionAcrossRoles(t *testing.T) {
	f := newRbacFixture()
	ctx := context.Background()

	model := f.model(t, "Support")
	agent := f.role(t, model.ID, "Agent")
	supervisor := f.role(t, model.ID, "Supervisor")
	readTickets := f.permission(t, model.ID, "ticket.read")
	closeTickets := f.permission(t, model.ID, "ticket.close")

	mustAdd := func(roleID, permID uuid.UUID) {
		t.Helper()
		if err := f.rbac.AddRolePermission(ctx, roleID, permID); err != nil {
			t.Fatalf("AddRolePermission: %v", err)
		}
	}
	mustAdd(agent.ID, readTickets.ID)
	mustAdd(supervisor.ID, readTickets.ID)
	mustAdd(supervisor.ID, closeTickets.ID)

	svc := f.service(t)
	if err := f.rbac.BindModel(ctx, svc.ID, model.ID); err != nil {
		t.Fatalf("BindModel: %v", err)
	}

	userID := uuid.New()
	for _, roleID := range []uuid.UUID{agent.ID, supervisor.ID} {
		if err := f.rbac.AssignRole(ctx, userID, svc.ID, roleID); err != nil {
			t.Fatalf("AssignRole: %v", err)
		}
	}

	perms, err := f.rbac.ResolvePermissions(ctx, userID, svc.ID)
	if err != nil {
		t.Fatalf("ResolvePermissions: %v", err)
	}
	names := map[string]bool{}
	for _, p := range perms {
		if names[p.Name] {
			t.Errorf("permission %q appears twice; resolution must deduplicate", p.Name)
		}
		names[p.Name] = true
	}
	if len(names) != 2 || !names["ticket.read"] || !names["ticket.close"] {
		t.Fatalf("expected union {ticket.read, ticket.close}, got %v", names)
	}

	// Dropping Supervisor removes ticket.close but keeps ticket.read,
	// which Agent still grants.
	if err := f.rbac.UnassignRole(ctx, userID, svc.ID, supervisor.ID); err != nil {
		t.Fatalf("UnassignRole: %v", err)
	}
	perms, err = f.rbac.ResolvePermissions(ctx, userID, svc.ID)
	if err != nil {
		t.Fatalf("ResolvePermissions (agent only): %v", err)
	}
	if len(perms) != 1 || perms[0].Name != "ticket.read" {
		t.Fatalf("expected {ticket.read} after dropping supervisor, got %v", perms)
	}

	if err := f.rbac.UnassignRole(ctx, userID, svc.ID, agent.ID); err != nil {
		t.Fatalf("UnassignRole: %v", err)
	}
	perms, err = f.rbac.ResolvePermissions(ctx, userID, svc.ID)
	if err != nil {
		t.Fatalf("ResolvePermissions (no roles left): %v", err)
	}
	if len(perms) != 0 {
		t.Fatalf("expected empty set after unassigning all roles, got %d permissions", len(perms))
	}

	// A user with no roles resolves to the empty set, not an error.
	perms, err = f.rbac.ResolvePermissions(ctx, uuid.New(), svc.ID)
	if err != nil {
		t.Fatalf("ResolvePermissions (no roles): %v", err)
	}
	if len(perms) != 0 {
		t.Fatalf("expected empty set, got %d permissions", len(perms))
	}
}

func TestDeleteModelCascades(t *testing.T) {
	f := newRbacFixture()
	ctx := context.Background()

	model := f.model(t, "Support")
	role := f.role(t, model.ID, "Agent")
	perm := f.permission(t, model.ID, "ticket.read")
	if err := f.rbac.AddRolePermission(ctx, role.ID, perm.ID); err != nil {
		t.Fatalf("AddRolePermission: %v", err)
	}

	svc := f.service(t)
	if err := f.rbac.BindModel(ctx, svc.ID, model.ID); err != nil {
		t.Fatalf("BindModel: %v", err)
	}
	userID := uuid.New()
	if err := f.rbac.AssignRole(ctx, userID, svc.ID, role.ID); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}

	if err := f.rbac.DeleteModel(ctx, model.ID); err != nil {
		t.Fatalf("DeleteModel: %v", err)
	}

	if _, err := f.rbac.GetModel(ctx, model.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("model still present after delete: %v", err)
	}
	if _, err := f.rbac.GetBinding(ctx, svc.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("binding must be removed by the cascade: %v", err)
	}
	roles, err := f.rbac.GetUserRoles(ctx, userID, svc.ID)
	if err != nil {
		t.Fatalf("GetUserRoles: %v", err)
	}
	if len(roles) != 0 {
		t.Fatalf("assignments must be removed by the cascade, got %d", len(roles))
	}
}
