package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/centralauth/identity-hub/internal/domain"
)

// In-memory repository fakes backing the service tests. They implement
// the same error contracts as the postgres implementations.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]*domain.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return fmt.Errorf("email taken: %w", domain.ErrConflict)
		}
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	clone := *u
	return &clone, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return fmt.Errorf("user %s: %w", user.ID, domain.ErrNotFound)
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) UpdateLastLogin(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		now := time.Now()
		u.LastLoginAt = &now
	}
	return nil
}

func (r *fakeUserRepo) IncrementFailedLogins(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.FailedLogins++
	}
	return nil
}

func (r *fakeUserRepo) ResetFailedLogins(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.FailedLogins = 0
		u.Status = domain.UserStatusActive
		u.LockedUntil = nil
	}
	return nil
}

func (r *fakeUserRepo) List(_ context.Context, _, _ int) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		clone := *u
		out = append(out, &clone)
	}
	return out, nil
}

type fakeServiceRepo struct {
	mu       sync.Mutex
	services map[uuid.UUID]*domain.Service
	// loseSecretRace makes the next SetSecretIfAbsent report a lost
	// race after installing raceCiphertext as the stored secret.
	loseSecretRace  bool
	raceCiphertext  string
	racePreview     string
	setSecretCalls  int
}

func newFakeServiceRepo() *fakeServiceRepo {
	return &fakeServiceRepo{services: map[uuid.UUID]*domain.Service{}}
}

func (r *fakeServiceRepo) Create(_ context.Context, svc *domain.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.services {
		if s.Name == svc.Name {
			return fmt.Errorf("service name taken: %w", domain.ErrConflict)
		}
	}
	clone := *svc
	r.services[svc.ID] = &clone
	return nil
}

func (r *fakeServiceRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.services[id]
	if !ok {
		return nil, fmt.Errorf("service %s: %w", id, domain.ErrNotFound)
	}
	clone := *s
	return &clone, nil
}

func (r *fakeServiceRepo) List(_ context.Context) ([]*domain.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Service, 0, len(r.services))
	for _, s := range r.services {
		clone := *s
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeServiceRepo) Update(_ context.Context, svc *domain.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[svc.ID]; !ok {
		return fmt.Errorf("service %s: %w", svc.ID, domain.ErrNotFound)
	}
	clone := *svc
	r.services[svc.ID] = &clone
	return nil
}

func (r *fakeServiceRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.services[id]
	if !ok || s.System {
		return fmt.Errorf("service %s: %w", id, domain.ErrNotFound)
	}
	delete(r.services, id)
	return nil
}

func (r *fakeServiceRepo) SetSecretIfAbsent(_ context.Context, id uuid.UUID, ciphertext, preview string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setSecretCalls++
	s, ok := r.services[id]
	if !ok {
		return false, fmt.Errorf("service %s: %w", id, domain.ErrNotFound)
	}
	if r.loseSecretRace {
		r.loseSecretRace = false
		s.SecretCiphertext = &r.raceCiphertext
		s.SecretPreview = &r.racePreview
		return false, nil
	}
	if s.SecretCiphertext != nil {
		return false, nil
	}
	s.SecretCiphertext = &ciphertext
	s.SecretPreview = &preview
	return true, nil
}

func (r *fakeServiceRepo) ReplaceSecret(_ context.Context, id uuid.UUID, ciphertext, preview string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.services[id]
	if !ok {
		return fmt.Errorf("service %s: %w", id, domain.ErrNotFound)
	}
	s.SecretCiphertext = &ciphertext
	s.SecretPreview = &preview
	return nil
}

type roleAssignment struct {
	userID    uuid.UUID
	serviceID uuid.UUID
	roleID    uuid.UUID
}

type fakeRbacRepo struct {
	mu          sync.Mutex
	models      map[uuid.UUID]*domain.RbacModel
	roles       map[uuid.UUID]*domain.Role
	permissions map[uuid.UUID]*domain.Permission
	edges       map[uuid.UUID]map[uuid.UUID]bool // roleID -> permissionID
	bindings    map[uuid.UUID]uuid.UUID          // serviceID -> modelID
	assignments []roleAssignment
}

func newFakeRbacRepo() *fakeRbacRepo {
	return &fakeRbacRepo{
		models:      map[uuid.UUID]*domain.RbacModel{},
		roles:       map[uuid.UUID]*domain.Role{},
		permissions: map[uuid.UUID]*domain.Permission{},
		edges:       map[uuid.UUID]map[uuid.UUID]bool{},
		bindings:    map[uuid.UUID]uuid.UUID{},
	}
}

func (r *fakeRbacRepo) CreateModel(_ context.Context, model *domain.RbacModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *model
	r.models[model.ID] = &clone
	return nil
}

func (r *fakeRbacRepo) GetModel(_ context.Context, id uuid.UUID) (*domain.RbacModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.models[id]
	if !ok {
		return nil, fmt.Errorf("model %s: %w", id, domain.ErrNotFound)
	}
	clone := *m
	return &clone, nil
}

func (r *fakeRbacRepo) ListModels(_ context.Context) ([]*domain.RbacModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.RbacModel, 0, len(r.models))
	for _, m := range r.models {
		clone := *m
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeRbacRepo) DeleteModelCascade(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[id]; !ok {
		return fmt.Errorf("model %s: %w", id, domain.ErrNotFound)
	}
	delete(r.models, id)
	for roleID, role := range r.roles {
		if role.ModelID == id {
			delete(r.roles, roleID)
			delete(r.edges, roleID)
			kept := r.assignments[:0]
			for _, a := range r.assignments {
				if a.roleID != roleID {
					kept = append(kept, a)
				}
			}
			r.assignments = kept
		}
	}
	for permID, perm := range r.permissions {
		if perm.ModelID == id {
			delete(r.permissions, permID)
		}
	}
	for serviceID, modelID := range r.bindings {
		if modelID == id {
			delete(r.bindings, serviceID)
		}
	}
	return nil
}

func (r *fakeRbacRepo) CreateRole(_ context.Context, role *domain.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *role
	r.roles[role.ID] = &clone
	return nil
}

func (r *fakeRbacRepo) GetRole(_ context.Context, id uuid.UUID) (*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[id]
	if !ok {
		return nil, fmt.Errorf("role %s: %w", id, domain.ErrNotFound)
	}
	clone := *role
	return &clone, nil
}

func (r *fakeRbacRepo) ListRolesByModel(_ context.Context, modelID uuid.UUID) ([]*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Role
	for _, role := range r.roles {
		if role.ModelID == modelID {
			clone := *role
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeRbacRepo) DeleteRole(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.roles[id]; !ok {
		return fmt.Errorf("role %s: %w", id, domain.ErrNotFound)
	}
	delete(r.roles, id)
	delete(r.edges, id)
	return nil
}

func (r *fakeRbacRepo) CreatePermission(_ context.Context, perm *domain.Permission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *perm
	r.permissions[perm.ID] = &clone
	return nil
}

func (r *fakeRbacRepo) GetPermission(_ context.Context, id uuid.UUID) (*domain.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	perm, ok := r.permissions[id]
	if !ok {
		return nil, fmt.Errorf("permission %s: %w", id, domain.ErrNotFound)
	}
	clone := *perm
	return &clone, nil
}

func (r *fakeRbacRepo) ListPermissionsByModel(_ context.Context, modelID uuid.UUID) ([]*domain.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Permission
	for _, perm := range r.permissions {
		if perm.ModelID == modelID {
			clone := *perm
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeRbacRepo) DeletePermission(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.permissions[id]; !ok {
		return fmt.Errorf("permission %s: %w", id, domain.ErrNotFound)
	}
	delete(r.permissions, id)
	for _, perms := range r.edges {
		delete(perms, id)
	}
	return nil
}

func (r *fakeRbacRepo) AddRolePermission(_ context.Context, roleID, permissionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.roles[roleID]
	if !ok {
		return fmt.Errorf("role %s: %w", roleID, domain.ErrNotFound)
	}
	perm, ok := r.permissions[permissionID]
	if !ok {
		return fmt.Errorf("permission %s: %w", permissionID, domain.ErrNotFound)
	}
	if role.ModelID != perm.ModelID {
		return fmt.Errorf("cross-model edge: %w", domain.ErrInvalidReference)
	}
	if r.edges[roleID] == nil {
		r.edges[roleID] = map[uuid.UUID]bool{}
	}
	r.edges[roleID][permissionID] = true
	return nil
}

func (r *fakeRbacRepo) RemoveRolePermission(_ context.Context, roleID, permissionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if perms, ok := r.edges[roleID]; ok {
		delete(perms, permissionID)
	}
	return nil
}

func (r *fakeRbacRepo) ListRolePermissions(_ context.Context, roleID uuid.UUID) ([]*domain.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Permission
	for permID := range r.edges[roleID] {
		if perm, ok := r.permissions[permID]; ok {
			clone := *perm
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeRbacRepo) BindModel(_ context.Context, serviceID, modelID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, bound := r.bindings[serviceID]; bound {
		return fmt.Errorf("service already bound: %w", domain.ErrConflict)
	}
	r.bindings[serviceID] = modelID
	return nil
}

func (r *fakeRbacRepo) UnbindModel(_ context.Context, serviceID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, bound := r.bindings[serviceID]; !bound {
		return fmt.Errorf("service %s: %w", serviceID, domain.ErrNotFound)
	}
	delete(r.bindings, serviceID)
	return nil
}

func (r *fakeRbacRepo) GetBinding(_ context.Context, serviceID uuid.UUID) (*domain.ServiceModelBinding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	modelID, bound := r.bindings[serviceID]
	if !bound {
		return nil, fmt.Errorf("service %s: %w", serviceID, domain.ErrNotFound)
	}
	return &domain.ServiceModelBinding{ServiceID: serviceID, ModelID: modelID}, nil
}

func (r *fakeRbacRepo) AssignRole(_ context.Context, userID, serviceID, roleID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.assignments {
		if a.userID == userID && a.serviceID == serviceID && a.roleID == roleID {
			return fmt.Errorf("role already assigned: %w", domain.ErrConflict)
		}
	}
	r.assignments = append(r.assignments, roleAssignment{userID, serviceID, roleID})
	return nil
}

func (r *fakeRbacRepo) UnassignRole(_ context.Context, userID, serviceID, roleID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, a := range r.assignments {
		if a.userID == userID && a.serviceID == serviceID && a.roleID == roleID {
			r.assignments = append(r.assignments[:i], r.assignments[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("assignment: %w", domain.ErrNotFound)
}

func (r *fakeRbacRepo) GetUserRoles(_ context.Context, userID, serviceID uuid.UUID) ([]*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Role
	for _, a := range r.assignments {
		if a.userID == userID && a.serviceID == serviceID {
			if role, ok := r.roles[a.roleID]; ok {
				clone := *role
				out = append(out, &clone)
			}
		}
	}
	return out, nil
}

func (r *fakeRbacRepo) ResolvePermissions(_ context.Context, userID, serviceID uuid.UUID) ([]*domain.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[uuid.UUID]bool{}
	var out []*domain.Permission
	for _, a := range r.assignments {
		if a.userID != userID || a.serviceID != serviceID {
			continue
		}
		for permID := range r.edges[a.roleID] {
			if seen[permID] {
				continue
			}
			seen[permID] = true
			if perm, ok := r.permissions[permID]; ok {
				clone := *perm
				out = append(out, &clone)
			}
		}
	}
	return out, nil
}

func (r *fakeRbacRepo) PermissionsForRoles(_ context.Context, roleIDs []uuid.UUID) ([]*domain.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[uuid.UUID]bool{}
	var out []*domain.Permission
	for _, roleID := range roleIDs {
		for permID := range r.edges[roleID] {
			if seen[permID] {
				continue
			}
			seen[permID] = true
			if perm, ok := r.permissions[permID]; ok {
				clone := *perm
				out = append(out, &clone)
			}
		}
	}
	return out, nil
}

type fakeAuthMethodRepo struct {
	mu        sync.Mutex
	catalog   []*domain.AuthMethod
	configs   map[uuid.UUID]*domain.LoginPageConfig // serviceID -> config
	overrides map[uuid.UUID][]*domain.ServiceAuthMethod
}

func newFakeAuthMethodRepo(catalog ...*domain.AuthMethod) *fakeAuthMethodRepo {
	return &fakeAuthMethodRepo{
		catalog:   catalog,
		configs:   map[uuid.UUID]*domain.LoginPageConfig{},
		overrides: map[uuid.UUID][]*domain.ServiceAuthMethod{},
	}
}

func (r *fakeAuthMethodRepo) ListCatalog(_ context.Context) ([]*domain.AuthMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.AuthMethod, len(r.catalog))
	copy(out, r.catalog)
	return out, nil
}

func (r *fakeAuthMethodRepo) GetMethod(_ context.Context, id uuid.UUID) (*domain.AuthMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.catalog {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, fmt.Errorf("auth method %s: %w", id, domain.ErrNotFound)
}

func (r *fakeAuthMethodRepo) GetMethodByKey(_ context.Context, key string) (*domain.AuthMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.catalog {
		if m.Key == key {
			return m, nil
		}
	}
	return nil, fmt.Errorf("auth method %q: %w", key, domain.ErrNotFound)
}

func (r *fakeAuthMethodRepo) GetConfigByService(_ context.Context, serviceID uuid.UUID) (*domain.LoginPageConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[serviceID]
	if !ok {
		return nil, fmt.Errorf("login config for service %s: %w", serviceID, domain.ErrNotFound)
	}
	clone := *cfg
	return &clone, nil
}

func (r *fakeAuthMethodRepo) EnsureConfig(_ context.Context, serviceID uuid.UUID) (*domain.LoginPageConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cfg, ok := r.configs[serviceID]; ok {
		clone := *cfg
		return &clone, nil
	}
	cfg := &domain.LoginPageConfig{ID: uuid.New(), ServiceID: serviceID}
	r.configs[serviceID] = cfg
	clone := *cfg
	return &clone, nil
}

func (r *fakeAuthMethodRepo) UpdateConfig(_ context.Context, cfg *domain.LoginPageConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.configs[cfg.ServiceID]; !ok {
		return fmt.Errorf("login config %s: %w", cfg.ID, domain.ErrNotFound)
	}
	clone := *cfg
	r.configs[cfg.ServiceID] = &clone
	return nil
}

func (r *fakeAuthMethodRepo) ListOverrides(_ context.Context, configID uuid.UUID) ([]*domain.ServiceAuthMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.overrides[configID]
	out := make([]*domain.ServiceAuthMethod, len(rows))
	for i, row := range rows {
		clone := *row
		out[i] = &clone
	}
	return out, nil
}

func (r *fakeAuthMethodRepo) ReplaceOverrides(_ context.Context, configID uuid.UUID, overrides []*domain.ServiceAuthMethod) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := make([]*domain.ServiceAuthMethod, len(overrides))
	for i, o := range overrides {
		clone := *o
		clone.LoginConfigID = configID
		if clone.ID == uuid.Nil {
			clone.ID = uuid.New()
		}
		rows[i] = &clone
	}
	r.overrides[configID] = rows
	return nil
}

func (r *fakeAuthMethodRepo) UpsertOverride(_ context.Context, override *domain.ServiceAuthMethod) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.overrides[override.LoginConfigID]
	for i, row := range rows {
		if row.AuthMethodID == override.AuthMethodID {
			clone := *override
			clone.ID = row.ID
			rows[i] = &clone
			return nil
		}
	}
	clone := *override
	clone.ID = uuid.New()
	r.overrides[override.LoginConfigID] = append(rows, &clone)
	return nil
}
