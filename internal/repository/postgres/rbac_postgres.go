package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/centralauth/identity-hub/internal/domain"
)

// foreignKeyViolation is the Postgres error code for FK violations.
const foreignKeyViolation = "23503"

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation
}

type RbacRepository struct {
	db *sqlx.DB
}

func NewRbacRepository(db *sqlx.DB) *RbacRepository {
	return &RbacRepository{db: db}
}

func (r *RbacRepository) CreateModel(ctx context.Context, model *domain.RbacModel) error {
	query := `
		INSERT INTO rbac_models (id, name, description, created_by, created_at, updated_at)
		VALUES (:id, :name, :description, :created_by, :created_at, :updated_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, model); err != nil {
		return fmt.Errorf("failed to create rbac model: %w", err)
	}
	return nil
}

func (r *RbacRepository) GetModel(ctx context.Context, id uuid.UUID) (*domain.RbacModel, error) {
	var model domain.RbacModel
	query := `SELECT * FROM rbac_models WHERE id = $1`

	err := r.db.GetContext(ctx, &model, query, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("rbac model: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rbac model: %w", err)
	}

	return &model, nil
}

func (r *RbacRepository) ListModels(ctx context.Context) ([]*domain.RbacModel, error) {
	var models []*domain.RbacModel
	query := `SELECT * FROM rbac_models ORDER BY name`

	if err := r.db.SelectContext(ctx, &models, query); err != nil {
		return nil, fmt.Errorf("failed to list rbac models: %w", err)
	}
	return models, nil
}

// DeleteModelCascade removes the model and everything hanging off it in
// one transaction. A partial cascade is never an observable state.
func (r *RbacRepository) DeleteModelCascade(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	steps := []string{
		`DELETE FROM role_permissions WHERE role_id IN (SELECT id FROM roles WHERE model_id = $1)`,
		`DELETE FROM user_service_roles WHERE role_id IN (SELECT id FROM roles WHERE model_id = $1)`,
		`DELETE FROM permissions WHERE model_id = $1`,
		`DELETE FROM roles WHERE model_id = $1`,
		`DELETE FROM service_model_bindings WHERE model_id = $1`,
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step, id); err != nil {
			return fmt.Errorf("failed to cascade model delete: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM rbac_models WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rbac model: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("rbac model: %w", domain.ErrNotFound)
	}

	return tx.Commit()
}

func (r *RbacRepository) CreateRole(ctx context.Context, role *domain.Role) error {
	query := `
		INSERT INTO roles (id, model_id, name, description, created_at)
		VALUES (:id, :model_id, :name, :description, :created_at)
	`
	_, err := r.db.NamedExecContext(ctx, query, role)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("role model: %w", domain.ErrInvalidReference)
	}
	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}
	return nil
}

func (r *RbacRepository) GetRole(ctx context.Context, id uuid.UUID) (*domain.Role, error) {
	var role domain.Role
	query := `SELECT * FROM roles WHERE id = $1`

	err := r.db.GetContext(ctx, &role, query, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("role: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	return &role, nil
}

func (r *RbacRepository) ListRolesByModel(ctx context.Context, modelID uuid.UUID) ([]*domain.Role, error) {
	var roles []*domain.Role
	query := `SELECT * FROM roles WHERE model_id = $1 ORDER BY name`

	if err := r.db.SelectContext(ctx, &roles, query, modelID); err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}

func (r *RbacRepository) DeleteRole(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete role edges: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_service_roles WHERE role_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete role assignments: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("role: %w", domain.ErrNotFound)
	}

	return tx.Commit()
}

func (r *RbacRepository) CreatePermission(ctx context.Context, perm *domain.Permission) error {
	query := `
		INSERT INTO permissions (id, model_id, name, description, created_at)
		VALUES (:id, :model_id, :name, :description, :created_at)
	`
	_, err := r.db.NamedExecContext(ctx, query, perm)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("permission model: %w", domain.ErrInvalidReference)
	}
	if err != nil {
		return fmt.Errorf("failed to create permission: %w", err)
	}
	return nil
}

func (r *RbacRepository) GetPermission(ctx context.Context, id uuid.UUID) (*domain.Permission, error) {
	var perm domain.Permission
	query := `SELECT * FROM permissions WHERE id = $1`

	err := r.db.GetContext(ctx, &perm, query, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("permission: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}

	return &perm, nil
}

func (r *RbacRepository) ListPermissionsByModel(ctx context.Context, modelID uuid.UUID) ([]*domain.Permission, error) {
	var perms []*domain.Permission
	query := `SELECT * FROM permissions WHERE model_id = $1 ORDER BY name`

	if err := r.db.SelectContext(ctx, &perms, query, modelID); err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	return perms, nil
}

func (r *RbacRepository) DeletePermission(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM role_permissions WHERE permission_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete permission edges: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("permission: %w", domain.ErrNotFound)
	}

	return tx.Commit()
}

// AddRolePermission links a permission to a role. The schema cannot
// express that both rows share a model, so the check runs here, inside
// the same transaction as the insert.
func (r *RbacRepository) AddRolePermission(ctx context.Context, roleID, permissionID uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var sameModel bool
	check := `
		SELECT r.model_id = p.model_id
		FROM roles r, permissions p
		WHERE r.id = $1 AND p.id = $2
	`
	err = tx.GetContext(ctx, &sameModel, check, roleID, permissionID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("role or permission: %w", domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check role-permission models: %w", err)
	}
	if !sameModel {
		return fmt.Errorf("role and permission belong to different models: %w", domain.ErrInvalidReference)
	}

	insert := `
		INSERT INTO role_permissions (role_id, permission_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (role_id, permission_id) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, insert, roleID, permissionID); err != nil {
		return fmt.Errorf("failed to add role permission: %w", err)
	}

	return tx.Commit()
}

func (r *RbacRepository) RemoveRolePermission(ctx context.Context, roleID, permissionID uuid.UUID) error {
	query := `DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`

	result, err := r.db.ExecContext(ctx, query, roleID, permissionID)
	if err != nil {
		return fmt.Errorf("failed to remove role permission: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("role permission edge: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *RbacRepository) ListRolePermissions(ctx context.Context, roleID uuid.UUID) ([]*domain.Permission, error) {
	var perms []*domain.Permission
	query := `
		SELECT p.*
		FROM permissions p
		INNER JOIN role_permissions rp ON p.id = rp.permission_id
		WHERE rp.role_id = $1
		ORDER BY p.name
	`

	if err := r.db.SelectContext(ctx, &perms, query, roleID); err != nil {
		return nil, fmt.Errorf("failed to list role permissions: %w", err)
	}
	return perms, nil
}

// BindModel relies on the unique constraint on service_id: a second
// binding attempt for a bound service is a conflict, rebinding requires
// an explicit unbind first.
func (r *RbacRepository) BindModel(ctx context.Context, serviceID, modelID uuid.UUID) error {
	query := `
		INSERT INTO service_model_bindings (service_id, model_id, created_at)
		VALUES ($1, $2, NOW())
	`
	_, err := r.db.ExecContext(ctx, query, serviceID, modelID)
	if isUniqueViolation(err) {
		return fmt.Errorf("service already has a bound model: %w", domain.ErrConflict)
	}
	if isForeignKeyViolation(err) {
		return fmt.Errorf("service or model: %w", domain.ErrInvalidReference)
	}
	if err != nil {
		return fmt.Errorf("failed to bind model: %w", err)
	}
	return nil
}

func (r *RbacRepository) UnbindModel(ctx context.Context, serviceID uuid.UUID) error {
	query := `DELETE FROM service_model_bindings WHERE service_id = $1`

	result, err := r.db.ExecContext(ctx, query, serviceID)
	if err != nil {
		return fmt.Errorf("failed to unbind model: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("model binding: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *RbacRepository) GetBinding(ctx context.Context, serviceID uuid.UUID) (*domain.ServiceModelBinding, error) {
	var binding domain.ServiceModelBinding
	query := `SELECT * FROM service_model_bindings WHERE service_id = $1`

	err := r.db.GetContext(ctx, &binding, query, serviceID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("model binding: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get model binding: %w", err)
	}

	return &binding, nil
}

// AssignRole inserts the (user, service, role) triple. The duplicate
// triple surfaces as ErrConflict with the row set unchanged, which
// makes retries safe.
func (r *RbacRepository) AssignRole(ctx context.Context, userID, serviceID, roleID uuid.UUID) error {
	query := `
		INSERT INTO user_service_roles (user_id, service_id, role_id, assigned_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, service_id, role_id) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query, userID, serviceID, roleID)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("user, service or role: %w", domain.ErrInvalidReference)
	}
	if err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("role already assigned: %w", domain.ErrConflict)
	}

	return nil
}

func (r *RbacRepository) UnassignRole(ctx context.Context, userID, serviceID, roleID uuid.UUID) error {
	query := `DELETE FROM user_service_roles WHERE user_id = $1 AND service_id = $2 AND role_id = $3`

	result, err := r.db.ExecContext(ctx, query, userID, serviceID, roleID)
	if err != nil {
		return fmt.Errorf("failed to unassign role: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("role assignment: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *RbacRepository) GetUserRoles(ctx context.Context, userID, serviceID uuid.UUID) ([]*domain.Role, error) {
	var roles []*domain.Role
	query := `
		SELECT r.*
		FROM roles r
		INNER JOIN user_service_roles usr ON r.id = usr.role_id
		WHERE usr.user_id = $1 AND usr.service_id = $2
		ORDER BY r.name
	`

	if err := r.db.SelectContext(ctx, &roles, query, userID, serviceID); err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}
	return roles, nil
}

func (r *RbacRepository) ResolvePermissions(ctx context.Context, userID, serviceID uuid.UUID) ([]*domain.Permission, error) {
	var perms []*domain.Permission
	query := `
		SELECT DISTINCT p.*
		FROM permissions p
		INNER JOIN role_permissions rp ON p.id = rp.permission_id
		INNER JOIN user_service_roles usr ON rp.role_id = usr.role_id
		WHERE usr.user_id = $1 AND usr.service_id = $2
		ORDER BY p.name
	`

	if err := r.db.SelectContext(ctx, &perms, query, userID, serviceID); err != nil {
		return nil, fmt.Errorf("failed to resolve permissions: %w", err)
	}
	return perms, nil
}

func (r *RbacRepository) PermissionsForRoles(ctx context.Context, roleIDs []uuid.UUID) ([]*domain.Permission, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}

	var perms []*domain.Permission
	query := `
		SELECT DISTINCT p.*
		FROM permissions p
		INNER JOIN role_permissions rp ON p.id = rp.permission_id
		WHERE rp.role_id = ANY($1)
		ORDER BY p.name
	`

	if err := r.db.SelectContext(ctx, &perms, query, pq.Array(roleIDs)); err != nil {
		return nil, fmt.Errorf("failed to expand role permissions: %w", err)
	}
	return perms, nil
}
