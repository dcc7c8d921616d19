package domain

import (
	"time"

	"github.com/google/uuid"
)

// RbacModel is a named, reusable bundle of roles and permissions. A
// model may be bound to many services; each service binds at most one
// model at a time.
type RbacModel struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name" validate:"required,min=2,max=100"`
	Description string    `json:"description" db:"description" validate:"max=500"`
	CreatedBy   uuid.UUID `json:"created_by" db:"created_by"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Role belongs to exactly one model. Deleting the model cascades here.
type Role struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ModelID     uuid.UUID `json:"model_id" db:"model_id"`
	Name        string    `json:"name" db:"name" validate:"required,min=2,max=100"`
	Description string    `json:"description" db:"description" validate:"max=500"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Permission belongs to exactly one model.
type Permission struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ModelID     uuid.UUID `json:"model_id" db:"model_id"`
	Name        string    `json:"name" db:"name" validate:"required,min=2,max=100"`
	Description string    `json:"description" db:"description" validate:"max=500"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// RolePermission is the many-to-many edge between a role and a
// permission. Both endpoints must belong to the same model; the schema
// cannot express that across tables, so it is validated at write time.
type RolePermission struct {
	RoleID       uuid.UUID `json:"role_id" db:"role_id"`
	PermissionID uuid.UUID `json:"permission_id" db:"permission_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// ServiceModelBinding ties a service to its RBAC model. ServiceID is
// unique, which makes the binding functional.
type ServiceModelBinding struct {
	ServiceID uuid.UUID `json:"service_id" db:"service_id"`
	ModelID   uuid.UUID `json:"model_id" db:"model_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// UserServiceRole assigns a user a role for one service. The triple is
// unique: the same role twice for the same service is rejected, but a
// user may hold several distinct roles per service and the same role
// across different services.
type UserServiceRole struct {
	UserID     uuid.UUID `json:"user_id" db:"user_id"`
	ServiceID  uuid.UUID `json:"service_id" db:"service_id"`
	RoleID     uuid.UUID `json:"role_id" db:"role_id"`
	AssignedAt time.Time `json:"assigned_at" db:"assigned_at"`
}
