package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/centralauth/identity-hub/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
	IncrementFailedLogins(ctx context.Context, id uuid.UUID) error
	ResetFailedLogins(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*domain.User, error)
}
