package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/centralauth/identity-hub/internal/domain"
)

type ServiceRepository interface {
	Create(ctx context.Context, svc *domain.Service) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Service, error)
	List(ctx context.Context) ([]*domain.Service, error)
	Update(ctx context.Context, svc *domain.Service) error
	Delete(ctx context.Context, id uuid.UUID) error

	// SetSecretIfAbsent writes the encrypted secret and preview only if
	// the service has none yet. It reports false when another writer
	// won the race; the caller must then re-read and use the winner's
	// secret. This is the guard for "lazy generate on first login".
	SetSecretIfAbsent(ctx context.Context, id uuid.UUID, ciphertext, preview string) (bool, error)

	// ReplaceSecret unconditionally installs a new encrypted secret and
	// preview (rotation).
	ReplaceSecret(ctx context.Context, id uuid.UUID, ciphertext, preview string) error
}
