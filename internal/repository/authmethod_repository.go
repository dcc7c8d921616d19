package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/centralauth/identity-hub/internal/domain"
)

type AuthMethodRepository interface {
	// Catalog
	ListCatalog(ctx context.Context) ([]*domain.AuthMethod, error)
	GetMethod(ctx context.Context, id uuid.UUID) (*domain.AuthMethod, error)
	GetMethodByKey(ctx context.Context, key string) (*domain.AuthMethod, error)

	// Per-service login page config (at most one per service).
	GetConfigByService(ctx context.Context, serviceID uuid.UUID) (*domain.LoginPageConfig, error)
	// EnsureConfig returns the existing config for the service or
	// creates an empty one; creation races resolve to the winner's row.
	EnsureConfig(ctx context.Context, serviceID uuid.UUID) (*domain.LoginPageConfig, error)
	UpdateConfig(ctx context.Context, cfg *domain.LoginPageConfig) error

	// Per-(config, method) overrides.
	ListOverrides(ctx context.Context, configID uuid.UUID) ([]*domain.ServiceAuthMethod, error)
	// ReplaceOverrides swaps the full override set of one config in a
	// single transaction; partial states are never observable.
	ReplaceOverrides(ctx context.Context, configID uuid.UUID, overrides []*domain.ServiceAuthMethod) error
	// UpsertOverride updates one (config, method) row, inserting it if
	// missing. Used for single-field toggles.
	UpsertOverride(ctx context.Context, override *domain.ServiceAuthMethod) error
}
