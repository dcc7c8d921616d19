package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/centralauth/identity-hub/internal/domain"
	"github.com/centralauth/identity-hub/internal/repository"
	"github.com/centralauth/identity-hub/pkg/token"
)

// AuthorizeService decides whether a presented token grants a required
// permission on a service. Signature and audience are checked against
// the service's current secret; permissions are re-resolved from the
// store through the token's roles, so edits to a role take effect on
// the next check rather than the next issuance.
type AuthorizeService struct {
	registry *RegistryService
	rbacRepo repository.RbacRepository
	issuer   *token.Issuer
}

func NewAuthorizeService(registry *RegistryService, rbacRepo repository.RbacRepository, issuer *token.Issuer) *AuthorizeService {
	return &AuthorizeService{registry: registry, rbacRepo: rbacRepo, issuer: issuer}
}

// VerifyToken validates signature, expiry and audience. A rotated
// secret fails every previously issued token here, deliberately.
func (s *AuthorizeService) VerifyToken(ctx context.Context, raw string, serviceID uuid.UUID) (*domain.Claims, error) {
	secret, err := s.registry.CurrentSecret(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	return s.issuer.Verify(secret, raw, serviceID)
}

// Authorize reports whether the token's principal holds the required
// permission on the service.
func (s *AuthorizeService) Authorize(ctx context.Context, raw string, serviceID uuid.UUID, requiredPermission string) (bool, error) {
	claims, err := s.VerifyToken(ctx, raw, serviceID)
	if err != nil {
		return false, err
	}

	perms, err := s.PermissionsForClaims(ctx, claims)
	if err != nil {
		return false, err
	}

	for _, p := range perms {
		if p.Name == requiredPermission {
			return true, nil
		}
	}
	return false, nil
}

// PermissionsForClaims expands the token's role IDs through the current
// role-permission edges. The token never carries permissions itself.
func (s *AuthorizeService) PermissionsForClaims(ctx context.Context, claims *domain.Claims) ([]*domain.Permission, error) {
	if len(claims.RoleIDs) == 0 {
		return nil, nil
	}

	roleIDs := make([]uuid.UUID, 0, len(claims.RoleIDs))
	for _, raw := range claims.RoleIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("role claim %q: %w", raw, domain.ErrTokenMalformed)
		}
		roleIDs = append(roleIDs, id)
	}

	return s.rbacRepo.PermissionsForRoles(ctx, roleIDs)
}
