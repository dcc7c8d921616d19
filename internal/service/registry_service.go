package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/centralauth/identity-hub/internal/domain"
	"github.com/centralauth/identity-hub/internal/repository"
	"github.com/centralauth/identity-hub/pkg/vault"
)

// RegistryService manages the catalog of downstream services and their
// signing secrets.
type RegistryService struct {
	serviceRepo repository.ServiceRepository
	vault       *vault.Vault
}

func NewRegistryService(serviceRepo repository.ServiceRepository, v *vault.Vault) *RegistryService {
	return &RegistryService{serviceRepo: serviceRepo, vault: v}
}

type CreateServiceRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=255"`
	Description string `json:"description" validate:"max=500"`
	RedirectURL string `json:"redirect_url" validate:"omitempty,url"`
}

func (s *RegistryService) Create(ctx context.Context, req CreateServiceRequest) (*domain.Service, error) {
	now := time.Now()
	svc := &domain.Service{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		RedirectURL: req.RedirectURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.serviceRepo.Create(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *RegistryService) Get(ctx context.Context, id uuid.UUID) (*domain.Service, error) {
	return s.serviceRepo.GetByID(ctx, id)
}

func (s *RegistryService) List(ctx context.Context) ([]*domain.Service, error) {
	return s.serviceRepo.List(ctx)
}

func (s *RegistryService) Update(ctx context.Context, svc *domain.Service) error {
	return s.serviceRepo.Update(ctx, svc)
}

// Delete refuses to remove system services, including the hub's own row.
func (s *RegistryService) Delete(ctx context.Context, id uuid.UUID) error {
	svc, err := s.serviceRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if svc.System || svc.ID == domain.HubServiceID {
		return domain.ErrProtectedService
	}
	return s.serviceRepo.Delete(ctx, id)
}

// EnsureSecret returns the service's plaintext signing secret,
// generating one on first use. Concurrent first logins race on the
// conditional write; the loser re-reads and uses the winner's secret,
// so a service ends up with exactly one secret.
func (s *RegistryService) EnsureSecret(ctx context.Context, serviceID uuid.UUID) (string, error) {
	svc, err := s.serviceRepo.GetByID(ctx, serviceID)
	if err != nil {
		return "", err
	}
	if svc.HasSecret() {
		return s.decryptSecret(svc)
	}

	secret, preview, err := s.vault.GenerateSecret()
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrServiceNotConfigured, err)
	}
	ciphertext, err := s.vault.Encrypt(secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrServiceNotConfigured, err)
	}

	won, err := s.serviceRepo.SetSecretIfAbsent(ctx, serviceID, ciphertext, preview)
	if err != nil {
		return "", err
	}
	if won {
		log.Printf("[REGISTRY] Generated signing secret for service %s", serviceID)
		return secret, nil
	}

	// Lost the race; another login generated the secret first.
	svc, err = s.serviceRepo.GetByID(ctx, serviceID)
	if err != nil {
		return "", err
	}
	if !svc.HasSecret() {
		return "", fmt.Errorf("service %s: %w", serviceID, domain.ErrServiceNotConfigured)
	}
	return s.decryptSecret(svc)
}

// CurrentSecret returns the plaintext signing secret without ever
// generating one. Verification paths use this: a service that has never
// issued a token has nothing to verify against.
func (s *RegistryService) CurrentSecret(ctx context.Context, serviceID uuid.UUID) (string, error) {
	svc, err := s.serviceRepo.GetByID(ctx, serviceID)
	if err != nil {
		return "", err
	}
	if !svc.HasSecret() {
		return "", fmt.Errorf("service %s: %w", serviceID, domain.ErrServiceNotConfigured)
	}
	return s.decryptSecret(svc)
}

// RotateSecret installs a fresh signing secret. Every token issued
// under the old secret stops verifying; that is the point of rotation,
// not a side effect to absorb.
func (s *RegistryService) RotateSecret(ctx context.Context, serviceID uuid.UUID) (preview string, err error) {
	if _, err := s.serviceRepo.GetByID(ctx, serviceID); err != nil {
		return "", err
	}

	secret, preview, err := s.vault.GenerateSecret()
	if err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	ciphertext, err := s.vault.Encrypt(secret)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt secret: %w", err)
	}

	if err := s.serviceRepo.ReplaceSecret(ctx, serviceID, ciphertext, preview); err != nil {
		return "", err
	}
	log.Printf("[REGISTRY] Rotated signing secret for service %s", serviceID)
	return preview, nil
}

// SecretPreview returns the stored display preview. The plaintext never
// leaves the issuance and verification paths.
func (s *RegistryService) SecretPreview(ctx context.Context, serviceID uuid.UUID) (string, error) {
	svc, err := s.serviceRepo.GetByID(ctx, serviceID)
	if err != nil {
		return "", err
	}
	if svc.SecretPreview == nil {
		return "", fmt.Errorf("service %s: %w", serviceID, domain.ErrServiceNotConfigured)
	}
	return *svc.SecretPreview, nil
}

func (s *RegistryService) decryptSecret(svc *domain.Service) (string, error) {
	secret, err := s.vault.Decrypt(*svc.SecretCiphertext)
	if err != nil {
		// Tampered ciphertext or wrong master key. Fatal configuration
		// error for this service; never fall back or regenerate.
		log.Printf("[REGISTRY] Cannot decrypt signing secret for service %s: %v", svc.ID, err)
		return "", fmt.Errorf("%w: signing secret cannot be decrypted", domain.ErrServiceNotConfigured)
	}
	return secret, nil
}
