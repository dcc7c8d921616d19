package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/centralauth/identity-hub/internal/domain"
	"github.com/centralauth/identity-hub/internal/repository"
)

// AuthMethodService computes the effective per-service login method
// configuration: catalog defaults overlaid with any per-service
// override row, ordered for display.
type AuthMethodService struct {
	methodRepo  repository.AuthMethodRepository
	serviceRepo repository.ServiceRepository
}

func NewAuthMethodService(methodRepo repository.AuthMethodRepository, serviceRepo repository.ServiceRepository) *AuthMethodService {
	return &AuthMethodService{methodRepo: methodRepo, serviceRepo: serviceRepo}
}

// ListForService returns the effective method list for one service.
// Methods with an override row come first, in display order; catalog
// methods without one follow with defaults applied.
func (s *AuthMethodService) ListForService(ctx context.Context, serviceID uuid.UUID) ([]*domain.EffectiveAuthMethod, error) {
	catalog, err := s.methodRepo.ListCatalog(ctx)
	if err != nil {
		return nil, err
	}

	overrides := map[uuid.UUID]*domain.ServiceAuthMethod{}
	cfg, err := s.methodRepo.GetConfigByService(ctx, serviceID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if cfg != nil {
		rows, err := s.methodRepo.ListOverrides(ctx, cfg.ID)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			overrides[row.AuthMethodID] = row
		}
	}

	var configured, defaulted []*domain.EffectiveAuthMethod
	for _, method := range catalog {
		effective := overlay(method, overrides[method.ID])
		if _, ok := overrides[method.ID]; ok {
			configured = append(configured, effective)
		} else {
			defaulted = append(defaulted, effective)
		}
	}

	sort.Slice(configured, func(i, j int) bool {
		return configured[i].DisplayOrder < configured[j].DisplayOrder
	})
	sort.Slice(defaulted, func(i, j int) bool {
		return defaulted[i].Name < defaulted[j].Name
	})

	result := append(configured, defaulted...)
	for i, m := range result {
		m.DisplayOrder = i
	}
	return result, nil
}

// overlay applies override fields on top of catalog defaults: any field
// present on the per-service row wins, nil falls back to the catalog.
func overlay(method *domain.AuthMethod, override *domain.ServiceAuthMethod) *domain.EffectiveAuthMethod {
	effective := &domain.EffectiveAuthMethod{
		MethodID:    method.ID,
		Key:         method.Key,
		Name:        method.Name,
		Description: method.Description,
		Icon:        method.Icon,
		Implemented: method.Implemented,
		Enabled:     method.DefaultEnabled,
		ButtonText:  method.Name,
	}
	if override == nil {
		return effective
	}

	effective.DisplayOrder = override.DisplayOrder
	if override.Enabled != nil {
		effective.Enabled = *override.Enabled
	}
	if override.ShowComingSoonBadge != nil {
		effective.ShowComingSoonBadge = *override.ShowComingSoonBadge
	}
	if override.ButtonText != nil && *override.ButtonText != "" {
		effective.ButtonText = *override.ButtonText
	}
	if override.HelpText != nil {
		effective.HelpText = *override.HelpText
	}
	return effective
}

// effectiveFor resolves a single method's effective config.
func (s *AuthMethodService) effectiveFor(ctx context.Context, serviceID, methodID uuid.UUID) (*domain.EffectiveAuthMethod, error) {
	methods, err := s.ListForService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	for _, m := range methods {
		if m.MethodID == methodID {
			return m, nil
		}
	}
	return nil, fmt.Errorf("auth method %s: %w", methodID, domain.ErrNotFound)
}

// EffectiveByKey resolves one method's effective config by catalog key.
func (s *AuthMethodService) EffectiveByKey(ctx context.Context, serviceID uuid.UUID, key string) (*domain.EffectiveAuthMethod, error) {
	method, err := s.methodRepo.GetMethodByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.effectiveFor(ctx, serviceID, method.ID)
}

func (s *AuthMethodService) GetLoginConfig(ctx context.Context, serviceID uuid.UUID) (*domain.LoginPageConfig, error) {
	return s.methodRepo.GetConfigByService(ctx, serviceID)
}

type UpdateLoginConfigRequest struct {
	Title           *string `json:"title" validate:"omitempty,max=255"`
	Description     *string `json:"description" validate:"omitempty,max=1000"`
	LogoURL         *string `json:"logo_url" validate:"omitempty,url"`
	PrimaryColor    *string `json:"primary_color" validate:"omitempty,hexcolor"`
	DefaultMethodID *string `json:"default_method" validate:"omitempty,uuid"`
}

// UpdateLoginConfig applies a partial branding update. Setting the
// default method requires it to be both enabled and implemented for
// this service.
func (s *AuthMethodService) UpdateLoginConfig(ctx context.Context, serviceID uuid.UUID, req UpdateLoginConfigRequest) (*domain.LoginPageConfig, error) {
	if _, err := s.serviceRepo.GetByID(ctx, serviceID); err != nil {
		return nil, err
	}

	cfg, err := s.methodRepo.EnsureConfig(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		cfg.Title = *req.Title
	}
	if req.Description != nil {
		cfg.Description = *req.Description
	}
	if req.LogoURL != nil {
		cfg.LogoURL = *req.LogoURL
	}
	if req.PrimaryColor != nil {
		cfg.PrimaryColor = *req.PrimaryColor
	}
	if req.DefaultMethodID != nil {
		methodID, err := uuid.Parse(*req.DefaultMethodID)
		if err != nil {
			return nil, fmt.Errorf("default_method: %w", domain.ErrInvalidReference)
		}
		effective, err := s.effectiveFor(ctx, serviceID, methodID)
		if err != nil {
			return nil, err
		}
		if !effective.SelectableAsDefault() {
			return nil, fmt.Errorf("method %s (enabled=%t, implemented=%t): %w",
				effective.Key, effective.Enabled, effective.Implemented, domain.ErrInvalidDefault)
		}
		cfg.DefaultMethodID = &methodID
	}

	if err := s.methodRepo.UpdateConfig(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

type MethodConfigInput struct {
	ID                  string  `json:"id" validate:"required,uuid"`
	Enabled             *bool   `json:"enabled"`
	ShowComingSoonBadge *bool   `json:"show_coming_soon_badge"`
	ButtonText          *string `json:"button_text" validate:"omitempty,max=100"`
	HelpText            *string `json:"help_text" validate:"omitempty,max=500"`
	DisplayOrder        int     `json:"display_order" validate:"gte=0"`
}

type ReplaceMethodsRequest struct {
	Methods []MethodConfigInput `json:"methods" validate:"required,min=1,dive"`
}

// ReplaceMethods swaps the full per-service method configuration in one
// atomic update. Display orders must be 0-based and contiguous; a
// partial reorder is not a valid state.
func (s *AuthMethodService) ReplaceMethods(ctx context.Context, serviceID uuid.UUID, req ReplaceMethodsRequest) error {
	if _, err := s.serviceRepo.GetByID(ctx, serviceID); err != nil {
		return err
	}

	seenOrder := make(map[int]bool, len(req.Methods))
	seenMethod := make(map[uuid.UUID]bool, len(req.Methods))
	overrides := make([]*domain.ServiceAuthMethod, 0, len(req.Methods))

	for _, in := range req.Methods {
		methodID, err := uuid.Parse(in.ID)
		if err != nil {
			return fmt.Errorf("method id %q: %w", in.ID, domain.ErrInvalidReference)
		}
		if seenMethod[methodID] {
			return fmt.Errorf("method %s listed twice: %w", methodID, domain.ErrConflict)
		}
		seenMethod[methodID] = true

		if in.DisplayOrder < 0 || in.DisplayOrder >= len(req.Methods) || seenOrder[in.DisplayOrder] {
			return fmt.Errorf("display orders must be contiguous from 0: %w", domain.ErrInvalidReference)
		}
		seenOrder[in.DisplayOrder] = true

		overrides = append(overrides, &domain.ServiceAuthMethod{
			AuthMethodID:        methodID,
			Enabled:             in.Enabled,
			ShowComingSoonBadge: in.ShowComingSoonBadge,
			ButtonText:          in.ButtonText,
			HelpText:            in.HelpText,
			DisplayOrder:        in.DisplayOrder,
		})
	}

	cfg, err := s.methodRepo.EnsureConfig(ctx, serviceID)
	if err != nil {
		return err
	}
	return s.methodRepo.ReplaceOverrides(ctx, cfg.ID, overrides)
}

// SetEnabled toggles one method for a service, preserving any other
// override fields already configured for it.
func (s *AuthMethodService) SetEnabled(ctx context.Context, serviceID, methodID uuid.UUID, enabled bool) error {
	if _, err := s.methodRepo.GetMethod(ctx, methodID); err != nil {
		return err
	}
	cfg, err := s.methodRepo.EnsureConfig(ctx, serviceID)
	if err != nil {
		return err
	}

	rows, err := s.methodRepo.ListOverrides(ctx, cfg.ID)
	if err != nil {
		return err
	}

	var override *domain.ServiceAuthMethod
	nextOrder := 0
	for _, row := range rows {
		if row.AuthMethodID == methodID {
			override = row
		}
		if row.DisplayOrder >= nextOrder {
			nextOrder = row.DisplayOrder + 1
		}
	}
	if override == nil {
		override = &domain.ServiceAuthMethod{
			LoginConfigID: cfg.ID,
			AuthMethodID:  methodID,
			DisplayOrder:  nextOrder,
		}
	}
	override.Enabled = &enabled

	return s.methodRepo.UpsertOverride(ctx, override)
}
