package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/centralauth/identity-hub/internal/config"
	"github.com/centralauth/identity-hub/internal/domain"
	"github.com/centralauth/identity-hub/internal/repository"
	"github.com/centralauth/identity-hub/pkg/email"
	"github.com/centralauth/identity-hub/pkg/hash"
	"github.com/centralauth/identity-hub/pkg/magiclink"
	"github.com/centralauth/identity-hub/pkg/token"
)

// AuthService owns registration, login and token issuance. Registration
// and login share one issuance path; registration only creates the user
// row first.
type AuthService struct {
	userRepo    repository.UserRepository
	rbacRepo    repository.RbacRepository
	registry    *RegistryService
	authMethods *AuthMethodService
	issuer      *token.Issuer
	magicLinks  *magiclink.Store
	emails      email.Sender
	cfg         *config.Config
}

func NewAuthService(
	userRepo repository.UserRepository,
	rbacRepo repository.RbacRepository,
	registry *RegistryService,
	authMethods *AuthMethodService,
	issuer *token.Issuer,
	magicLinks *magiclink.Store,
	emails email.Sender,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		rbacRepo:    rbacRepo,
		registry:    registry,
		authMethods: authMethods,
		issuer:      issuer,
		magicLinks:  magicLinks,
		emails:      emails,
		cfg:         cfg,
	}
}

type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	ServiceID   string `json:"service_id" validate:"omitempty,uuid"`
	RedirectURI string `json:"redirect_uri" validate:"omitempty,url"`
}

type LoginRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	ServiceID   string `json:"service_id" validate:"omitempty,uuid"`
	RedirectURI string `json:"redirect_uri" validate:"omitempty,url"`
}

type AuthResponse struct {
	Token          string   `json:"token"`
	RedirectTarget string   `json:"redirect_target,omitempty"`
	ExpiresAt      int64    `json:"expires_at"`
	User           *UserDTO `json:"user"`
}

type UserDTO struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// Register creates the user and issues a token for the target service.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	serviceID, err := s.resolveServiceID(req.ServiceID)
	if err != nil {
		return nil, err
	}

	passwordHash, err := hash.Password(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: passwordHash,
		Status:       domain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.issue(ctx, user, serviceID, req.RedirectURI)
}

// Login authenticates with email and password and issues a token.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	serviceID, err := s.resolveServiceID(req.ServiceID)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if user.Status == domain.UserStatusLocked {
		if user.LockedUntil != nil && time.Now().Before(*user.LockedUntil) {
			return nil, domain.ErrAccountLocked
		}
		// Lock period expired; unlock before verifying.
		if err := s.userRepo.ResetFailedLogins(ctx, user.ID); err != nil {
			return nil, err
		}
		user.Status = domain.UserStatusActive
		user.FailedLogins = 0
	}

	valid, err := hash.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !valid {
		if err := s.handleFailedLogin(ctx, user); err != nil {
			return nil, err
		}
		return nil, domain.ErrInvalidCredentials
	}

	if user.FailedLogins > 0 {
		if err := s.userRepo.ResetFailedLogins(ctx, user.ID); err != nil {
			return nil, err
		}
	}

	return s.issue(ctx, user, serviceID, req.RedirectURI)
}

// issue is the shared issuance path for every login strategy: resolve
// the service secret (generating lazily on first use), resolve the
// user's roles (an empty set is fine: authenticated but not yet
// authorized), sign, and compute the redirect target.
func (s *AuthService) issue(ctx context.Context, user *domain.User, serviceID uuid.UUID, redirectURI string) (*AuthResponse, error) {
	secret, err := s.registry.EnsureSecret(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	roles, err := s.rbacRepo.GetUserRoles(ctx, user.ID, serviceID)
	if err != nil {
		return nil, err
	}
	roleIDs := make([]string, len(roles))
	for i, role := range roles {
		roleIDs[i] = role.ID.String()
	}

	signed, expiresAt, err := s.issuer.Issue(secret, user, serviceID, roleIDs)
	if err != nil {
		return nil, err
	}

	target := ""
	if redirectURI != "" {
		target, err = BuildRedirectTarget(redirectURI, signed, user.ID)
		if err != nil {
			return nil, err
		}
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		log.Printf("[AUTH] Failed to update last login for %s: %v", user.ID, err)
	}

	return &AuthResponse{
		Token:          signed,
		RedirectTarget: target,
		ExpiresAt:      expiresAt.Unix(),
		User:           &UserDTO{ID: user.ID, Email: user.Email},
	}, nil
}

// BuildRedirectTarget appends the token and user id to the external
// redirect URI, preserving any query string already present.
func BuildRedirectTarget(redirectURI, signedToken string, userID uuid.UUID) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", fmt.Errorf("invalid redirect_uri: %w", err)
	}

	q := u.Query()
	q.Set("token", signedToken)
	q.Set("user_id", userID.String())
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (s *AuthService) resolveServiceID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return domain.HubServiceID, nil
	}
	serviceID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("service_id: %w", domain.ErrInvalidReference)
	}
	return serviceID, nil
}

// handleFailedLogin increments the failure counter and locks the
// account once the threshold is reached.
func (s *AuthService) handleFailedLogin(ctx context.Context, user *domain.User) error {
	if err := s.userRepo.IncrementFailedLogins(ctx, user.ID); err != nil {
		return err
	}

	updated, err := s.userRepo.GetByID(ctx, user.ID)
	if err != nil {
		return err
	}

	if updated.FailedLogins >= s.cfg.Auth.MaxFailedLogins {
		lockUntil := time.Now().Add(s.cfg.Auth.LockDuration)
		updated.Status = domain.UserStatusLocked
		updated.LockedUntil = &lockUntil
		if err := s.userRepo.Update(ctx, updated); err != nil {
			return err
		}
	}
	return nil
}

type MagicLinkRequest struct {
	Email     string `json:"email" validate:"required,email"`
	ServiceID string `json:"service_id" validate:"required,uuid"`
}

// RequestMagicLink issues a one-time sign-in code and emails it. The
// response is identical whether or not the address is registered.
func (s *AuthService) RequestMagicLink(ctx context.Context, req MagicLinkRequest) error {
	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		return fmt.Errorf("service_id: %w", domain.ErrInvalidReference)
	}

	effective, err := s.authMethods.EffectiveByKey(ctx, serviceID, domain.AuthMethodMagicLink)
	if err != nil {
		return err
	}
	if !effective.Enabled || !effective.Implemented {
		return fmt.Errorf("magic link login is not available for this service: %w", domain.ErrNotFound)
	}

	address := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.userRepo.GetByEmail(ctx, address); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Do not reveal whether an address is registered.
			log.Printf("[AUTH] Magic link requested for unknown address")
			return nil
		}
		return err
	}

	code, err := s.magicLinks.Create(ctx, serviceID, address)
	if err != nil {
		return err
	}

	if s.emails == nil {
		log.Printf("[AUTH] Email disabled; magic link for service %s not delivered", serviceID)
		return nil
	}

	svc, err := s.registry.Get(ctx, serviceID)
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s?email=%s&code=%s&service_id=%s",
		s.cfg.Auth.MagicLinkBaseURL, url.QueryEscape(address), code, serviceID)
	return s.emails.SendMagicLink(ctx, address, svc.Name, link)
}

type MagicLinkVerifyRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required"`
	ServiceID   string `json:"service_id" validate:"required,uuid"`
	RedirectURI string `json:"redirect_uri" validate:"omitempty,url"`
}

// VerifyMagicLink redeems a code and runs the shared issuance path.
func (s *AuthService) VerifyMagicLink(ctx context.Context, req MagicLinkVerifyRequest) (*AuthResponse, error) {
	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("service_id: %w", domain.ErrInvalidReference)
	}

	address := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.magicLinks.Consume(ctx, serviceID, address, req.Code); err != nil {
		if errors.Is(err, magiclink.ErrCodeInvalid) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, address)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	return s.issue(ctx, user, serviceID, req.RedirectURI)
}
