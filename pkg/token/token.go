package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/centralauth/identity-hub/internal/domain"
)

// Issuer mints and verifies HS256 tokens. Unlike a single-keypair
// setup, every service has its own signing secret, so the secret is an
// argument rather than issuer state: rotating a service's secret
// invalidates everything previously issued for that service.
type Issuer struct {
	issuer string
	ttl    time.Duration
}

func NewIssuer(issuer string, ttl time.Duration) *Issuer {
	return &Issuer{issuer: issuer, ttl: ttl}
}

// Issue signs a token binding the user (subject) to the target service
// (audience) with the role IDs resolved at issuance time.
func (i *Issuer) Issue(secret string, user *domain.User, serviceID uuid.UUID, roleIDs []string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(i.ttl)

	claims := domain.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   user.ID.String(),
			Audience:  jwt.ClaimStrings{serviceID.String()},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		UserID:  user.ID,
		Email:   user.Email,
		RoleIDs: roleIDs,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature, expiry and audience against the service's
// current secret. The three failure modes are distinguished for
// observability; all of them deny access.
func (i *Issuer) Verify(secret, raw string, serviceID uuid.UUID) (*domain.Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &domain.Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenMalformed, err)
	}

	claims, ok := parsed.Claims.(*domain.Claims)
	if !ok || !parsed.Valid {
		return nil, domain.ErrTokenMalformed
	}

	if !audienceContains(claims.Audience, serviceID.String()) {
		return nil, domain.ErrWrongAudience
	}

	return claims, nil
}

func audienceContains(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
