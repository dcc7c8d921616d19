package domain

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the payload of an issued token. Subject is the user ID,
// Audience the target service ID. RoleIDs carries the role identifiers
// resolved at issuance; verifiers re-resolve permissions from current
// state instead of trusting an embedded permission list.
type Claims struct {
	jwt.RegisteredClaims
	UserID  uuid.UUID `json:"uid"`
	Email   string    `json:"email,omitempty"`
	RoleIDs []string  `json:"roles,omitempty"`
}

// IssuedToken is what the issuer hands back to a login or registration
// flow: the signed token plus where to send the caller next.
type IssuedToken struct {
	Token string `json:"token"`
	// RedirectTarget is empty when no external redirect_uri was
	// supplied; the caller then keeps the token in client storage.
	RedirectTarget string `json:"redirect_target,omitempty"`
	ExpiresAt      int64  `json:"expires_at"`
}
