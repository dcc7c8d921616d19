package domain

import (
	"time"

	"github.com/google/uuid"
)

// HubServiceID is the well-known service row representing the hub
// itself. Tokens for the hub's own admin surface carry this audience.
var HubServiceID = uuid.MustParse("00000000-0000-4000-8000-000000000001")

// Service is a registered downstream application. The signing secret is
// persisted only as ciphertext plus a display preview; the plaintext
// exists in memory during issuance and verification.
type Service struct {
	ID               uuid.UUID `json:"id" db:"id"`
	Name             string    `json:"name" db:"name" validate:"required,min=2,max=255"`
	Description      string    `json:"description" db:"description" validate:"max=500"`
	RedirectURL      string    `json:"redirect_url" db:"redirect_url" validate:"omitempty,url"`
	System           bool      `json:"system" db:"system"`
	SecretCiphertext *string   `json:"-" db:"secret_ciphertext"`
	SecretPreview    *string   `json:"secret_preview,omitempty" db:"secret_preview"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// HasSecret reports whether a signing secret has been generated for
// this service yet. Secrets are generated lazily on first login.
func (s *Service) HasSecret() bool {
	return s.SecretCiphertext != nil && *s.SecretCiphertext != ""
}
