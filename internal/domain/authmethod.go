package domain

import (
	"time"

	"github.com/google/uuid"
)

// Well-known auth method keys seeded into the catalog.
const (
	AuthMethodUUID      = "uuid"
	AuthMethodEmail     = "email"
	AuthMethodFederated = "federated"
	AuthMethodWebAuthn  = "webauthn"
	AuthMethodMagicLink = "magic_link"
)

// AuthMethod is a global catalog entry describing a login strategy.
// Implemented tracks whether a backend actually exists; a method can be
// enabled for a service while still unimplemented, which renders as a
// "coming soon" affordance but is never selectable as the default.
type AuthMethod struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Key            string    `json:"key" db:"key"`
	Name           string    `json:"name" db:"name"`
	Description    string    `json:"description" db:"description"`
	Icon           string    `json:"icon" db:"icon"`
	Implemented    bool      `json:"implemented" db:"implemented"`
	DefaultEnabled bool      `json:"default_enabled" db:"default_enabled"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// LoginPageConfig is per-service branding plus the default method
// selection. At most one config exists per service.
type LoginPageConfig struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	ServiceID       uuid.UUID  `json:"service_id" db:"service_id"`
	Title           string     `json:"title" db:"title"`
	Description     string     `json:"description" db:"description"`
	LogoURL         string     `json:"logo_url" db:"logo_url"`
	PrimaryColor    string     `json:"primary_color" db:"primary_color"`
	DefaultMethodID *uuid.UUID `json:"default_method_id" db:"default_method_id"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// ServiceAuthMethod is the per-(config, method) override row. Nil
// fields fall back to the catalog defaults; DisplayOrder is 0-based and
// contiguous across all overrides of one config.
type ServiceAuthMethod struct {
	ID                  uuid.UUID `json:"id" db:"id"`
	LoginConfigID       uuid.UUID `json:"login_config_id" db:"login_config_id"`
	AuthMethodID        uuid.UUID `json:"auth_method_id" db:"auth_method_id"`
	Enabled             *bool     `json:"enabled" db:"enabled"`
	ShowComingSoonBadge *bool     `json:"show_coming_soon_badge" db:"show_coming_soon_badge"`
	ButtonText          *string   `json:"button_text" db:"button_text"`
	HelpText            *string   `json:"help_text" db:"help_text"`
	DisplayOrder        int       `json:"display_order" db:"display_order"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// EffectiveAuthMethod is a catalog entry with any per-service override
// fields applied, in display order.
type EffectiveAuthMethod struct {
	MethodID            uuid.UUID `json:"method_id"`
	Key                 string    `json:"key"`
	Name                string    `json:"name"`
	Description         string    `json:"description"`
	Icon                string    `json:"icon"`
	Implemented         bool      `json:"implemented"`
	Enabled             bool      `json:"enabled"`
	ShowComingSoonBadge bool      `json:"show_coming_soon_badge"`
	ButtonText          string    `json:"button_text"`
	HelpText            string    `json:"help_text"`
	DisplayOrder        int       `json:"display_order"`
}

// SelectableAsDefault reports whether this method may be set as the
// login page default: it must be both enabled and implemented.
func (m *EffectiveAuthMethod) SelectableAsDefault() bool {
	return m.Enabled && m.Implemented
}
