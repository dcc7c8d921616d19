package domain

import "errors"

// Core error taxonomy. Services and repositories return these (usually
// wrapped with %w); handlers map them to HTTP statuses.
var (
	// ErrConflict signals a uniqueness violation: a duplicate role
	// assignment triple, a service already bound to a different model,
	// or a duplicate (config, method) override pair.
	ErrConflict = errors.New("resource conflict")

	// ErrInvalidReference signals a cross-model edge or an unknown
	// foreign key, e.g. assigning a role whose model is not the one
	// bound to the target service.
	ErrInvalidReference = errors.New("invalid reference")

	ErrNotFound = errors.New("not found")

	// ErrServiceNotConfigured means the service has no signing secret
	// and lazy generation failed.
	ErrServiceNotConfigured = errors.New("service not configured")

	// ErrInvalidDefault means the requested default auth method is not
	// both enabled and implemented for the service.
	ErrInvalidDefault = errors.New("method not eligible as default")

	// ErrProtectedService guards the hub's own service row and any
	// other service flagged as system from deletion.
	ErrProtectedService = errors.New("system service cannot be deleted")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account is locked")
)

// Token verification failures. All three deny access; they are
// distinguished for observability only.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrWrongAudience  = errors.New("token audience mismatch")
)
