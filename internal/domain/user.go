package domain

import (
	"time"

	"github.com/google/uuid"
)

type UserStatus string

const (
	UserStatusActive UserStatus = "active"
	UserStatusLocked UserStatus = "locked"
)

type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Status       UserStatus `json:"status" db:"status"`
	// IsAdmin is a bootstrap flag for the hub's own admin surface; it is
	// not used for service-scoped authorization (see UserServiceRole).
	IsAdmin      bool       `json:"is_admin" db:"is_admin"`
	FailedLogins int        `json:"-" db:"failed_logins"`
	LockedUntil  *time.Time `json:"-" db:"locked_until"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at" db:"last_login_at"`
}
