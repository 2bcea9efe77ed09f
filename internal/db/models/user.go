package models

import (
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
)

// UserSource represents the identity source of a user account.
// The numeric values are part of the public API (the login "type" field).
type UserSource int

const (
	// SourceLocal indicates the user authenticates with a local database password.
	SourceLocal UserSource = 0
	// SourceOpenLDAP indicates the user authenticates against the OpenLDAP directory.
	SourceOpenLDAP UserSource = 1
	// SourceFreeIPA indicates the user authenticates against the FreeIPA directory.
	SourceFreeIPA UserSource = 2
)

// String returns the provider name of the source as shown to administrators.
func (s UserSource) String() string {
	switch s {
	case SourceLocal:
		return "Local"
	case SourceOpenLDAP:
		return "OpenLDAP"
	case SourceFreeIPA:
		return "FreeIPA"
	default:
		return fmt.Sprintf("UserSource(%d)", int(s))
	}
}

// IsDirectory reports whether the source is one of the external directories.
func (s UserSource) IsDirectory() bool {
	return s == SourceOpenLDAP || s == SourceFreeIPA
}

// PasswordParams are the argon2id parameters used by HashPassword.
// They can be lowered for tests or tuned from the configuration.
var PasswordParams = argon2id.DefaultParams //nolint:gochecknoglobals

// User represents a human identity known to the portal.
// Directory users are stored as shadow rows so that roles have something to attach to;
// their password hash is random and never checked.
type User struct {
	// ID is the unique identifier for the user.
	ID uint64 `gorm:"primaryKey" json:"id"`
	// Username is the unique, case-sensitive login name.
	Username string `gorm:"unique;size:100;not null" json:"username"`
	// Name is the display name.
	Name string `gorm:"size:255;not null" json:"name"`
	// Email is the optional email address.
	Email string `gorm:"size:255" json:"email"`
	// Password is the argon2id hash. For directory users it is a hash of a random secret.
	Password string `gorm:"size:255;not null" json:"-"`
	// Source is the identity source (local, OpenLDAP or FreeIPA).
	Source UserSource `gorm:"not null;default:0" json:"source"`
	// Roles are the roles held by the user (join table role_user).
	Roles []Role `gorm:"many2many:role_user;" json:"roles"`
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the database table name for the User model.
func (User) TableName() string {
	return "users"
}

// HashPassword hashes a plaintext password using the argon2id algorithm.
func HashPassword(password string) (string, error) {
	hashedPassword, err := argon2id.CreateHash(password, PasswordParams)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return hashedPassword, nil
}

// VerifyPassword verifies a plaintext password against the user's stored hashed password.
// It uses constant-time comparison to prevent timing attacks.
func (u *User) VerifyPassword(password string) bool {
	match, err := argon2id.ComparePasswordAndHash(password, u.Password)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", u.ID).Msg("failed to verify password")
		return false
	}

	return match
}

// HasRole reports whether the loaded roles contain the given name.
// Roles must have been preloaded.
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == NormalizeRoleName(name) {
			return true
		}
	}

	return false
}

// EnsureRoles replaces a nil role slice with an empty one so the JSON output is always a list.
func (u *User) EnsureRoles() {
	if u.Roles == nil {
		u.Roles = []Role{}
	}
}
