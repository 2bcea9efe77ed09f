package models

import (
	"strings"
	"time"
)

// AdminRoleName is the protected system role. It bypasses every authorization check
// and can never be renamed or deleted.
const AdminRoleName = "admin"

// Role represents a named permission bucket (e.g. "admin", "staff", "guest").
// Users hold roles, and roles are linked to the services their holders may reach.
type Role struct {
	// ID is the unique identifier for the role.
	ID uint `gorm:"primaryKey" json:"id"`
	// Name is the unique, lowercase name of the role.
	Name string `gorm:"unique;size:100;not null" json:"name"`
	// Services are the services linked to this role (join table role_service).
	Services []Service `gorm:"many2many:role_service;" json:"services,omitempty"`
	// CreatedAt is the timestamp when the role was created (managed by GORM).
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is the timestamp when the role was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the database table name for the Role model.
func (Role) TableName() string {
	return "roles"
}

// IsProtected reports whether the role is the protected admin role.
func (r *Role) IsProtected() bool {
	return NormalizeRoleName(r.Name) == AdminRoleName
}

// NormalizeRoleName trims and lowercases a role name. Role names are compared case-insensitively
// by storing them normalized.
func NormalizeRoleName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
