package models

import "time"

// AuditLog records one administrative action.
type AuditLog struct {
	// ID is the unique identifier for the entry.
	ID uint64 `gorm:"primaryKey" json:"id"`
	// UserID is the administrator who performed the action.
	UserID uint64 `gorm:"not null;index" json:"user_id"`
	// User is the acting administrator, attached by the audit log controller for display.
	User *AuditActor `gorm:"-" json:"user,omitempty"`
	// Action is a short verb such as "create_role" or "sync_user".
	Action string `gorm:"size:100;not null" json:"action"`
	// Target describes the object of the action (e.g. "Role: staff").
	Target string `gorm:"size:255;not null" json:"target"`
	// Details is a JSON document with action specific values.
	Details string `gorm:"type:text" json:"details"`
	// IPAddress is the client address of the request.
	IPAddress string `gorm:"size:45" json:"ip_address"`
	// CreatedAt is the timestamp of the action (managed by GORM).
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is managed by GORM.
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the database table name for the AuditLog model.
func (AuditLog) TableName() string {
	return "audit_logs"
}

// AuditActor is the reduced user view attached to audit entries.
type AuditActor struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// TableName maps AuditActor onto the users table.
func (AuditActor) TableName() string {
	return "users"
}
