package models

import "time"

// Service represents a registered internal tool (wiki, GitLab, VPN, ...) that the portal links to.
// A service is visible to a user if one of the user's roles is linked to it, or if the user is an admin.
type Service struct {
	// ID is the unique identifier for the service.
	ID uint `gorm:"primaryKey" json:"id"`
	// Name is the display name. It is unique.
	Name string `gorm:"unique;size:150;not null" json:"name"`
	// Slug is the unique URL-safe identifier (e.g. "gitlab").
	Slug string `gorm:"unique;size:100;not null" json:"slug"`
	// URL is the target URL of the tool.
	URL string `gorm:"size:2048;not null" json:"url"`
	// Category is a free-text grouping used by the dashboard.
	Category string `gorm:"size:100" json:"category"`
	// Icon is either a symbolic icon name or the file name of an uploaded icon.
	Icon string `gorm:"size:255" json:"icon"`
	// IsMaintenance marks the service as temporarily unavailable.
	IsMaintenance bool `gorm:"not null;default:false" json:"is_maintenance"`
	// MaintenanceMessage is shown to users while the service is in maintenance.
	MaintenanceMessage string `gorm:"type:text" json:"maintenance_message"`
	// Roles are the roles linked to this service (join table role_service).
	Roles []Role `gorm:"many2many:role_service;" json:"roles,omitempty"`
	// CreatedAt is the timestamp when the service was created (managed by GORM).
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is the timestamp when the service was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the database table name for the Service model.
func (Service) TableName() string {
	return "services"
}
