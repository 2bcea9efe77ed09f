package models

import (
	"fmt"

	"gorm.io/gorm"
)

// All returns every model of the schema in migration order.
func All() []any {
	return []any{
		&User{},
		&Role{},
		&Service{},
		&RoleUser{},
		&RoleService{},
		&AccessToken{},
		&AuditLog{},
		&Setting{},
	}
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}
