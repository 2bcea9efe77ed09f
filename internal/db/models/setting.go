// Package models contains database model definitions.
package models

import "time"

// Setting is a named value owned by the application itself (e.g. the seed state).
// Values are JSON documents.
type Setting struct {
	ID        uint64 `gorm:"primaryKey"`
	Name      string `gorm:"unique;size:100;not null"`
	Value     []byte
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Setting model.
func (Setting) TableName() string {
	return "settings"
}
