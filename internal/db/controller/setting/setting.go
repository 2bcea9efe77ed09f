// Package setting stores application owned values as JSON documents.
package setting

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"gorm.io/gorm"

	"github.com/nita-portal/nita/internal/db/controller"
	"github.com/nita-portal/nita/internal/db/models"
)

const nameQueryPattern = "name = ?"

var (
	// ErrSettingNotFound is returned when a setting is not found.
	ErrSettingNotFound = errors.New("setting not found")
	// ErrSettingNameEmpty is returned when a setting name is empty.
	ErrSettingNameEmpty = errors.New("setting name cannot be empty")
)

// Get retrieves a setting by its name.
func Get(db *gorm.DB, name string) (*models.Setting, error) {
	if db == nil {
		return nil, controller.ErrDBNil
	}

	if name == "" {
		return nil, ErrSettingNameEmpty
	}

	var s models.Setting
	if err := db.Where(nameQueryPattern, name).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettingNotFound
		}

		return nil, err
	}

	return &s, nil
}

// Set creates or updates a setting by name.
func Set(db *gorm.DB, name string, value []byte) error {
	if db == nil {
		return controller.ErrDBNil
	}

	if name == "" {
		return ErrSettingNameEmpty
	}

	var s models.Setting

	res := db.Where(nameQueryPattern, name).Limit(1).Find(&s)
	if res.Error != nil {
		return res.Error
	}

	s.Name = name
	s.Value = value

	return db.Save(&s).Error
}

// Delete removes a setting by name. Deleting a missing setting is not an error.
func Delete(db *gorm.DB, name string) error {
	if db == nil {
		return controller.ErrDBNil
	}

	return db.Where(nameQueryPattern, name).Delete(&models.Setting{}).Error
}

// Load decodes the JSON value of a setting into out.
func Load(db *gorm.DB, name string, out any) error {
	s, err := Get(db, name)
	if err != nil {
		return err
	}

	if err = json.Unmarshal(s.Value, out); err != nil {
		return fmt.Errorf("failed to decode setting %s: %w", name, err)
	}

	return nil
}

// Store encodes in as JSON and saves it under name.
func Store(db *gorm.DB, name string, in any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode setting %s: %w", name, err)
	}

	return Set(db, name, b)
}
