// Package service provides CRUD operations for the service registry.
package service

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/nita-portal/nita/internal/db/controller"
	"github.com/nita-portal/nita/internal/db/controller/link"
	"github.com/nita-portal/nita/internal/db/models"
)

// ErrServiceNotFound is returned when a service is not found.
var ErrServiceNotFound = errors.New("service not found")

// Input carries the editable fields of a service.
type Input struct {
	Name               string
	Slug               string
	URL                string
	Category           string
	Icon               string
	IsMaintenance      bool
	MaintenanceMessage string
}

func (in Input) apply(s *models.Service) {
	s.Name = strings.TrimSpace(in.Name)
	s.Slug = strings.TrimSpace(in.Slug)
	s.URL = strings.TrimSpace(in.URL)
	s.Category = strings.TrimSpace(in.Category)
	s.Icon = in.Icon
	s.IsMaintenance = in.IsMaintenance
	s.MaintenanceMessage = in.MaintenanceMessage
}

func withRoles(db *gorm.DB) *gorm.DB {
	return db.Preload("Roles", func(db *gorm.DB) *gorm.DB { return db.Order("roles.name") })
}

func normalize(services []models.Service) []models.Service {
	if services == nil {
		return []models.Service{}
	}

	for i := range services {
		if services[i].Roles == nil {
			services[i].Roles = []models.Role{}
		}
	}

	return services
}

// List returns every service with its roles, ordered by category and name.
func List(db *gorm.DB) ([]models.Service, error) {
	if db == nil {
		return nil, controller.ErrDBNil
	}

	var services []models.Service
	if err := withRoles(db).Order("category").Order("name").Find(&services).Error; err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}

	return normalize(services), nil
}

// ListForUser returns the services linked to at least one role of the user.
// It applies no admin bypass; that decision belongs to the caller.
func ListForUser(db *gorm.DB, userID uint64) ([]models.Service, error) {
	if db == nil {
		return nil, controller.ErrDBNil
	}

	linked := db.Table("role_service").
		Select("role_service.service_id").
		Joins("JOIN role_user ON role_user.role_id = role_service.role_id").
		Where("role_user.user_id = ?", userID)

	var services []models.Service
	if err := db.Where("id IN (?)", linked).Order("category").Order("name").Find(&services).Error; err != nil {
		return nil, fmt.Errorf("failed to list services for user: %w", err)
	}

	if services == nil {
		services = []models.Service{}
	}

	return services, nil
}

// Get retrieves a service by its ID with its roles.
func Get(db *gorm.DB, id uint) (*models.Service, error) {
	if db == nil {
		return nil, controller.ErrDBNil
	}

	var s models.Service
	if err := withRoles(db).First(&s, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrServiceNotFound
		}

		return nil, fmt.Errorf("failed to get service: %w", err)
	}

	if s.Roles == nil {
		s.Roles = []models.Role{}
	}

	return &s, nil
}

// GetBySlugOrName retrieves a service by slug, falling back to its name.
func GetBySlugOrName(db *gorm.DB, key string) (*models.Service, error) {
	if db == nil {
		return nil, controller.ErrDBNil
	}

	var s models.Service

	err := db.Where("slug = ?", key).Or("name = ?", key).Order("id").First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrServiceNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}

	return &s, nil
}

// Create stores a new service. Name and slug must be unique.
func Create(db *gorm.DB, in Input) (*models.Service, error) {
	if db == nil {
		return nil, controller.ErrDBNil
	}

	var s models.Service
	in.apply(&s)

	if err := checkUnique(db, &s); err != nil {
		return nil, err
	}

	if err := db.Create(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, controller.NewConflict("slug", s.Slug)
		}

		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	s.Roles = []models.Role{}

	return &s, nil
}

// Update replaces the editable fields of a service.
func Update(db *gorm.DB, id uint, in Input) (*models.Service, error) {
	s, err := Get(db, id)
	if err != nil {
		return nil, err
	}

	in.apply(s)

	if err = checkUnique(db, s); err != nil {
		return nil, err
	}

	err = db.Model(&models.Service{ID: id}).Select(
		"name", "slug", "url", "category", "icon", "is_maintenance", "maintenance_message",
	).Updates(s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, controller.NewConflict("slug", s.Slug)
		}

		return nil, fmt.Errorf("failed to update service: %w", err)
	}

	return Get(db, id)
}

// SetMaintenance sets the maintenance flag. A nil flag toggles the current state.
// Leaving maintenance clears the message.
func SetMaintenance(db *gorm.DB, id uint, on *bool, message *string) (*models.Service, error) {
	s, err := Get(db, id)
	if err != nil {
		return nil, err
	}

	state := !s.IsMaintenance
	if on != nil {
		state = *on
	}

	msg := s.MaintenanceMessage
	if message != nil {
		msg = *message
	}

	if !state {
		msg = ""
	}

	err = db.Model(&models.Service{ID: id}).Updates(map[string]any{
		"is_maintenance":      state,
		"maintenance_message": msg,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update maintenance: %w", err)
	}

	return Get(db, id)
}

// Delete removes a service and its role links.
func Delete(db *gorm.DB, id uint) (*models.Service, error) {
	s, err := Get(db, id)
	if err != nil {
		return nil, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if errTx := tx.Where("service_id = ?", id).Delete(&models.RoleService{}).Error; errTx != nil {
			return fmt.Errorf("failed to unlink roles: %w", errTx)
		}

		if errTx := tx.Delete(&models.Service{}, id).Error; errTx != nil {
			return fmt.Errorf("failed to delete service: %w", errTx)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

// SyncRoles replaces the roles linked to the service.
func SyncRoles(db *gorm.DB, id uint, roleIDs []uint64) (*models.Service, link.Result, error) {
	if _, err := Get(db, id); err != nil {
		return nil, link.Result{}, err
	}

	res, err := link.Replace(db, link.ServiceRoles, uint64(id), roleIDs)
	if err != nil {
		return nil, link.Result{}, err
	}

	s, err := Get(db, id)

	return s, res, err
}

// IconInUse reports whether any service references the icon file.
func IconInUse(db *gorm.DB, icon string) (bool, error) {
	var n int64
	if err := db.Model(&models.Service{}).Where("icon = ?", icon).Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to check icon usage: %w", err)
	}

	return n > 0, nil
}

// checkUnique rejects a slug or name already used by another service.
func checkUnique(db *gorm.DB, s *models.Service) error {
	for _, f := range []struct{ column, value string }{
		{"slug", s.Slug},
		{"name", s.Name},
	} {
		var n int64

		q := db.Model(&models.Service{}).Where(f.column+" = ?", f.value)
		if s.ID != 0 {
			q = q.Where("id <> ?", s.ID)
		}

		if err := q.Count(&n).Error; err != nil {
			return fmt.Errorf("failed to check service %s: %w", f.column, err)
		}

		if n > 0 {
			return controller.NewConflict(f.column, f.value)
		}
	}

	return nil
}
