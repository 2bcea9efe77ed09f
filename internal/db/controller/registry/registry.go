// Package registry exports and imports the role/service registry as one document.
package registry

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/nita-portal/nita/internal/db/controller"
	"github.com/nita-portal/nita/internal/db/controller/link"
	"github.com/nita-portal/nita/internal/db/models"
)

// Document is the portable form of the registry.
type Document struct {
	Roles    []Role    `json:"roles"`
	Services []Service `json:"services"`
}

// Role is an exported role.
type Role struct {
	Name string `json:"name" validate:"required,max=100"`
}

// Service is an exported service with the names of its roles.
type Service struct {
	Name               string   `json:"name" validate:"required,max=150"`
	Slug               string   `json:"slug" validate:"required,max=100,slug"`
	URL                string   `json:"url" validate:"required,max=2048,http_url"`
	Category           string   `json:"category" validate:"max=100"`
	Icon               string   `json:"icon" validate:"max=255"`
	IsMaintenance      bool     `json:"is_maintenance"`
	MaintenanceMessage string   `json:"maintenance_message" validate:"max=1000"`
	Roles              []string `json:"roles" validate:"dive,required,max=100"`
}

// Summary counts what an import touched.
type Summary struct {
	RolesCreated    int `json:"roles_created"`
	ServicesCreated int `json:"services_created"`
	ServicesUpdated int `json:"services_updated"`
}

// ErrInvalidDocument is returned for services without slug or name.
var ErrInvalidDocument = errors.New("every service needs a name and a slug")

// Export dumps all roles and services.
func Export(db *gorm.DB) (*Document, error) {
	if db == nil {
		return nil, controller.ErrDBNil
	}

	var roles []models.Role
	if err := db.Order("name").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("failed to export roles: %w", err)
	}

	var services []models.Service

	err := db.Preload("Roles", func(db *gorm.DB) *gorm.DB { return db.Order("roles.name") }).
		Order("slug").Find(&services).Error
	if err != nil {
		return nil, fmt.Errorf("failed to export services: %w", err)
	}

	doc := &Document{Roles: make([]Role, 0, len(roles)), Services: make([]Service, 0, len(services))}

	for _, r := range roles {
		doc.Roles = append(doc.Roles, Role{Name: r.Name})
	}

	for _, s := range services {
		names := make([]string, 0, len(s.Roles))
		for _, r := range s.Roles {
			names = append(names, r.Name)
		}

		doc.Services = append(doc.Services, Service{
			Name:               s.Name,
			Slug:               s.Slug,
			URL:                s.URL,
			Category:           s.Category,
			Icon:               s.Icon,
			IsMaintenance:      s.IsMaintenance,
			MaintenanceMessage: s.MaintenanceMessage,
			Roles:              names,
		})
	}

	return doc, nil
}

// Import upserts roles by name and services by slug, and replaces the role set of every
// imported service. Roles named by a service are created when missing.
// Nothing is deleted and the admin role is never renamed. The import is all or nothing.
func Import(db *gorm.DB, doc *Document) (Summary, error) {
	if db == nil {
		return Summary{}, controller.ErrDBNil
	}

	for _, s := range doc.Services {
		if strings.TrimSpace(s.Slug) == "" || strings.TrimSpace(s.Name) == "" {
			return Summary{}, ErrInvalidDocument
		}
	}

	var sum Summary

	err := db.Transaction(func(tx *gorm.DB) error {
		roleIDs := map[string]uint{}

		ensure := func(name string) (uint, error) {
			name = models.NormalizeRoleName(name)
			if id, ok := roleIDs[name]; ok {
				return id, nil
			}

			r := models.Role{}

			res := tx.Where("name = ?", name).Limit(1).Find(&r)
			if res.Error != nil {
				return 0, fmt.Errorf("failed to read role %s: %w", name, res.Error)
			}

			if res.RowsAffected == 0 {
				r = models.Role{Name: name}
				if err := tx.Create(&r).Error; err != nil {
					return 0, fmt.Errorf("failed to create role %s: %w", name, err)
				}

				sum.RolesCreated++
			}

			roleIDs[name] = r.ID

			return r.ID, nil
		}

		for _, r := range doc.Roles {
			if models.NormalizeRoleName(r.Name) == "" {
				continue
			}

			if _, err := ensure(r.Name); err != nil {
				return err
			}
		}

		for _, in := range doc.Services {
			if err := importService(tx, in, ensure, &sum); err != nil {
				return err
			}
		}

		return nil
	})

	return sum, err
}

func importService(tx *gorm.DB, in Service, ensure func(string) (uint, error), sum *Summary) error {
	var s models.Service

	res := tx.Where("slug = ?", in.Slug).Limit(1).Find(&s)
	if res.Error != nil {
		return fmt.Errorf("failed to read service %s: %w", in.Slug, res.Error)
	}

	s.Name = in.Name
	s.Slug = in.Slug
	s.URL = in.URL
	s.Category = in.Category
	s.Icon = in.Icon
	s.IsMaintenance = in.IsMaintenance
	s.MaintenanceMessage = in.MaintenanceMessage

	var n int64
	if err := tx.Model(&models.Service{}).Where("name = ? AND slug <> ?", s.Name, s.Slug).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to check service name: %w", err)
	}

	if n > 0 {
		return controller.NewConflict("name", s.Name)
	}

	if res.RowsAffected == 0 {
		if err := tx.Omit("Roles").Create(&s).Error; err != nil {
			return fmt.Errorf("failed to create service %s: %w", s.Slug, err)
		}

		sum.ServicesCreated++
	} else {
		if err := tx.Omit("Roles").Save(&s).Error; err != nil {
			return fmt.Errorf("failed to update service %s: %w", s.Slug, err)
		}

		sum.ServicesUpdated++
	}

	ids := make([]uint64, 0, len(in.Roles))

	for _, name := range in.Roles {
		id, err := ensure(name)
		if err != nil {
			return err
		}

		ids = append(ids, uint64(id))
	}

	_, err := link.Replace(tx, link.ServiceRoles, uint64(s.ID), ids)

	return err
}
