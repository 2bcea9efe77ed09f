// Package role provides CRUD operations for roles and their service links.
package role

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/nita-portal/nita/internal/db/controller"
	"github.com/nita-portal/nita/internal/db/controller/link"
	"github.com/nita-portal/nita/internal/db/models"
)

var (
	// ErrRoleNotFound is returned when a role is not found.
	ErrRoleNotFound = errors.New("role not found")
	// ErrRoleNameEmpty is returned when a role name is empty after normalization.
	ErrRoleNameEmpty = errors.New("role name cannot be empty")
	// ErrRoleProtected is returned on any attempt to rename or delete the admin role.
	ErrRoleProtected = errors.New("the admin role is a protected system role and cannot be renamed or deleted")
)

const whereName = "name = ?"

// List returns all roles with their linked services, ordered by name.
func List(db *gorm.DB) ([]models.Role, error) {
	if db == nil {
		return nil, controller.ErrDBNil
	}

	var roles []models.Role
	if err := db.Preload("Services", orderServices).Order("name").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	for i := range roles {
		if roles[i].Services == nil {
			roles[i].Services = []models.Service{}
		}
	}

	return roles, nil
}

func orderServices(db *gorm.DB) *gorm.DB {
	return db.Order("services.name")
}

// Get retrieves a role by its ID with its linked services.
func Get(db *gorm.DB, id uint) (*models.Role, error) {
	if db == nil {
		return nil, controller.ErrDBNil
	}

	var r models.Role
	if err := db.Preload("Services", orderServices).First(&r, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}

		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	return &r, nil
}

// GetByName retrieves a role by its name (case-insensitive).
func GetByName(db *gorm.DB, name string) (*models.Role, error) {
	if db == nil {
		return nil, controller.ErrDBNil
	}

	var r models.Role
	if err := db.Where(whereName, models.NormalizeRoleName(name)).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}

		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	return &r, nil
}

// Create stores a new role. The name is normalized to lowercase.
func Create(db *gorm.DB, name string) (*models.Role, error) {
	if db == nil {
		return nil, controller.ErrDBNil
	}

	name = models.NormalizeRoleName(name)
	if name == "" {
		return nil, ErrRoleNameEmpty
	}

	if err := checkNameFree(db, name, 0); err != nil {
		return nil, err
	}

	r := models.Role{Name: name}
	if err := db.Create(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, controller.NewConflict("name", name)
		}

		return nil, fmt.Errorf("failed to create role: %w", err)
	}

	r.Services = []models.Service{}

	return &r, nil
}

// Rename changes the name of a role. The admin role can not be renamed.
func Rename(db *gorm.DB, id uint, name string) (*models.Role, error) {
	r, err := Get(db, id)
	if err != nil {
		return nil, err
	}

	if r.IsProtected() {
		return nil, ErrRoleProtected
	}

	name = models.NormalizeRoleName(name)
	if name == "" {
		return nil, ErrRoleNameEmpty
	}

	if name == r.Name {
		return r, nil
	}

	if err = checkNameFree(db, name, id); err != nil {
		return nil, err
	}

	if err = db.Model(r).Update("name", name).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, controller.NewConflict("name", name)
		}

		return nil, fmt.Errorf("failed to rename role: %w", err)
	}

	r.Name = name

	return r, nil
}

// Delete removes a role and all of its user and service links.
// The admin role can not be deleted.
func Delete(db *gorm.DB, id uint) (*models.Role, error) {
	r, err := Get(db, id)
	if err != nil {
		return nil, err
	}

	if r.IsProtected() {
		return nil, ErrRoleProtected
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if errTx := tx.Where("role_id = ?", id).Delete(&models.RoleUser{}).Error; errTx != nil {
			return fmt.Errorf("failed to unlink users: %w", errTx)
		}

		if errTx := tx.Where("role_id = ?", id).Delete(&models.RoleService{}).Error; errTx != nil {
			return fmt.Errorf("failed to unlink services: %w", errTx)
		}

		if errTx := tx.Delete(&models.Role{}, id).Error; errTx != nil {
			return fmt.Errorf("failed to delete role: %w", errTx)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return r, nil
}

// SyncServices replaces the services linked to the role.
// The admin role is not special-cased here; its links are irrelevant for authorization.
func SyncServices(db *gorm.DB, id uint, serviceIDs []uint64) (*models.Role, link.Result, error) {
	if _, err := Get(db, id); err != nil {
		return nil, link.Result{}, err
	}

	res, err := link.Replace(db, link.RoleServices, uint64(id), serviceIDs)
	if err != nil {
		return nil, link.Result{}, err
	}

	r, err := Get(db, id)

	return r, res, err
}

// Ensure returns the role with the given name, creating it if needed.
func Ensure(db *gorm.DB, name string) (*models.Role, error) {
	if db == nil {
		return nil, controller.ErrDBNil
	}

	name = models.NormalizeRoleName(name)
	if name == "" {
		return nil, ErrRoleNameEmpty
	}

	var r models.Role
	if err := db.Where(whereName, name).FirstOrCreate(&r, models.Role{Name: name}).Error; err != nil {
		return nil, fmt.Errorf("failed to ensure role %s: %w", name, err)
	}

	return &r, nil
}

func checkNameFree(db *gorm.DB, name string, exceptID uint) error {
	var count int64

	q := db.Model(&models.Role{}).Where(whereName, name)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}

	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check role name: %w", err)
	}

	if count > 0 {
		return controller.NewConflict("name", name)
	}

	return nil
}
