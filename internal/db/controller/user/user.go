// Package user provides persistence operations for local and shadow user accounts.
package user

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/nita-portal/nita/internal/db/controller"
	"github.com/nita-portal/nita/internal/db/controller/link"
	"github.com/nita-portal/nita/internal/db/models"
	"github.com/nita-portal/nita/internal/uniuri"
)

var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrLocalAccount is returned when a directory import targets a username owned by a local account.
	ErrLocalAccount = errors.New("username belongs to a local account")
	// ErrNotDirectorySource is returned when a shadow upsert names a non directory source.
	ErrNotDirectorySource = errors.New("shadow users need a directory source")
)

func withRoles(db *gorm.DB) *gorm.DB {
	return db.Preload("Roles", func(db *gorm.DB) *gorm.DB { return db.Order("roles.name") })
}

// List returns all users with their roles, ordered by username.
func List(db *gorm.DB) ([]models.User, error) {
	if db == nil {
		return nil, controller.ErrDBNil
	}

	var users []models.User
	if err := withRoles(db).Order("username").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	if users == nil {
		users = []models.User{}
	}

	for i := range users {
		users[i].EnsureRoles()
	}

	return users, nil
}

// Get retrieves a user by ID with roles.
func Get(db *gorm.DB, id uint64) (*models.User, error) {
	if db == nil {
		return nil, controller.ErrDBNil
	}

	var u models.User
	if err := withRoles(db).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u.EnsureRoles()

	return &u, nil
}

// FindByUsername retrieves a user of any source by username with roles.
func FindByUsername(db *gorm.DB, username string) (*models.User, error) {
	return findBy(db, "username = ?", username)
}

// FindLocal retrieves a local (source 0) user by username with roles.
// Directory shadow users are never returned.
func FindLocal(db *gorm.DB, username string) (*models.User, error) {
	return findBy(db, "username = ? AND source = ?", username, models.SourceLocal)
}

func findBy(db *gorm.DB, query string, args ...any) (*models.User, error) {
	if db == nil {
		return nil, controller.ErrDBNil
	}

	var u models.User
	if err := withRoles(db).Where(query, args...).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	u.EnsureRoles()

	return &u, nil
}

// CreateLocal creates a local account holding the given roles.
func CreateLocal(db *gorm.DB, username, name, email, password string, roleIDs ...uint64) (*models.User, error) {
	if db == nil {
		return nil, controller.ErrDBNil
	}

	username = strings.TrimSpace(username)

	hash, err := models.HashPassword(password)
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = username
	}

	u := models.User{
		Username: username,
		Name:     name,
		Email:    email,
		Password: hash,
		Source:   models.SourceLocal,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if errTx := tx.Model(&models.User{}).Where("username = ?", username).Count(&n).Error; errTx != nil {
			return fmt.Errorf("failed to check username: %w", errTx)
		}

		if n > 0 {
			return controller.NewConflict("username", username)
		}

		if errTx := tx.Omit("Roles").Create(&u).Error; errTx != nil {
			if errors.Is(errTx, gorm.ErrDuplicatedKey) {
				return controller.NewConflict("username", username)
			}

			return fmt.Errorf("failed to create user: %w", errTx)
		}

		if len(roleIDs) == 0 {
			return nil
		}

		_, errTx := link.Replace(tx, link.UserRoles, u.ID, roleIDs)

		return errTx
	})
	if err != nil {
		return nil, err
	}

	return Get(db, u.ID)
}

// Shadow describes a directory identity to anchor locally.
type Shadow struct {
	Username string
	Name     string
	Email    string
	Source   models.UserSource
}

// UpsertShadow creates or updates the local row of a directory user.
// Name and email are refreshed, the password hash is replaced by the hash of a fresh random secret.
// An existing local account with the same username is never converted.
// Concurrent upserts of one username all succeed; the last write wins.
func UpsertShadow(db *gorm.DB, in Shadow) (*models.User, bool, error) {
	if db == nil {
		return nil, false, controller.ErrDBNil
	}

	if !in.Source.IsDirectory() {
		return nil, false, ErrNotDirectorySource
	}

	hash, err := models.HashPassword(uniuri.NewLen(uniuri.SecretLen))
	if err != nil {
		return nil, false, err
	}

	if in.Name == "" {
		in.Name = in.Username
	}

	// Every step is a single write statement. A read-then-write transaction would make
	// sqlite fail with SQLITE_BUSY under contention instead of waiting for the lock.
	for range 2 {
		res := db.Model(&models.User{}).
			Where("username = ? AND source <> ?", in.Username, models.SourceLocal).
			Updates(map[string]any{
				"name":     in.Name,
				"email":    in.Email,
				"password": hash,
				"source":   in.Source,
			})
		if res.Error != nil {
			return nil, false, fmt.Errorf("failed to update shadow user: %w", res.Error)
		}

		if res.RowsAffected > 0 {
			u, errGet := FindByUsername(db, in.Username)

			return u, false, errGet
		}

		u := models.User{
			Username: in.Username,
			Name:     in.Name,
			Email:    in.Email,
			Password: hash,
			Source:   in.Source,
		}

		err = db.Omit("Roles").Create(&u).Error
		if err == nil {
			out, errGet := Get(db, u.ID)

			return out, true, errGet
		}

		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, false, fmt.Errorf("failed to create shadow user: %w", err)
		}

		// the username exists: either a local account or a concurrent upsert won the insert
		if _, errLocal := FindLocal(db, in.Username); errLocal == nil {
			return nil, false, ErrLocalAccount
		}
	}

	return nil, false, fmt.Errorf("failed to upsert shadow user %s: %w", in.Username, err)
}

// SetPassword replaces the password hash of a local account.
func SetPassword(db *gorm.DB, id uint64, password string) error {
	if db == nil {
		return controller.ErrDBNil
	}

	hash, err := models.HashPassword(password)
	if err != nil {
		return err
	}

	res := db.Model(&models.User{}).
		Where("id = ? AND source = ?", id, models.SourceLocal).
		Update("password", hash)
	if res.Error != nil {
		return fmt.Errorf("failed to update password: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// SyncRoles replaces the roles held by the user.
func SyncRoles(db *gorm.DB, id uint64, roleIDs []uint64) (*models.User, link.Result, error) {
	if _, err := Get(db, id); err != nil {
		return nil, link.Result{}, err
	}

	res, err := link.Replace(db, link.UserRoles, id, roleIDs)
	if err != nil {
		return nil, link.Result{}, err
	}

	u, err := Get(db, id)

	return u, res, err
}

// RoleNames returns the normalized names of the roles held by the user.
func RoleNames(db *gorm.DB, id uint64) ([]string, error) {
	if db == nil {
		return nil, controller.ErrDBNil
	}

	var names []string

	err := db.Table("roles").
		Joins("JOIN role_user ON role_user.role_id = roles.id").
		Where("role_user.user_id = ?", id).
		Order("roles.name").
		Pluck("roles.name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}

	return names, nil
}
