// Package testutil holds database fixtures shared by package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nita-portal/nita/internal/db/models"
)

// DB opens a migrated sqlite database in a per-test temp directory.
// Foreign keys are enabled so join rows behave like on mysql and postgres.
func DB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "nita.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "failed to open test database")

	require.NoError(t, models.Migrate(db), "failed to migrate test database")

	t.Cleanup(func() {
		if sqlDB, errDB := db.DB(); errDB == nil {
			_ = sqlDB.Close()
		}
	})

	FastPasswords(t)

	return db
}

// FastPasswords lowers the argon2id cost for the duration of the test.
func FastPasswords(t *testing.T) {
	t.Helper()

	previous := models.PasswordParams
	models.PasswordParams = &argon2id.Params{
		Memory:      1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}

	t.Cleanup(func() { models.PasswordParams = previous })
}

// Role creates a role with the given name.
func Role(t *testing.T, db *gorm.DB, name string) models.Role {
	t.Helper()

	role := models.Role{Name: models.NormalizeRoleName(name)}
	require.NoError(t, db.Create(&role).Error)

	return role
}

// Service creates a service with the given name and slug.
func Service(t *testing.T, db *gorm.DB, name, slug string) models.Service {
	t.Helper()

	svc := models.Service{
		Name:     name,
		Slug:     slug,
		URL:      "https://" + slug + ".example.org",
		Category: "Tools",
		Icon:     slug,
	}
	require.NoError(t, db.Create(&svc).Error)

	return svc
}

// User creates a user with the given password and source holding the given roles.
func User(t *testing.T, db *gorm.DB, username, password string, source models.UserSource,
	roles ...models.Role,
) models.User {
	t.Helper()

	hash, err := models.HashPassword(password)
	require.NoError(t, err)

	u := models.User{
		Username: username,
		Name:     username,
		Email:    username + "@example.org",
		Password: hash,
		Source:   source,
	}
	require.NoError(t, db.Create(&u).Error)

	for _, r := range roles {
		require.NoError(t, db.Create(&models.RoleUser{RoleID: r.ID, UserID: u.ID}).Error)
	}

	return u
}

// Link attaches services to a role.
func Link(t *testing.T, db *gorm.DB, role models.Role, services ...models.Service) {
	t.Helper()

	for _, s := range services {
		require.NoError(t, db.Create(&models.RoleService{RoleID: role.ID, ServiceID: s.ID}).Error)
	}
}

// LinkedServiceIDs returns the service ids linked to the role, ascending.
func LinkedServiceIDs(t *testing.T, db *gorm.DB, roleID uint) []uint {
	t.Helper()

	var ids []uint
	require.NoError(t, db.Model(&models.RoleService{}).
		Where("role_id = ?", roleID).
		Order("service_id").
		Pluck("service_id", &ids).Error)

	return ids
}
