// Package user provides handlers for managing users in the admin area.
package user

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/nita-portal/nita/internal/auth"
	"github.com/nita-portal/nita/internal/config"
	"github.com/nita-portal/nita/internal/db/controller/user"
	"github.com/nita-portal/nita/internal/db/models"
	"github.com/nita-portal/nita/internal/web/handler"
)

const (
	// Path is the base path for user management.
	Path = handler.AdminPath + "/users"
)

// Service serves the user list, the legacy directory import and role assignment.
type Service struct {
	db          *gorm.DB
	authService *auth.Service
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) error {
	if app == nil || cfg == nil || db == nil || authService == nil {
		return handler.ErrNilDependency
	}

	s.db = db
	s.authService = authService

	admin := auth.RequireAdmin(authService)

	app.Get(Path, admin, s.List)
	app.Post(Path+"/sync", admin, s.Sync)
	app.Put(Path+"/:id/roles", admin, s.SyncRoles)

	return nil
}

// List returns every user with roles.
func (s *Service) List(c *fiber.Ctx) error {
	users, err := user.List(s.db.WithContext(c.UserContext()))
	if err != nil {
		return err
	}

	return c.JSON(users)
}

// SyncRequest is the body of the one-shot import.
type SyncRequest struct {
	Username string `json:"username" validate:"required,min=2,max=100,username"`
}

// Sync imports a username as an OpenLDAP shadow user without asking the directory.
// An existing user is returned unchanged.
func (s *Service) Sync(c *fiber.Ctx) error {
	var req SyncRequest
	if err := handler.Bind(c, &req); err != nil {
		return err
	}

	db := s.db.WithContext(c.UserContext())

	existing, err := user.FindByUsername(db, req.Username)
	if err == nil {
		return c.JSON(existing)
	}

	if !errors.Is(err, user.ErrUserNotFound) {
		return err
	}

	u, _, err := s.authService.ImportDirectoryUser(c.UserContext(), auth.Entry{
		Username: req.Username,
		Source:   models.SourceOpenLDAP,
	})
	if err != nil {
		return err
	}

	handler.Audit(c, s.db, "sync_user", u.Username, fiber.Map{"source": u.Source.String()})
	log.Info().Str("username", u.Username).Msg("user imported without directory lookup")

	return c.JSON(u)
}

// RolesRequest is a bulk-replace body.
type RolesRequest struct {
	RoleIDs []uint64 `json:"role_ids" validate:"required"`
}

// SyncRoles replaces the user's role set.
func (s *Service) SyncRoles(c *fiber.Ctx) error {
	id, err := handler.ID(c, "id", user.ErrUserNotFound)
	if err != nil {
		return err
	}

	var req RolesRequest
	if err = handler.Bind(c, &req); err != nil {
		return err
	}

	u, res, err := user.SyncRoles(s.db.WithContext(c.UserContext()), id, req.RoleIDs)
	if err != nil {
		return err
	}

	if res.Changed() {
		handler.Audit(c, s.db, "sync_user_roles", u.Username, res)
	}

	return handler.Success(c, fiber.Map{
		"message": "Roles updated",
		"user":    u,
		"changes": res,
	})
}
