// Package account serves the caller's own profile and password.
package account

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/nita-portal/nita/internal/auth"
	"github.com/nita-portal/nita/internal/config"
	"github.com/nita-portal/nita/internal/web/handler"
)

const (
	// MePath returns the authenticated user.
	MePath = handler.RootPath + "me"
	// PasswordPath changes the password of a local user.
	PasswordPath = handler.RootPath + "change-password"
)

// Service is the account handler service.
type Service struct {
	db          *gorm.DB
	authService *auth.Service
}

// Handler is the account handler.
var Handler = Service{}

// Init registers routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) error {
	if app == nil || cfg == nil || db == nil || authService == nil {
		return handler.ErrNilDependency
	}

	s.db = db
	s.authService = authService

	app.Get(MePath, auth.RequireUser(authService), s.Me)
	app.Post(PasswordPath, auth.RequireUser(authService), s.ChangePassword)

	return nil
}

// Me returns the user with roles and its capabilities.
func (s *Service) Me(c *fiber.Ctx) error {
	u := auth.CurrentUser(c)

	admin, err := s.authService.Gate().IsAdmin(c.UserContext(), u.ID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"user":         u,
		"capabilities": fiber.Map{"admin": admin},
	})
}

// PasswordRequest is the change-password body.
type PasswordRequest struct {
	CurrentPassword         string `json:"current_password" validate:"required"`
	NewPassword             string `json:"new_password" validate:"required,min=8,max=255"`
	NewPasswordConfirmation string `json:"new_password_confirmation" validate:"eqfield=NewPassword"`
}

// ChangePassword replaces the password of a local user after checking the current one.
func (s *Service) ChangePassword(c *fiber.Ctx) error {
	var req PasswordRequest
	if err := handler.Bind(c, &req); err != nil {
		return err
	}

	u := auth.CurrentUser(c)

	err := s.authService.ChangePassword(c.UserContext(), u.ID, req.CurrentPassword, req.NewPassword)
	if errors.Is(err, auth.ErrPasswordManagedByDirectory) {
		return handler.NewValidationError("current_password",
			"Your password is managed by "+u.Source.String()+" and cannot be changed here.")
	}

	if err != nil {
		return err
	}

	handler.Audit(c, s.db, "change_password", u.Username, nil)

	return handler.Success(c, fiber.Map{"message": "Password changed successfully"})
}
