// Package logout revokes the caller's bearer tokens.
package logout

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/nita-portal/nita/internal/auth"
	"github.com/nita-portal/nita/internal/config"
	"github.com/nita-portal/nita/internal/web/handler"
)

// Path is the logout endpoint.
const Path = handler.RootPath + "logout"

// Service is the logout handler service.
type Service struct {
	authService *auth.Service
}

// Handler is the logout handler.
var Handler = Service{}

// Init initializes the logout handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) error {
	if app == nil || cfg == nil || db == nil || authService == nil {
		return handler.ErrNilDependency
	}

	s.authService = authService

	app.Post(Path, auth.RequireUser(authService), s.Logout)

	return nil
}

// Logout deletes every token of the user, on every device.
func (s *Service) Logout(c *fiber.Ctx) error {
	if err := s.authService.Logout(c.UserContext(), auth.CurrentUserID(c)); err != nil {
		return err
	}

	return handler.Success(c, fiber.Map{"message": "Logged out"})
}
