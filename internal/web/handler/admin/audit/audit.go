// Package audit serves the administrative audit trail.
package audit

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/nita-portal/nita/internal/auth"
	"github.com/nita-portal/nita/internal/config"
	"github.com/nita-portal/nita/internal/db/controller/auditlog"
	"github.com/nita-portal/nita/internal/web/handler"
)

// Path is the audit log listing.
const Path = handler.AdminPath + "/logs"

// Service lists audit entries.
type Service struct {
	db *gorm.DB
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) error {
	if app == nil || cfg == nil || db == nil || authService == nil {
		return handler.ErrNilDependency
	}

	s.db = db

	app.Get(Path, auth.RequireAdmin(authService), s.List)

	return nil
}

// List returns one page of entries, most recent first.
func (s *Service) List(c *fiber.Ctx) error {
	page, err := auditlog.List(
		s.db.WithContext(c.UserContext()),
		c.QueryInt("page", 1),
		c.QueryInt("per_page", auditlog.DefaultPerPage),
	)
	if err != nil {
		return err
	}

	return c.JSON(page)
}
