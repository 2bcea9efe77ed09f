// Package dashboard serves the service catalog shown to every signed-in user.
package dashboard

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/nita-portal/nita/internal/auth"
	"github.com/nita-portal/nita/internal/config"
	"github.com/nita-portal/nita/internal/db/controller/role"
	"github.com/nita-portal/nita/internal/db/controller/service"
	"github.com/nita-portal/nita/internal/web/handler"
)

const (
	// ServicesPath lists the services visible to the caller.
	ServicesPath = handler.RootPath + "services"
	// RolesPath lists every role with its services, for matrix clients.
	RolesPath = handler.RootPath + "roles"

	// DefaultMaintenanceMessage is sent when a service in maintenance has no message.
	DefaultMaintenanceMessage = "This service is currently under maintenance."
)

// Service is the dashboard handler service.
type Service struct {
	db          *gorm.DB
	authService *auth.Service
}

// Handler is the dashboard handler.
var Handler = Service{}

// Init registers routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) error {
	if app == nil || cfg == nil || db == nil || authService == nil {
		return handler.ErrNilDependency
	}

	s.db = db
	s.authService = authService

	app.Get(ServicesPath, auth.RequireUser(authService), s.Services)
	app.Get(ServicesPath+"/:id<int>", auth.RequireUser(authService), s.Detail)
	app.Get(ServicesPath+"/:slug/launch",
		auth.RequireUser(authService),
		auth.RequireServiceAccess(authService, "slug"),
		s.Launch,
	)
	app.Get(RolesPath, auth.RequireUser(authService), s.Roles)

	return nil
}

// Services returns every service for an admin, otherwise the services linked to the caller's roles.
func (s *Service) Services(c *fiber.Ctx) error {
	services, err := s.authService.VisibleServices(c.UserContext(), auth.CurrentUserID(c))
	if err != nil {
		return err
	}

	return c.JSON(services)
}

// Detail returns one service if the caller may access it.
func (s *Service) Detail(c *fiber.Ctx) error {
	id, err := handler.ID(c, "id", service.ErrServiceNotFound)
	if err != nil {
		return err
	}

	svc, err := service.Get(s.db.WithContext(c.UserContext()), uint(id))
	if err != nil {
		return err
	}

	err = s.authService.Gate().Authorize(c.UserContext(), auth.CurrentUserID(c), auth.AccessService(svc.Slug))
	if err != nil {
		return err
	}

	return c.JSON(handler.NewServiceView(svc))
}

// Launch returns where to send the caller for a service. A service in maintenance answers 503.
func (s *Service) Launch(c *fiber.Ctx) error {
	svc, err := service.GetBySlugOrName(s.db.WithContext(c.UserContext()), c.Params("slug"))
	if err != nil {
		return err
	}

	if svc.IsMaintenance {
		msg := svc.MaintenanceMessage
		if msg == "" {
			msg = DefaultMaintenanceMessage
		}

		return &handler.StatusError{
			Code:    fiber.StatusServiceUnavailable,
			Message: msg,
			Extra:   map[string]any{"slug": svc.Slug},
		}
	}

	return c.JSON(fiber.Map{
		"name": svc.Name,
		"slug": svc.Slug,
		"url":  svc.URL,
	})
}

// Roles returns every role with its linked services.
func (s *Service) Roles(c *fiber.Ctx) error {
	roles, err := role.List(s.db.WithContext(c.UserContext()))
	if err != nil {
		return err
	}

	return c.JSON(handler.NewRoleViews(roles))
}
