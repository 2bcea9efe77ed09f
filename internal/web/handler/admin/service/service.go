// Package service provides the service registry handlers of the admin area.
package service

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/nita-portal/nita/internal/auth"
	"github.com/nita-portal/nita/internal/config"
	svcctl "github.com/nita-portal/nita/internal/db/controller/service"
	"github.com/nita-portal/nita/internal/web/handler"
)

// Path is the base path for service management.
const Path = handler.AdminPath + "/services"

// Service provides CRUD, maintenance and role sync for registered services.
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

	admin := auth.RequireAdmin(authService)

	app.Get(Path, admin, s.List)
	app.Post(Path, admin, s.Create)
	app.Put(Path+"/:id", admin, s.Update)
	app.Patch(Path+"/:id", admin, s.Update)
	app.Delete(Path+"/:id", admin, s.Delete)
	app.Patch(Path+"/:id/maintenance", admin, s.Maintenance)
	app.Put(Path+"/:id/roles", admin, s.SyncRoles)

	return nil
}

// Request is the body of create and update. Omitted maintenance fields keep their value on update.
type Request struct {
	Name               string  `json:"name" form:"name" validate:"required,max=150"`
	Slug               string  `json:"slug" form:"slug" validate:"required,max=100,slug"`
	URL                string  `json:"url" form:"url" validate:"required,max=2048,http_url"`
	Category           string  `json:"category" form:"category" validate:"max=100"`
	Icon               string  `json:"icon" form:"icon" validate:"max=255"`
	IsMaintenance      *bool   `json:"is_maintenance" form:"is_maintenance"`
	MaintenanceMessage *string `json:"maintenance_message" form:"maintenance_message" validate:"omitempty,max=1000"`
}

func (r Request) input(current *svcctl.Input) svcctl.Input {
	in := svcctl.Input{
		Name:     r.Name,
		Slug:     r.Slug,
		URL:      r.URL,
		Category: r.Category,
		Icon:     r.Icon,
	}

	if current != nil {
		in.IsMaintenance = current.IsMaintenance
		in.MaintenanceMessage = current.MaintenanceMessage
	}

	if r.IsMaintenance != nil {
		in.IsMaintenance = *r.IsMaintenance
	}

	if r.MaintenanceMessage != nil {
		in.MaintenanceMessage = *r.MaintenanceMessage
	}

	return in
}

func (s *Service) id(c *fiber.Ctx) (uint, error) {
	id, err := handler.ID(c, "id", svcctl.ErrServiceNotFound)

	return uint(id), err
}

// List returns every service with its roles.
func (s *Service) List(c *fiber.Ctx) error {
	services, err := svcctl.List(s.db.WithContext(c.UserContext()))
	if err != nil {
		return err
	}

	return c.JSON(services)
}

// Create registers a service. A taken slug or name is a conflict, the existing row is untouched.
func (s *Service) Create(c *fiber.Ctx) error {
	var req Request
	if err := handler.Bind(c, &req); err != nil {
		return err
	}

	svc, err := svcctl.Create(s.db.WithContext(c.UserContext()), req.input(nil))
	if err != nil {
		return err
	}

	handler.Audit(c, s.db, "create_service", svc.Name, fiber.Map{"slug": svc.Slug})

	return c.Status(fiber.StatusCreated).JSON(svc)
}

// Update replaces the editable fields of a service.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := s.id(c)
	if err != nil {
		return err
	}

	var req Request
	if err = handler.Bind(c, &req); err != nil {
		return err
	}

	db := s.db.WithContext(c.UserContext())

	current, err := svcctl.Get(db, id)
	if err != nil {
		return err
	}

	svc, err := svcctl.Update(db, id, req.input(&svcctl.Input{
		IsMaintenance:      current.IsMaintenance,
		MaintenanceMessage: current.MaintenanceMessage,
	}))
	if err != nil {
		return err
	}

	handler.Audit(c, s.db, "update_service", svc.Name, fiber.Map{"slug": svc.Slug})

	return c.JSON(svc)
}

// Delete removes a service and its role links.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := s.id(c)
	if err != nil {
		return err
	}

	svc, err := svcctl.Delete(s.db.WithContext(c.UserContext()), id)
	if err != nil {
		return err
	}

	handler.Audit(c, s.db, "delete_service", svc.Name, fiber.Map{"slug": svc.Slug})

	return handler.Success(c, fiber.Map{"message": "Deleted successfully."})
}

// MaintenanceRequest sets the flag; without is_maintenance the flag is toggled.
type MaintenanceRequest struct {
	IsMaintenance      *bool   `json:"is_maintenance"`
	MaintenanceMessage *string `json:"maintenance_message" validate:"omitempty,max=1000"`
}

// Maintenance switches the maintenance state of a service.
func (s *Service) Maintenance(c *fiber.Ctx) error {
	id, err := s.id(c)
	if err != nil {
		return err
	}

	var req MaintenanceRequest
	if len(c.Body()) > 0 {
		if err = handler.Bind(c, &req); err != nil {
			return err
		}
	}

	svc, err := svcctl.SetMaintenance(s.db.WithContext(c.UserContext()), id, req.IsMaintenance, req.MaintenanceMessage)
	if err != nil {
		return err
	}

	handler.Audit(c, s.db, "service_maintenance", svc.Name, fiber.Map{
		"is_maintenance": svc.IsMaintenance,
		"message":        svc.MaintenanceMessage,
	})

	return c.JSON(svc)
}

// RolesRequest is a bulk-replace body.
type RolesRequest struct {
	RoleIDs []uint64 `json:"role_ids" validate:"required"`
}

// SyncRoles replaces the set of roles linked to the service.
func (s *Service) SyncRoles(c *fiber.Ctx) error {
	id, err := s.id(c)
	if err != nil {
		return err
	}

	var req RolesRequest
	if err = handler.Bind(c, &req); err != nil {
		return err
	}

	svc, res, err := svcctl.SyncRoles(s.db.WithContext(c.UserContext()), id, req.RoleIDs)
	if err != nil {
		return err
	}

	if res.Changed() {
		handler.Audit(c, s.db, "sync_service_roles", svc.Name, res)
	}

	return handler.Success(c, fiber.Map{
		"message": "Service roles updated",
		"service": handler.NewServiceView(svc),
		"changes": res,
	})
}
