// Package role provides the role management handlers of the admin area.
package role

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/nita-portal/nita/internal/auth"
	"github.com/nita-portal/nita/internal/config"
	"github.com/nita-portal/nita/internal/db/controller/role"
	"github.com/nita-portal/nita/internal/web/handler"
)

// Path is the base path for role management.
const Path = handler.AdminPath + "/roles"

// Service provides create, rename, delete and service sync for roles.
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

	app.Post(Path, admin, s.Create)
	app.Patch(Path+"/:id", admin, s.Rename)
	app.Delete(Path+"/:id", admin, s.Delete)
	app.Put(Path+"/:id/services", admin, s.SyncServices)

	return nil
}

// NameRequest is the body of create and rename.
type NameRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

func (s *Service) id(c *fiber.Ctx) (uint, error) {
	id, err := handler.ID(c, "id", role.ErrRoleNotFound)

	return uint(id), err
}

// Create adds a role. The name is stored lowercase.
func (s *Service) Create(c *fiber.Ctx) error {
	var req NameRequest
	if err := handler.Bind(c, &req); err != nil {
		return err
	}

	r, err := role.Create(s.db.WithContext(c.UserContext()), req.Name)
	if err != nil {
		return err
	}

	handler.Audit(c, s.db, "create_role", r.Name, nil)

	return c.Status(fiber.StatusCreated).JSON(r)
}

// Rename changes a role's name. The admin role is refused.
func (s *Service) Rename(c *fiber.Ctx) error {
	id, err := s.id(c)
	if err != nil {
		return err
	}

	var req NameRequest
	if err = handler.Bind(c, &req); err != nil {
		return err
	}

	db := s.db.WithContext(c.UserContext())

	before, err := role.Get(db, id)
	if err != nil {
		return err
	}

	r, err := role.Rename(db, id, req.Name)
	if err != nil {
		return err
	}

	if r.Name != before.Name {
		handler.Audit(c, s.db, "update_role", r.Name, fiber.Map{"from": before.Name})
	}

	return c.JSON(r)
}

// Delete removes a role. The admin role is refused.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := s.id(c)
	if err != nil {
		return err
	}

	r, err := role.Delete(s.db.WithContext(c.UserContext()), id)
	if err != nil {
		return err
	}

	handler.Audit(c, s.db, "delete_role", r.Name, nil)

	return handler.Success(c, fiber.Map{"message": "Role deleted"})
}

// ServicesRequest is a bulk-replace body.
type ServicesRequest struct {
	ServiceIDs []uint64 `json:"service_ids" validate:"required"`
}

// SyncServices replaces the set of services linked to the role.
func (s *Service) SyncServices(c *fiber.Ctx) error {
	id, err := s.id(c)
	if err != nil {
		return err
	}

	var req ServicesRequest
	if err = handler.Bind(c, &req); err != nil {
		return err
	}

	r, res, err := role.SyncServices(s.db.WithContext(c.UserContext()), id, req.ServiceIDs)
	if err != nil {
		return err
	}

	if res.Changed() {
		handler.Audit(c, s.db, "sync_role_services", r.Name, res)
	}

	return handler.Success(c, fiber.Map{
		"message": "Role permissions updated",
		"role":    handler.NewRoleView(r),
		"changes": res,
	})
}
