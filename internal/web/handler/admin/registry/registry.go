// Package registry provides export and import of the service registry.
package registry

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/nita-portal/nita/internal/auth"
	"github.com/nita-portal/nita/internal/config"
	"github.com/nita-portal/nita/internal/db/controller/registry"
	"github.com/nita-portal/nita/internal/web/handler"
)

const (
	// ExportPath returns the registry document.
	ExportPath = handler.AdminPath + "/export"
	// ImportPath accepts a registry document.
	ImportPath = handler.AdminPath + "/import"
)

// Service handles registry export and import.
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

	app.Get(ExportPath, admin, s.Export)
	app.Post(ImportPath, admin, s.Import)

	return nil
}

// Export sends the registry as a downloadable JSON document.
func (s *Service) Export(c *fiber.Ctx) error {
	doc, err := registry.Export(s.db.WithContext(c.UserContext()))
	if err != nil {
		return err
	}

	c.Attachment("nita-registry.json")

	return c.JSON(doc)
}

// Import applies a registry document in one transaction.
func (s *Service) Import(c *fiber.Ctx) error {
	var doc registry.Document
	if err := c.BodyParser(&doc); err != nil {
		return handler.NewValidationError("body", "The request body is not a valid registry document.")
	}

	if err := validateDocument(&doc); err != nil {
		return err
	}

	sum, err := registry.Import(s.db.WithContext(c.UserContext()), &doc)
	if err != nil {
		return err
	}

	handler.Audit(c, s.db, "import_registry", "registry", sum)

	return handler.Success(c, fiber.Map{"message": "Registry imported", "summary": sum})
}

// validateDocument checks every entry with the rules of the service and role forms.
// Errors are keyed by position, e.g. services[0].slug.
func validateDocument(doc *registry.Document) error {
	out := &handler.ValidationError{}

	check := func(prefix string, i int, v any) error {
		err := handler.Validator.Struct(v)
		if err == nil {
			return nil
		}

		var verr *handler.ValidationError
		if !errors.As(err, &verr) {
			return err
		}

		for field, msgs := range verr.Fields {
			for _, msg := range msgs {
				out.Add(fmt.Sprintf("%s[%d].%s", prefix, i, field), msg)
			}
		}

		return nil
	}

	for i := range doc.Roles {
		if err := check("roles", i, &doc.Roles[i]); err != nil {
			return err
		}
	}

	for i := range doc.Services {
		if err := check("services", i, &doc.Services[i]); err != nil {
			return err
		}
	}

	if len(out.Fields) > 0 {
		return out
	}

	return nil
}
