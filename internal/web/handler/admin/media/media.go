// Package media provides the icon upload handlers of the admin area.
package media

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/nita-portal/nita/internal/auth"
	"github.com/nita-portal/nita/internal/config"
	svcctl "github.com/nita-portal/nita/internal/db/controller/service"
	"github.com/nita-portal/nita/internal/media"
	"github.com/nita-portal/nita/internal/web/handler"
)

const (
	// Path is the base path for icon management.
	Path = handler.AdminPath + "/media"
	// UploadPath receives multipart uploads.
	UploadPath = Path + "/upload"
	// IconsPath lists and deletes icons.
	IconsPath = Path + "/icons"

	formField = "file"
)

// Service handles icon uploads.
type Service struct {
	db    *gorm.DB
	store *media.Store
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes and opens the icon directory.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) error {
	if app == nil || cfg == nil || db == nil || authService == nil {
		return handler.ErrNilDependency
	}

	store, err := media.NewStore(cfg.Media.IconPath, cfg.Media.MaxIconSize)
	if err != nil {
		return err
	}

	s.db = db
	s.store = store

	admin := auth.RequireAdmin(authService)

	app.Post(UploadPath, admin, s.Upload)
	app.Get(IconsPath, admin, s.List)
	app.Delete(IconsPath+"/:filename", admin, s.Delete)

	return nil
}

// Upload stores the multipart "file" field and returns the stored file name.
func (s *Service) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile(formField)
	if err != nil {
		return handler.NewValidationError(formField, "The file field is required.")
	}

	if fh.Size > s.store.MaxSize() {
		return media.ErrIconTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	name, err := s.store.Save(fh.Filename, f)
	if err != nil {
		return err
	}

	handler.Audit(c, s.db, "upload_icon", name, fiber.Map{"size": fh.Size})

	return handler.Success(c, fiber.Map{"filename": name})
}

// List returns the stored icon names.
func (s *Service) List(c *fiber.Ctx) error {
	names, err := s.store.List()
	if err != nil {
		return err
	}

	return c.JSON(names)
}

// Delete removes an icon. Services still pointing at it keep the stale reference.
func (s *Service) Delete(c *fiber.Ctx) error {
	name, err := media.Clean(c.Params("filename"))
	if err != nil {
		return media.ErrIconNotFound
	}

	inUse, err := svcctl.IconInUse(s.db.WithContext(c.UserContext()), name)
	if err != nil {
		return err
	}

	if err = s.store.Delete(name); err != nil {
		return err
	}

	if inUse {
		log.Warn().Str("icon", name).Msg("deleted icon is still referenced by a service")
	}

	handler.Audit(c, s.db, "delete_icon", name, fiber.Map{"in_use": inUse})

	return handler.Success(c, fiber.Map{"message": "Deleted successfully."})
}
