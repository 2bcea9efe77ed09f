// Package directory provides the two-phase import of directory users:
// discover shows who would be imported, sync stores the shadow user.
package directory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/nita-portal/nita/internal/auth"
	"github.com/nita-portal/nita/internal/config"
	"github.com/nita-portal/nita/internal/db/models"
	"github.com/nita-portal/nita/internal/web/handler"
)

const (
	// Path is the base path of the directory endpoints.
	Path = handler.AdminPath + "/ldap"

	// MessageConnectionFailed is sent when a directory could not be asked.
	MessageConnectionFailed = "LDAP/FreeIPA directory connection failed. Please try again later."
)

// Service is the directory handler service.
type Service struct {
	db          *gorm.DB
	authService *auth.Service
}

// Handler is the directory handler.
var Handler = Service{}

// Init registers routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) error {
	if app == nil || cfg == nil || db == nil || authService == nil {
		return handler.ErrNilDependency
	}

	s.db = db
	s.authService = authService

	admin := auth.RequireAdmin(authService)

	app.Post(Path+"/discover", admin, s.Discover)
	app.Post(Path+"/sync", admin, s.Sync)

	return nil
}

// DiscoverRequest is the discover body.
type DiscoverRequest struct {
	Username string `json:"username" validate:"required,min=2,max=100,username"`
}

// Discovered is a directory hit, the payload of the confirm step.
type Discovered struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Provider string `json:"provider"`
}

// Discover asks OpenLDAP, then FreeIPA, for the username. Nothing is stored.
func (s *Service) Discover(c *fiber.Ctx) error {
	var req DiscoverRequest
	if err := c.BodyParser(&req); err != nil {
		return handler.NewValidationError("body", "The request body could not be parsed.")
	}

	req.Username = strings.TrimSpace(req.Username)
	if err := handler.Validator.Struct(&req); err != nil {
		return err
	}

	e, err := s.authService.Discover(c.UserContext(), req.Username)

	switch {
	case err == nil:
		log.Info().Str("username", e.Username).Str("provider", e.Provider()).Msg("directory user discovered")

		return c.JSON(Discovered{
			Username: e.Username,
			Name:     e.Name,
			Email:    e.Email,
			Provider: e.Provider(),
		})
	case errors.Is(err, auth.ErrDirectoryUserNotFound):
		return &handler.StatusError{
			Code: fiber.StatusNotFound,
			Message: fmt.Sprintf("User '%s' not found in OpenLDAP or FreeIPA. Please check the username.",
				req.Username),
			Extra: map[string]any{"username": req.Username},
		}
	case errors.Is(err, auth.ErrAuthSystem):
		return &handler.StatusError{Code: fiber.StatusInternalServerError, Message: MessageConnectionFailed, Err: err}
	default:
		return err
	}
}

// SyncRequest is the confirm body, normally the unchanged discover response.
type SyncRequest struct {
	Username string `json:"username" validate:"required,min=2,max=100,username"`
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"omitempty,email,max=255"`
	Provider string `json:"provider" validate:"required,oneof=OpenLDAP FreeIPA"`
}

func (r SyncRequest) source() models.UserSource {
	if r.Provider == models.SourceFreeIPA.String() {
		return models.SourceFreeIPA
	}

	return models.SourceOpenLDAP
}

// Sync stores the confirmed directory user as a shadow user.
func (s *Service) Sync(c *fiber.Ctx) error {
	var req SyncRequest
	if err := handler.Bind(c, &req); err != nil {
		return err
	}

	u, created, err := s.authService.ImportDirectoryUser(c.UserContext(), auth.Entry{
		Username: req.Username,
		Name:     req.Name,
		Email:    req.Email,
		Source:   req.source(),
	})
	if err != nil {
		return err
	}

	handler.Audit(c, s.db, "ldap_sync_user", u.Username, fiber.Map{"provider": req.Provider, "created": created})

	return handler.Success(c, fiber.Map{
		"message": fmt.Sprintf("User '%s' has been synced successfully. You can now assign roles and services.", u.Name),
		"user":    u,
		"created": created,
	})
}
