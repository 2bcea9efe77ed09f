// Package login provides the token login endpoint.
package login

import (
	"bytes"
	"errors"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/nita-portal/nita/internal/auth"
	"github.com/nita-portal/nita/internal/config"
	"github.com/nita-portal/nita/internal/db/models"
	"github.com/nita-portal/nita/internal/web/handler"
)

const (
	// Path is the path of the login endpoint.
	Path = handler.RootPath + "login"
)

// Service is the login handler service.
type Service struct {
	cfg         *config.Config
	authService *auth.Service
}

// Handler is the login handler.
var Handler = Service{}

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, authService *auth.Service) error {
	if app == nil || cfg == nil || db == nil || authService == nil {
		return handler.ErrNilDependency
	}

	s.cfg = cfg
	s.authService = authService

	app.Post(Path, s.Post)

	return nil
}

// sourceType accepts the login type as a JSON string ("1") or number (1).
type sourceType string

func (t *sourceType) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)

	if bytes.Equal(b, []byte("null")) {
		*t = ""

		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err //nolint:wrapcheck
		}

		*t = sourceType(s)

		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return ErrInvalidType
	}

	*t = sourceType(n.String())

	return nil
}

// Request is the login body.
type Request struct {
	Username string     `json:"username" form:"username" validate:"required"`
	Password string     `json:"password" form:"password" validate:"required"`
	Type     sourceType `json:"type" form:"type" validate:"required"`
}

func (r Request) source() (models.UserSource, error) {
	n, err := strconv.Atoi(string(r.Type))
	if err != nil {
		return 0, &auth.FieldError{Field: "type", Message: "The selected type is invalid."}
	}

	return models.UserSource(n), nil
}

// Post verifies the credentials and returns a fresh bearer token.
func (s *Service) Post(c *fiber.Ctx) error {
	var req Request
	if err := handler.Bind(c, &req); err != nil {
		return err
	}

	source, err := req.source()
	if err != nil {
		return err
	}

	cred, err := auth.NewCredential(source, req.Username, req.Password)
	if err != nil {
		return err
	}

	session, err := s.authService.Login(c.UserContext(), cred)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		msg := MessageInvalidLocal
		if source.IsDirectory() {
			msg = MessageInvalidDirectory
		}

		return fiber.NewError(fiber.StatusUnauthorized, msg)
	}

	if err != nil {
		return err
	}

	return handler.Success(c, fiber.Map{
		"token": session.Token,
		"user":  session.User,
	})
}
