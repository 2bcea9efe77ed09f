package handler

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/nita-portal/nita/internal/auth"
	"github.com/nita-portal/nita/internal/db/controller"
	"github.com/nita-portal/nita/internal/db/controller/link"
	"github.com/nita-portal/nita/internal/db/controller/registry"
	"github.com/nita-portal/nita/internal/db/controller/role"
	"github.com/nita-portal/nita/internal/db/controller/service"
	"github.com/nita-portal/nita/internal/db/controller/user"
	"github.com/nita-portal/nita/internal/media"
)

// Client facing messages.
const (
	MessageServerError     = "Server Error"
	MessageAuthSystemError = "Authentication system error. Please try again later."
	MessageInvalidPassword = "The current password is incorrect."
)

var notFound = []error{ //nolint:gochecknoglobals
	role.ErrRoleNotFound,
	service.ErrServiceNotFound,
	user.ErrUserNotFound,
	media.ErrIconNotFound,
}

var invalidFile = []error{ //nolint:gochecknoglobals
	media.ErrIconTooLarge,
	media.ErrUnsupportedType,
	media.ErrInvalidName,
}

// Success sends a 200 body with status "success" merged into data.
func Success(c *fiber.Ctx, data fiber.Map) error {
	body := fiber.Map{"status": StatusSuccess}
	for k, v := range data {
		body[k] = v
	}

	return c.JSON(body)
}

// ErrorHandler renders every error returned by a handler as {status:"error", message}.
// In dev mode the wrapped cause of server side failures is added as "debug".
func ErrorHandler(devMode bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code, body := Render(err, devMode)

		if code >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Int("status", code).
				Msg("request failed")
		}

		return c.Status(code).JSON(body)
	}
}

// Render maps an error onto a status code and a response body.
func Render(err error, devMode bool) (int, fiber.Map) {
	body := fiber.Map{"status": StatusFailed}

	code, message := classify(err, body)
	body["message"] = message

	var sysErr *auth.SystemError
	if devMode && errors.As(err, &sysErr) {
		body["debug"] = sysErr.Err.Error()
	}

	var se *StatusError
	if devMode && errors.As(err, &se) && se.Err != nil {
		body["debug"] = se.Err.Error()
	}

	return code, body
}

//nolint:cyclop,funlen
func classify(err error, body fiber.Map) (int, string) {
	var (
		statusErr  *StatusError
		validation *ValidationError
		fieldErr   *auth.FieldError
		missing    *link.MissingError
		conflict   *controller.ConflictError
		forbidden  *auth.ForbiddenError
		fiberErr   *fiber.Error
	)

	switch {
	case errors.As(err, &statusErr):
		for k, v := range statusErr.Extra {
			body[k] = v
		}

		return statusErr.Code, statusErr.Message

	case errors.As(err, &validation):
		body["errors"] = validation.Fields

		return fiber.StatusUnprocessableEntity, validation.Message()

	case errors.As(err, &fieldErr):
		body["errors"] = fiber.Map{fieldErr.Field: []string{fieldErr.Message}}

		return fiber.StatusUnprocessableEntity, fieldErr.Message

	case errors.As(err, &missing):
		msg := sentence(missing.Error())
		body["errors"] = fiber.Map{missing.Field: []string{msg}}

		return fiber.StatusUnprocessableEntity, msg

	case errors.As(err, &conflict):
		msg := "The " + conflict.Field + " has already been taken."
		body["errors"] = fiber.Map{conflict.Field: []string{msg}}

		return fiber.StatusUnprocessableEntity, msg

	case errors.Is(err, user.ErrLocalAccount):
		msg := "The username belongs to a local account."
		body["errors"] = fiber.Map{"username": []string{msg}}

		return fiber.StatusUnprocessableEntity, msg

	case errors.Is(err, role.ErrRoleNameEmpty):
		msg := "The name field is required."
		body["errors"] = fiber.Map{"name": []string{msg}}

		return fiber.StatusUnprocessableEntity, msg

	case errors.Is(err, registry.ErrInvalidDocument):
		return fiber.StatusUnprocessableEntity, sentence(err.Error())

	case matching(err, invalidFile) != nil:
		msg := sentence(matching(err, invalidFile).Error())
		body["errors"] = fiber.Map{"file": []string{msg}}

		return fiber.StatusUnprocessableEntity, msg

	case errors.As(err, &forbidden):
		return fiber.StatusForbidden, forbidden.Error()

	case errors.Is(err, role.ErrRoleProtected):
		return fiber.StatusForbidden, sentence(err.Error())

	case matching(err, notFound) != nil:
		return fiber.StatusNotFound, sentence(matching(err, notFound).Error())

	case errors.Is(err, auth.ErrUnauthenticated):
		return fiber.StatusUnauthorized, auth.MessageUnauthenticated

	case errors.Is(err, auth.ErrInvalidCredentials):
		return fiber.StatusUnauthorized, "Invalid credentials"

	case errors.Is(err, auth.ErrInvalidOldPassword):
		return fiber.StatusUnauthorized, MessageInvalidPassword

	case errors.Is(err, auth.ErrAuthSystem):
		return fiber.StatusInternalServerError, MessageAuthSystemError

	case errors.Is(err, auth.ErrNoDirectory):
		return fiber.StatusServiceUnavailable, "No directory is enabled."

	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiberErr.Message

	default:
		return fiber.StatusInternalServerError, MessageServerError
	}
}

// matching returns the first target err matches, or nil.
func matching(err error, targets []error) error {
	for _, t := range targets {
		if errors.Is(err, t) {
			return t
		}
	}

	return nil
}

// sentence upper-cases the first letter and terminates with a period.
func sentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}

	r, size := utf8.DecodeRuneInString(s)
	s = string(unicode.ToUpper(r)) + s[size:]

	if !strings.HasSuffix(s, ".") {
		s += "."
	}

	return s
}
