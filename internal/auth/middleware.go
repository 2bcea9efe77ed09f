package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/nita-portal/nita/internal/db/models"
)

// LocalsUser is the fiber.Locals key of the authenticated *models.User.
const LocalsUser = "user"

// MessageUnauthenticated is the body message of every 401 from the middleware.
const MessageUnauthenticated = "Unauthenticated."

// bearerToken extracts the token of an "Authorization: Bearer <token>" header.
func bearerToken(c *fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)

	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}

// RequireUser resolves the bearer token and stores the user in the request locals.
func RequireUser(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := resolve(c, svc); err != nil {
			return err
		}

		return c.Next()
	}
}

// RequireAdmin is RequireUser followed by a ManageSystem check.
func RequireAdmin(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := resolve(c, svc); err != nil {
			return err
		}

		return authorize(c, svc, ManageSystem())
	}
}

func resolve(c *fiber.Ctx, svc *Service) error {
	token := bearerToken(c)
	if token == "" {
		return fiber.NewError(fiber.StatusUnauthorized, MessageUnauthenticated)
	}

	u, err := svc.Authenticate(c.UserContext(), token)
	if errors.Is(err, ErrUnauthenticated) {
		return fiber.NewError(fiber.StatusUnauthorized, MessageUnauthenticated)
	}

	if err != nil {
		log.Error().Err(err).Msg("failed to resolve bearer token")

		return fiber.ErrInternalServerError
	}

	c.Locals(LocalsUser, u)

	return nil
}

// CurrentUser returns the user stored by RequireUser, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(LocalsUser).(*models.User)

	return u
}

// CurrentUserID returns the id of the user stored by RequireUser, or 0.
func CurrentUserID(c *fiber.Ctx) uint64 {
	if u := CurrentUser(c); u != nil {
		return u.ID
	}

	return 0
}

// RequireCapability asks the Gate for a fixed capability. It must run after RequireUser.
func RequireCapability(svc *Service, capability Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, svc, capability)
	}
}

// RequireServiceAccess asks the Gate for AccessService with the slug taken from the route parameter.
func RequireServiceAccess(svc *Service, param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, svc, AccessService(c.Params(param)))
	}
}

func authorize(c *fiber.Ctx, svc *Service, capability Capability) error {
	u := CurrentUser(c)
	if u == nil {
		return fiber.NewError(fiber.StatusUnauthorized, MessageUnauthenticated)
	}

	allowed, err := svc.Gate().Check(c.UserContext(), u.ID, capability)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", u.ID).Stringer("capability", capability).
			Msg("failed to check capability")

		return fiber.ErrInternalServerError
	}

	if !allowed {
		log.Warn().Uint64("user_id", u.ID).Stringer("capability", capability).Msg("capability denied")

		return fiber.NewError(fiber.StatusForbidden, capability.DeniedMessage())
	}

	return c.Next()
}
