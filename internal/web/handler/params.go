package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/nita-portal/nita/internal/auth"
	"github.com/nita-portal/nita/internal/db/controller/auditlog"
)

// ID parses a numeric route parameter. A malformed id is treated as a missing resource.
func ID(c *fiber.Ctx, name string, notFound error) (uint64, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, notFound
	}

	return id, nil
}

// Audit records an administrative action of the authenticated user.
func Audit(c *fiber.Ctx, db *gorm.DB, action, target string, details any) {
	auditlog.Record(db.WithContext(c.UserContext()), auditlog.Entry{
		UserID:    auth.CurrentUserID(c),
		Action:    action,
		Target:    target,
		Details:   details,
		IPAddress: c.IP(),
	})
}
