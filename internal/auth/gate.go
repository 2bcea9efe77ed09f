package auth

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/nita-portal/nita/internal/db/models"
)

// CapabilityKind distinguishes the two capabilities the Gate knows.
type CapabilityKind int

const (
	// KindManageSystem is the "is administrator" capability.
	KindManageSystem CapabilityKind = iota
	// KindAccessService is the "can reach a named service" capability.
	KindAccessService
)

// Capability is something a user asks the Gate for.
type Capability struct {
	Kind CapabilityKind
	// Service is the slug or name of the service for KindAccessService.
	Service string
}

// ManageSystem is the administrator capability.
func ManageSystem() Capability {
	return Capability{Kind: KindManageSystem}
}

// AccessService is the capability to reach the service with the given slug or name.
func AccessService(slugOrName string) Capability {
	return Capability{Kind: KindAccessService, Service: slugOrName}
}

func (c Capability) String() string {
	if c.Kind == KindAccessService {
		return "access-service:" + c.Service
	}

	return "manage-system"
}

func (c Capability) label() string {
	if c.Kind == KindAccessService {
		return "access-service"
	}

	return "manage-system"
}

// DeniedMessage is the client facing text of a denial.
func (c Capability) DeniedMessage() string {
	if c.Kind == KindAccessService {
		return fmt.Sprintf("Your role does not have permission to access the [%s] service.", c.Service)
	}

	return "Your role does not have permission to manage the system."
}

// Gate decides whether a user holds a capability.
type Gate struct {
	db *gorm.DB
}

// NewGate creates a Gate reading the role graph from db.
func NewGate(db *gorm.DB) *Gate {
	return &Gate{db: db}
}

// IsAdmin reports whether the user holds the admin role.
func (g *Gate) IsAdmin(ctx context.Context, userID uint64) (bool, error) {
	var n int64

	err := g.db.WithContext(ctx).Table("role_user").
		Joins("JOIN roles ON roles.id = role_user.role_id").
		Where("role_user.user_id = ? AND roles.name = ?", userID, models.AdminRoleName).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check admin role: %w", err)
	}

	return n > 0, nil
}

// Check reports whether the user holds the capability.
//
// The admin check runs first for every capability. An admin is granted everything
// without looking at the capability rule. Unknown services are simply never linked,
// so they are denied, not reported as errors.
func (g *Gate) Check(ctx context.Context, userID uint64, c Capability) (bool, error) {
	admin, err := g.IsAdmin(ctx, userID)
	if err != nil {
		return false, err
	}

	if admin {
		gateDecisions.WithLabelValues(c.label(), "admin").Inc()

		return true, nil
	}

	allowed := false

	switch c.Kind {
	case KindManageSystem:
		allowed = false
	case KindAccessService:
		if allowed, err = g.linked(ctx, userID, c.Service); err != nil {
			return false, err
		}
	}

	outcome := "denied"
	if allowed {
		outcome = "granted"
	}

	gateDecisions.WithLabelValues(c.label(), outcome).Inc()

	return allowed, nil
}

// Authorize is Check returning a ForbiddenError on denial.
func (g *Gate) Authorize(ctx context.Context, userID uint64, c Capability) error {
	ok, err := g.Check(ctx, userID, c)
	if err != nil {
		return err
	}

	if !ok {
		return &ForbiddenError{Capability: c}
	}

	return nil
}

// linked reports whether one of the user's roles is linked to the service.
func (g *Gate) linked(ctx context.Context, userID uint64, slugOrName string) (bool, error) {
	if slugOrName == "" {
		return false, nil
	}

	var n int64

	err := g.db.WithContext(ctx).Table("role_service").
		Joins("JOIN role_user ON role_user.role_id = role_service.role_id").
		Joins("JOIN services ON services.id = role_service.service_id").
		Where("role_user.user_id = ? AND (services.slug = ? OR services.name = ?)", userID, slugOrName, slugOrName).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check service link: %w", err)
	}

	return n > 0, nil
}
