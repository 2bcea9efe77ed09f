package handler

import "github.com/nita-portal/nita/internal/db/models"

// RoleView is a role whose services are always sent, [] when none are linked.
type RoleView struct {
	models.Role
	Services []models.Service `json:"services"`
}

// NewRoleView wraps r.
func NewRoleView(r *models.Role) RoleView {
	services := r.Services
	if services == nil {
		services = []models.Service{}
	}

	return RoleView{Role: *r, Services: services}
}

// NewRoleViews wraps every role of roles.
func NewRoleViews(roles []models.Role) []RoleView {
	out := make([]RoleView, 0, len(roles))
	for i := range roles {
		out = append(out, NewRoleView(&roles[i]))
	}

	return out
}

// ServiceView is a service whose roles are always sent, [] when none are linked.
type ServiceView struct {
	models.Service
	Roles []models.Role `json:"roles"`
}

// NewServiceView wraps svc.
func NewServiceView(svc *models.Service) ServiceView {
	roles := svc.Roles
	if roles == nil {
		roles = []models.Role{}
	}

	return ServiceView{Service: *svc, Roles: roles}
}
