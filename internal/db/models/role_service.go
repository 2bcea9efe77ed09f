package models

// RoleService is the junction table between roles and services: the authorization matrix.
type RoleService struct {
	// RoleID is the ID of the role in this link.
	RoleID uint `gorm:"primaryKey;column:role_id"`
	// ServiceID is the ID of the service in this link.
	ServiceID uint `gorm:"primaryKey;column:service_id"`
}

// TableName specifies the database table name for the RoleService model.
func (RoleService) TableName() string {
	return "role_service"
}
