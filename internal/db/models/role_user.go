package models

// RoleUser is the junction table between roles and users.
type RoleUser struct {
	// RoleID is the ID of the role in this membership.
	RoleID uint `gorm:"primaryKey;column:role_id"`
	// UserID is the ID of the user in this membership.
	UserID uint64 `gorm:"primaryKey;column:user_id"`
}

// TableName specifies the database table name for the RoleUser model.
func (RoleUser) TableName() string {
	return "role_user"
}
