package models

import "time"

// AccessToken is an opaque bearer credential. Only the SHA-256 hash of the secret part
// is persisted; the plaintext is returned once at login.
type AccessToken struct {
	// ID is the unique identifier for the token. It is also the prefix of the plaintext token.
	ID uint64 `gorm:"primaryKey"`
	// UserID is the owner of the token.
	UserID uint64 `gorm:"not null;index"`
	// Name is a label for the token.
	Name string `gorm:"size:100;not null"`
	// TokenHash is the hex encoded SHA-256 of the secret.
	TokenHash string `gorm:"column:token_hash;size:64;not null;uniqueIndex"`
	// LastUsedAt is updated whenever the token authenticates a request.
	LastUsedAt *time.Time
	// CreatedAt is the timestamp when the token was issued (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the token was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the AccessToken model.
func (AccessToken) TableName() string {
	return "personal_access_tokens"
}
