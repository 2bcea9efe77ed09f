package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/nita-portal/nita/internal/db/models"
	"github.com/nita-portal/nita/internal/uniuri"
)

// DefaultTokenName labels tokens issued by a login.
const DefaultTokenName = "auth_token"

// TokenIssuer mints and resolves opaque bearer tokens.
//
// The plaintext token is "<id>|<secret>". Only the SHA-256 of the secret is stored,
// so a leaked table does not yield usable tokens.
type TokenIssuer struct {
	db     *gorm.DB
	expiry time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer. An expiry of 0 means tokens never expire.
func NewTokenIssuer(db *gorm.DB, expiry time.Duration) *TokenIssuer {
	return &TokenIssuer{db: db, expiry: expiry, now: time.Now}
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))

	return hex.EncodeToString(sum[:])
}

// Issue revokes every token of the user and creates exactly one new token.
// Both steps share a transaction, so no point in time has two valid tokens.
func (t *TokenIssuer) Issue(ctx context.Context, userID uint64, name string) (string, error) {
	if name == "" {
		name = DefaultTokenName
	}

	secret := uniuri.NewLen(uniuri.TokenLen)
	row := models.AccessToken{
		UserID:    userID,
		Name:      name,
		TokenHash: hashSecret(secret),
	}

	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.AccessToken{}).Error; err != nil {
			return fmt.Errorf("failed to revoke tokens: %w", err)
		}

		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to create token: %w", err)
		}

		return nil
	})
	if err != nil {
		return "", err
	}

	return strconv.FormatUint(row.ID, 10) + "|" + secret, nil
}

// Resolve returns the token row for a plaintext bearer token.
// Unknown, malformed and expired tokens yield ErrUnauthenticated.
func (t *TokenIssuer) Resolve(ctx context.Context, bearer string) (*models.AccessToken, error) {
	idPart, secret, ok := strings.Cut(strings.TrimSpace(bearer), "|")
	if !ok || secret == "" {
		return nil, ErrUnauthenticated
	}

	id, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	var row models.AccessToken
	if err = t.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnauthenticated
		}

		return nil, fmt.Errorf("failed to read token: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(row.TokenHash), []byte(hashSecret(secret))) != 1 {
		return nil, ErrUnauthenticated
	}

	now := t.now()

	if t.expiry > 0 && now.After(row.CreatedAt.Add(t.expiry)) {
		if errDel := t.db.WithContext(ctx).Delete(&models.AccessToken{}, row.ID).Error; errDel != nil {
			return nil, fmt.Errorf("failed to delete expired token: %w", errDel)
		}

		return nil, ErrUnauthenticated
	}

	if err = t.db.WithContext(ctx).Model(&row).UpdateColumn("last_used_at", now).Error; err != nil {
		return nil, fmt.Errorf("failed to touch token: %w", err)
	}

	row.LastUsedAt = &now

	return &row, nil
}

// Revoke deletes every token of the user.
func (t *TokenIssuer) Revoke(ctx context.Context, userID uint64) error {
	if err := t.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.AccessToken{}).Error; err != nil {
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}

	return nil
}

// Count returns the number of stored tokens of the user.
func (t *TokenIssuer) Count(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	if err := t.db.WithContext(ctx).Model(&models.AccessToken{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count tokens: %w", err)
	}

	return n, nil
}
