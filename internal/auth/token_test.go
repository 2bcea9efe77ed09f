package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nita-portal/nita/internal/db/models"
	"github.com/nita-portal/nita/internal/testutil"
)

func TestIssueRevokesPreviousTokens(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()

	u := testutil.User(t, db, "alice", "secret-password", models.SourceLocal)
	issuer := NewTokenIssuer(db, 0)

	first, err := issuer.Issue(ctx, u.ID, "")
	require.NoError(t, err)

	second, err := issuer.Issue(ctx, u.ID, "")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	n, err := issuer.Count(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = issuer.Resolve(ctx, first)
	require.ErrorIs(t, err, ErrUnauthenticated)

	tok, err := issuer.Resolve(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, u.ID, tok.UserID)
	assert.NotNil(t, tok.LastUsedAt)
}

func TestTokenIsNotStoredInPlaintext(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()

	u := testutil.User(t, db, "alice", "secret-password", models.SourceLocal)

	plain, err := NewTokenIssuer(db, 0).Issue(ctx, u.ID, "")
	require.NoError(t, err)

	_, secret, ok := strings.Cut(plain, "|")
	require.True(t, ok)

	var row models.AccessToken
	require.NoError(t, db.Where("user_id = ?", u.ID).First(&row).Error)
	assert.NotContains(t, row.TokenHash, secret)
	assert.Equal(t, hashSecret(secret), row.TokenHash)
	assert.Len(t, row.TokenHash, 64)
}

func TestResolveRejectsMalformedTokens(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()

	u := testutil.User(t, db, "alice", "secret-password", models.SourceLocal)
	issuer := NewTokenIssuer(db, 0)

	plain, err := issuer.Issue(ctx, u.ID, "")
	require.NoError(t, err)

	id, _, _ := strings.Cut(plain, "|")

	for _, bearer := range []string{"", "abc", "1|", "x|y", id + "|wrong-secret", "999|" + strings.Repeat("a", 40)} {
		_, err = issuer.Resolve(ctx, bearer)
		require.ErrorIs(t, err, ErrUnauthenticated, bearer)
	}
}

func TestResolveExpiredToken(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()

	u := testutil.User(t, db, "alice", "secret-password", models.SourceLocal)
	issuer := NewTokenIssuer(db, time.Hour)

	plain, err := issuer.Issue(ctx, u.ID, "")
	require.NoError(t, err)

	_, err = issuer.Resolve(ctx, plain)
	require.NoError(t, err)

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err = issuer.Resolve(ctx, plain)
	require.ErrorIs(t, err, ErrUnauthenticated)

	n, err := issuer.Count(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, n, "expired token is deleted")
}

func TestRevoke(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()

	u := testutil.User(t, db, "alice", "secret-password", models.SourceLocal)
	issuer := NewTokenIssuer(db, 0)

	plain, err := issuer.Issue(ctx, u.ID, "")
	require.NoError(t, err)
	require.NoError(t, issuer.Revoke(ctx, u.ID))

	_, err = issuer.Resolve(ctx, plain)
	require.ErrorIs(t, err, ErrUnauthenticated)
}
