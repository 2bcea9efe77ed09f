package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nita-portal/nita/internal/db/models"
)

func TestBreakerOpensAfterFaults(t *testing.T) {
	ctx := context.Background()

	dir := newFakeDirectory(models.SourceOpenLDAP).add("alice", "pw", "Alice", "")
	dir.fault = errors.New("connection refused")

	b := NewBreakerDirectory(dir, 3, time.Hour)
	assert.Equal(t, models.SourceOpenLDAP, b.Source())

	for range 3 {
		_, err := b.Lookup(ctx, "alice")
		require.Error(t, err)
	}

	require.Equal(t, 3, dir.calls)

	// open: the directory is not called any more
	_, err := b.Lookup(ctx, "alice")
	require.ErrorIs(t, err, ErrAuthSystem)
	assert.Equal(t, 3, dir.calls)

	_, err = b.Authenticate(ctx, "alice", "pw")
	require.ErrorIs(t, err, ErrAuthSystem)
	assert.Equal(t, 3, dir.calls)
}

func TestBreakerIgnoresAnswers(t *testing.T) {
	ctx := context.Background()

	dir := newFakeDirectory(models.SourceFreeIPA).add("alice", "pw", "Alice", "")
	b := NewBreakerDirectory(dir, 2, time.Hour)

	for range 5 {
		_, err := b.Lookup(ctx, "nobody")
		require.ErrorIs(t, err, ErrDirectoryUserNotFound)

		_, err = b.Authenticate(ctx, "alice", "wrong")
		require.ErrorIs(t, err, ErrBindFailed)
	}

	e, err := b.Authenticate(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "Alice", e.Name)
	assert.Equal(t, 11, dir.calls)
}

func TestBreakerRecovers(t *testing.T) {
	ctx := context.Background()

	dir := newFakeDirectory(models.SourceOpenLDAP).add("alice", "pw", "Alice", "")
	dir.fault = errors.New("i/o timeout")

	b := NewBreakerDirectory(dir, 1, 10*time.Millisecond)

	_, err := b.Lookup(ctx, "alice")
	require.ErrorIs(t, err, dir.fault)

	dir.fault = nil

	_, err = b.Lookup(ctx, "alice")
	require.ErrorIs(t, err, ErrAuthSystem, "still open")

	require.Eventually(t, func() bool {
		_, err := b.Lookup(ctx, "alice")

		return err == nil
	}, time.Second, 5*time.Millisecond)
}
