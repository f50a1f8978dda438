package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owasp-blt/blt-gateway/internal/util"
)

func TestMemoryUserStoreCreateAndLookup(t *testing.T) {
	t.Parallel()

	s := NewMemoryUserStore()
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "jane", "Jane@Example.com", "hash", "tok-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, "jane@example.com", u.Email)
	assert.False(t, u.EmailVerified)

	byName, err := s.GetUserByLogin(ctx, "JANE")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)

	byEmail, err := s.GetUserByLogin(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = s.GetUserByLogin(ctx, "nobody")
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestMemoryUserStoreRejectsDuplicates(t *testing.T) {
	t.Parallel()

	s := NewMemoryUserStore()
	ctx := context.Background()

	_, err := s.CreateUser(ctx, "jane", "jane@example.com", "hash", "tok-1")
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, "Jane", "other@example.com", "hash", "tok-2")
	assert.ErrorIs(t, err, util.ErrInvalidInput)

	_, err = s.CreateUser(ctx, "other", "jane@example.com", "hash", "tok-3")
	assert.ErrorIs(t, err, util.ErrInvalidInput)

	_, err = s.CreateUser(ctx, "", "x@example.com", "hash", "tok-4")
	assert.ErrorIs(t, err, util.ErrInvalidInput)
}

func TestMemoryUserStoreVerifyEmail(t *testing.T) {
	t.Parallel()

	s := NewMemoryUserStore()
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "jane", "jane@example.com", "hash", "tok-1")
	require.NoError(t, err)

	verified, err := s.VerifyEmail(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, verified.ID)
	assert.True(t, verified.EmailVerified)

	// Token is single use.
	_, err = s.VerifyEmail(ctx, "tok-1")
	assert.ErrorIs(t, err, util.ErrNotFound)

	_, err = s.VerifyEmail(ctx, "")
	assert.ErrorIs(t, err, util.ErrInvalidInput)
}
