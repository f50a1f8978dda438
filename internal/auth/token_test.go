package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenIssueAndVerify(t *testing.T) {
	t.Parallel()

	ti, err := NewTokenIssuer(testSecret, "blt-gateway")
	require.NoError(t, err)

	raw, err := ti.Issue(Claims{UserID: 42, Username: "jane", Email: "jane@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 3, len(strings.Split(raw, ".")))

	claims, err := ti.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "jane", claims.Username)
	assert.Equal(t, "jane@example.com", claims.Email)
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	ti, err := NewTokenIssuer(testSecret, "blt-gateway")
	require.NoError(t, err)
	other, err := NewTokenIssuer("fedcba9876543210fedcba9876543210", "blt-gateway")
	require.NoError(t, err)

	raw, err := ti.Issue(Claims{UserID: 1, Username: "jane"})
	require.NoError(t, err)

	_, err = other.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRejectsWrongIssuer(t *testing.T) {
	t.Parallel()

	ti, err := NewTokenIssuer(testSecret, "someone-else")
	require.NoError(t, err)
	verifier, err := NewTokenIssuer(testSecret, "blt-gateway")
	require.NoError(t, err)

	raw, err := ti.Issue(Claims{UserID: 1})
	require.NoError(t, err)

	_, err = verifier.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpiry(t *testing.T) {
	t.Parallel()

	ti, err := NewTokenIssuer(testSecret, "blt-gateway", WithTokenTTL(-time.Minute))
	require.NoError(t, err)

	raw, err := ti.Issue(Claims{UserID: 1})
	require.NoError(t, err)

	_, err = ti.Verify(raw)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenRejectsGarbage(t *testing.T) {
	t.Parallel()

	ti, err := NewTokenIssuer(testSecret, "blt-gateway")
	require.NoError(t, err)

	_, err = ti.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenIssuerRejectsShortSecret(t *testing.T) {
	t.Parallel()

	_, err := NewTokenIssuer("short", "blt-gateway")
	assert.Error(t, err)
}
