package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	_, err := NewTokenService(TokenConfig{})
	require.Error(t, err)
	require.EqualError(t, err, "auth: secret must be provided")
}

func TestIssueAndValidateToken(t *testing.T) {
	current := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	svc, err := NewTokenService(TokenConfig{
		Secret:   "super-secret",
		Issuer:   "gatehouse",
		TokenTTL: time.Hour,
		Clock:    now,
	})
	require.NoError(t, err)

	token, expiresAt, err := svc.IssueToken("warden")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.True(t, expiresAt.Equal(current.Add(time.Hour)))

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)

	require.Equal(t, "warden", claims.Username)
	require.Equal(t, RoleInspector, claims.Role)
	require.Equal(t, "gatehouse", claims.Issuer)
	require.True(t, claims.IssuedAt.Time.Equal(current))
	require.True(t, claims.ExpiresAt.Time.Equal(current.Add(time.Hour)))
}

func TestIssueTokenRequiresUsername(t *testing.T) {
	svc, err := NewTokenService(TokenConfig{Secret: "secret"})
	require.NoError(t, err)

	_, _, err = svc.IssueToken("")
	require.Error(t, err)
}

func TestValidateTokenInvalidSignature(t *testing.T) {
	now := func() time.Time { return time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC) }

	issuer, err := NewTokenService(TokenConfig{
		Secret:   "issuer-secret",
		TokenTTL: time.Minute,
		Clock:    now,
	})
	require.NoError(t, err)

	token, _, err := issuer.IssueToken("warden")
	require.NoError(t, err)

	verifier, err := NewTokenService(TokenConfig{
		Secret:   "other-secret",
		TokenTTL: time.Minute,
		Clock:    now,
	})
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
	require.True(t, errors.Is(err, jwt.ErrTokenSignatureInvalid))
}

func TestValidateTokenExpired(t *testing.T) {
	current := time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	svc, err := NewTokenService(TokenConfig{
		Secret:   "secret",
		TokenTTL: time.Minute,
		Clock:    now,
	})
	require.NoError(t, err)

	token, _, err := svc.IssueToken("warden")
	require.NoError(t, err)

	// Move time forward beyond expiry.
	current = current.Add(2 * time.Minute)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	require.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestValidateTokenWrongIssuer(t *testing.T) {
	now := func() time.Time { return time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC) }

	issuer, err := NewTokenService(TokenConfig{Secret: "secret", Issuer: "somewhere-else", Clock: now})
	require.NoError(t, err)

	token, _, err := issuer.IssueToken("warden")
	require.NoError(t, err)

	verifier, err := NewTokenService(TokenConfig{Secret: "secret", Issuer: "gatehouse", Clock: now})
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
}
