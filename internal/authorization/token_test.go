package authorization

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/popstore/internal/config"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenService(config.Config{AuthJWTSecret: "test-secret"})

	raw, err := tokens.Issue("1001", "Admin", time.Hour)
	require.NoError(t, err)

	principal, err := tokens.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "1001", principal.Subject)
	require.Equal(t, RoleAdmin, principal.Role)
}

func TestTokenRejectsTampering(t *testing.T) {
	tokens := NewTokenService(config.Config{AuthJWTSecret: "test-secret"})
	other := NewTokenService(config.Config{AuthJWTSecret: "other-secret"})

	raw, err := other.Issue("1001", RoleAdmin, time.Hour)
	require.NoError(t, err)
	_, err = tokens.Parse(raw)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Parse("not.a.token")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Parse("")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestTokenRejectsExpired(t *testing.T) {
	tokens := NewTokenService(config.Config{AuthJWTSecret: "test-secret"})
	issuedAt := time.Now().Add(-2 * time.Hour)
	tokens.now = func() time.Time { return issuedAt }
	raw, err := tokens.Issue("1001", RoleOwner, time.Hour)
	require.NoError(t, err)

	tokens.now = time.Now
	_, err = tokens.Parse(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTokenRejectsNoneAlgorithm(t *testing.T) {
	tokens := NewTokenService(config.Config{AuthJWTSecret: "test-secret"})
	claims := Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   "1001",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = tokens.Parse(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenServiceUnconfigured(t *testing.T) {
	tokens := NewTokenService(config.Config{})
	require.False(t, tokens.Configured())
	_, err := tokens.Issue("1", RoleAdmin, time.Hour)
	require.ErrorIs(t, err, ErrNotConfigured)
	_, err = tokens.Parse("x")
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestIssueRejectsUnknownRole(t *testing.T) {
	tokens := NewTokenService(config.Config{AuthJWTSecret: "test-secret"})
	_, err := tokens.Issue("1", "root", time.Hour)
	require.ErrorIs(t, err, ErrUnknownRole)
}

func TestBearerToken(t *testing.T) {
	require.Equal(t, "abc", BearerToken("Bearer abc"))
	require.Equal(t, "abc", BearerToken("bearer  abc "))
	require.Empty(t, BearerToken("Basic abc"))
	require.Empty(t, BearerToken(""))
}
