package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHS256Service(t *testing.T) *JWTService {
	t.Helper()
	svc, err := NewJWTService(JWTConfig{
		Secret:     "test-secret",
		Issuer:     "lending-gateway",
		Expiration: time.Hour,
	})
	require.NoError(t, err)
	return svc
}

func TestJWTRoundTrip(t *testing.T) {
	svc := newHS256Service(t)

	token, err := svc.GenerateToken("user-1", []string{"lending:write"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.True(t, claims.HasRole("lending:write"))
	assert.False(t, claims.HasRole("admin"))
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	svc := newHS256Service(t)
	token, err := svc.GenerateToken("user-1", nil)
	require.NoError(t, err)

	other, err := NewJWTService(JWTConfig{Secret: "different", Issuer: "lending-gateway"})
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsWrongIssuer(t *testing.T) {
	issuer, err := NewJWTService(JWTConfig{Secret: "s", Issuer: "someone-else", Expiration: time.Hour})
	require.NoError(t, err)
	token, err := issuer.GenerateToken("user-1", nil)
	require.NoError(t, err)

	svc := newHS256Service(t)
	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestNewJWTServiceRequiresKeyMaterial(t *testing.T) {
	_, err := NewJWTService(JWTConfig{})
	assert.Error(t, err)
}
