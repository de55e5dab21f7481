package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	session := UserSession{ID: "u1", Name: "Ana", Email: "ana@studio.dev", Role: RoleAdmin}

	token, claims, err := issuer.GenerateToken(session)
	require.NoError(t, err)
	require.NotEmpty(t, claims.ID)

	parsed, err := issuer.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, session, parsed.User)
	assert.Equal(t, claims.ID, parsed.ID)
	assert.True(t, parsed.User.IsAdmin())
}

func TestTokenIssuer_RejectsOtherSecret(t *testing.T) {
	token, _, err := NewTokenIssuer("a", time.Hour).GenerateToken(UserSession{ID: "u1"})
	require.NoError(t, err)

	_, err = NewTokenIssuer("b", time.Hour).ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := NewTokenIssuer("s", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := issuer.GenerateToken(UserSession{ID: "u1"})
	require.NoError(t, err)

	_, err = NewTokenIssuer("s", time.Minute).ValidateToken(token)
	assert.Error(t, err)

	claims, err := DecodeToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.User.ID)
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("Secret123")
	require.NoError(t, err)
	assert.True(t, VerifyPassword("Secret123", hash))
	assert.False(t, VerifyPassword("secret123", hash))

	assert.NoError(t, ValidatePasswordStrength("Secret123"))
	assert.Error(t, ValidatePasswordStrength("short1A"))
	assert.Error(t, ValidatePasswordStrength("alllowercase1"))
	assert.Error(t, ValidatePasswordStrength("ALLUPPERCASE1"))
	assert.Error(t, ValidatePasswordStrength("NoDigitsHere"))
}
