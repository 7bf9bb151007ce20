package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	m, err := NewManager("s3cret", "follow-graph", time.Minute)
	require.NoError(t, err)

	token, exp, err := m.GenerateToken("User", "42")
	require.NoError(t, err)
	assert.Greater(t, exp, time.Now().Unix())

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "User", claims.EntityType)
	assert.Equal(t, "42", claims.EntityID)
	assert.Equal(t, "User:42", claims.Subject)
}

func TestValidateRejects(t *testing.T) {
	m, err := NewManager("s3cret", "follow-graph", time.Minute)
	require.NoError(t, err)

	other, err := NewManager("different", "follow-graph", time.Minute)
	require.NoError(t, err)
	forged, _, err := other.GenerateToken("User", "42")
	require.NoError(t, err)
	_, err = m.ValidateToken(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer, err := NewManager("s3cret", "someone-else", time.Minute)
	require.NoError(t, err)
	token, _, err := wrongIssuer.GenerateToken("User", "42")
	require.NoError(t, err)
	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "follow-graph",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		EntityType: "User",
		EntityID:   "42",
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = m.ValidateToken(expired)
	assert.ErrorIs(t, err, ErrExpiredToken)

	_, err = m.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestEmptySecret(t *testing.T) {
	_, err := NewManager("", "follow-graph", time.Minute)
	assert.ErrorIs(t, err, ErrEmptySecret)
}
