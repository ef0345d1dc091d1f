package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateJWTThenVerifyJWTRoundTripsUserID(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	s := &AuthService{}

	token, err := s.GenerateJWT("user-123", "someone@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := s.VerifyJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestVerifyJWTRejectsTokenSignedWithDifferentSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret-a")
	s := &AuthService{}
	token, err := s.GenerateJWT("user-123", "someone@example.com")
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "secret-b")
	_, err = s.VerifyJWT(token)
	assert.Error(t, err)
}

func TestVerifyJWTRejectsExpiredToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	s := &AuthService{}

	claims := &Claims{
		UserID: "user-123",
		Email:  "someone@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = s.VerifyJWT(signed)
	assert.Error(t, err)
}

func TestGetAuthServiceFallsBackToEmptyInstanceWhenUninitialized(t *testing.T) {
	assert.NotNil(t, GetAuthService())
}
