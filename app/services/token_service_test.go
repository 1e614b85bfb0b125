package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing-32-chars"

// createTestTokenService creates a token service for testing with symmetric key
func createTestTokenService(t *testing.T, ttl time.Duration) TokenService {
	t.Helper()
	svc, err := NewTokenService(ttl, "test-issuer", "test-audience", false, "", "", testSecret)
	require.NoError(t, err)
	return svc
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name         string
		useRSAKeys   bool
		publicKeyPEM string
		secretKey    string
		expectError  bool
	}{
		{
			name:        "valid symmetric key configuration",
			secretKey:   testSecret,
			expectError: false,
		},
		{
			name:        "missing secret key",
			secretKey:   "",
			expectError: true,
		},
		{
			name:        "rsa without public key",
			useRSAKeys:  true,
			expectError: true,
		},
		{
			name:         "rsa with garbage public key",
			useRSAKeys:   true,
			publicKeyPEM: "not a pem block",
			expectError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := NewTokenService(time.Hour, "iss", "aud", tt.useRSAKeys, "", tt.publicKeyPEM, tt.secretKey)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, service)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, service)
			}
		})
	}
}

func TestValidateToken(t *testing.T) {
	service := createTestTokenService(t, 15*time.Minute)

	t.Run("admin token round trip", func(t *testing.T) {
		token, err := service.GenerateAccessToken("user_123", RoleAdmin)
		require.NoError(t, err)

		claims, err := service.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "user_123", claims.UserID)
		assert.Equal(t, RoleAdmin, claims.Role)
		assert.Equal(t, "access", claims.TokenType)
		assert.NotEmpty(t, claims.TokenID)
		assert.True(t, claims.IsAdmin())
		assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))
	})

	t.Run("non admin role", func(t *testing.T) {
		token, err := service.GenerateAccessToken("user_456", "customer")
		require.NoError(t, err)

		claims, err := service.ValidateToken(token)
		require.NoError(t, err)
		assert.False(t, claims.IsAdmin())
	})

	t.Run("expired token", func(t *testing.T) {
		expired := createTestTokenService(t, -time.Minute)
		token, err := expired.GenerateAccessToken("user_123", RoleAdmin)
		require.NoError(t, err)

		_, err = service.ValidateToken(token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other, err := NewTokenService(time.Hour, "test-issuer", "test-audience", false, "", "", "another-secret-key-that-is-32-chars-long")
		require.NoError(t, err)
		token, err := other.GenerateAccessToken("user_123", RoleAdmin)
		require.NoError(t, err)

		_, err = service.ValidateToken(token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("wrong audience", func(t *testing.T) {
		other, err := NewTokenService(time.Hour, "test-issuer", "someone-else", false, "", "", testSecret)
		require.NoError(t, err)
		token, err := other.GenerateAccessToken("user_123", RoleAdmin)
		require.NoError(t, err)

		_, err = service.ValidateToken(token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("missing subject", func(t *testing.T) {
		now := time.Now()
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"role": RoleAdmin,
			"iat":  now.Unix(),
			"exp":  now.Add(time.Hour).Unix(),
			"iss":  "test-issuer",
			"aud":  "test-audience",
		})
		signed, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = service.ValidateToken(signed)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("malformed token", func(t *testing.T) {
		_, err := service.ValidateToken("not.a.jwt")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}
