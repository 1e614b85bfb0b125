// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"errors"
	"strings"

	"github.com/amirphl/storefront-campaigns/app/dto"
	"github.com/amirphl/storefront-campaigns/app/services"
	"github.com/gofiber/fiber/v3"
)

// Locals keys set by the auth middleware
const (
	LocalCallerID    = "caller_id"
	LocalCallerRole  = "caller_role"
	LocalTokenID     = "token_id"
	LocalTokenClaims = "token_claims"
	LocalRequestID   = "request_id"
)

// AuthMiddleware handles JWT token validation for protected endpoints
type AuthMiddleware struct {
	tokenService services.TokenService
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
	}
}

func unauthorized(c fiber.Ctx, message, code string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: code},
	})
}

// Authenticate validates the bearer token and stores the caller identity for downstream handlers
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "Authorization header is required", "MISSING_AUTHORIZATION_HEADER")
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return unauthorized(c, "Invalid authorization header format. Expected 'Bearer <token>'", "INVALID_AUTHORIZATION_FORMAT")
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			return unauthorized(c, "Access token is required", "MISSING_ACCESS_TOKEN")
		}

		claims, err := m.tokenService.ValidateToken(token)
		if err != nil {
			if errors.Is(err, services.ErrTokenExpired) {
				return unauthorized(c, "Access token has expired", "TOKEN_EXPIRED")
			}
			if errors.Is(err, services.ErrTokenInvalid) {
				return unauthorized(c, "Invalid access token", "TOKEN_INVALID")
			}
			return unauthorized(c, "Token validation failed", "TOKEN_VALIDATION_FAILED")
		}

		c.Locals(LocalCallerID, claims.UserID)
		c.Locals(LocalCallerRole, claims.Role)
		c.Locals(LocalTokenID, claims.TokenID)
		c.Locals(LocalTokenClaims, claims)

		// Store RequestID for audit logging
		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals(LocalRequestID, requestID)
		}

		return c.Next()
	}
}

// RequireAdmin must run after Authenticate
func RequireAdmin(c fiber.Ctx) error {
	claims, ok := GetCallerClaimsFromContext(c)
	if !ok {
		return unauthorized(c, "Authentication required", "AUTHENTICATION_REQUIRED")
	}
	if !claims.IsAdmin() {
		return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
			Success: false,
			Message: "Admin role required",
			Error:   dto.ErrorDetail{Code: "ADMIN_ROLE_REQUIRED"},
		})
	}
	return c.Next()
}

// GetCallerIDFromContext returns the authenticated caller's user id
func GetCallerIDFromContext(c fiber.Ctx) (string, bool) {
	id, ok := c.Locals(LocalCallerID).(string)
	return id, ok && id != ""
}

// GetCallerClaimsFromContext returns the validated token claims
func GetCallerClaimsFromContext(c fiber.Ctx) (*services.CallerClaims, bool) {
	claims, ok := c.Locals(LocalTokenClaims).(*services.CallerClaims)
	return claims, ok && claims != nil
}
