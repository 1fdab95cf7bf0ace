// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/propertyshodh/lead-pipeline/app/dto"
	"github.com/propertyshodh/lead-pipeline/app/services"
	"github.com/propertyshodh/lead-pipeline/authz"
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

// AdminAuthenticate validates operator JWTs and sets identity context values.
// The role claim is parsed through the closed authz enum here, at the
// boundary; a token carrying an unknown role is rejected outright.
func (m *AuthMiddleware) AdminAuthenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		// Get the Authorization header
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "Authorization header is required",
				Error:   dto.ErrorDetail{Code: "MISSING_AUTHORIZATION_HEADER"},
			})
		}

		// Check Bearer format
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "Invalid authorization header format. Expected 'Bearer <token>'",
				Error:   dto.ErrorDetail{Code: "INVALID_AUTHORIZATION_FORMAT"},
			})
		}

		// Extract token
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "Access token is required",
				Error:   dto.ErrorDetail{Code: "MISSING_ACCESS_TOKEN"},
			})
		}

		// Validate token
		claims, err := m.tokenService.ValidateAdminToken(token)
		if err != nil {
			var code, msg string
			if errors.Is(err, services.ErrTokenExpired) {
				code = "TOKEN_EXPIRED"
				msg = "Access token has expired"
			} else if errors.Is(err, services.ErrTokenInvalid) {
				code = "TOKEN_INVALID"
				msg = "Invalid access token"
			} else if errors.Is(err, services.ErrTokenRevoked) {
				code = "TOKEN_REVOKED"
				msg = "Access token has been revoked"
			} else {
				code = "TOKEN_VALIDATION_FAILED"
				msg = "Token validation failed"
			}
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{Success: false, Message: msg, Error: dto.ErrorDetail{Code: code}})
		}

		if claims.TokenType != "access" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "A refresh token cannot be used for API access",
				Error:   dto.ErrorDetail{Code: "TOKEN_INVALID"},
			})
		}

		role, ok := authz.ParseRole(claims.Role)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "Token carries an unknown role",
				Error:   dto.ErrorDetail{Code: "INVALID_ROLE"},
			})
		}

		// Store operator identity in context for downstream handlers
		c.Locals("admin_id", claims.AdminID)
		c.Locals("admin_role", role)
		c.Locals("token_id", claims.TokenID)
		c.Locals("access_token", token)
		c.Locals("token_claims", claims)

		// Store RequestID for audit logging
		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals("request_id", requestID)
		}

		return c.Next()
	}
}

// RequireSuperAdmin gates a route group to superadmin and above. It must run
// after AdminAuthenticate.
func (m *AuthMiddleware) RequireSuperAdmin() fiber.Handler {
	return func(c fiber.Ctx) error {
		role, ok := GetAdminRoleFromContext(c)
		if !ok || (role != authz.RoleSuperAdmin && role != authz.RoleSuperSuperAdmin) {
			return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
				Success: false,
				Message: "Insufficient tier for this operation",
				Error:   dto.ErrorDetail{Code: "INSUFFICIENT_TIER"},
			})
		}
		return c.Next()
	}
}

// GetAdminIDFromContext extracts the operator ID from the request context
func GetAdminIDFromContext(c fiber.Ctx) (uint, bool) {
	adminID, ok := c.Locals("admin_id").(uint)
	return adminID, ok
}

// GetAdminRoleFromContext extracts the parsed role from the request context
func GetAdminRoleFromContext(c fiber.Ctx) (authz.Role, bool) {
	role, ok := c.Locals("admin_role").(authz.Role)
	return role, ok
}

// GetAccessTokenFromContext extracts the raw bearer token (used by logout)
func GetAccessTokenFromContext(c fiber.Ctx) (string, bool) {
	token, ok := c.Locals("access_token").(string)
	return token, ok
}

// GetTokenClaimsFromContext extracts token claims from the request context
func GetTokenClaimsFromContext(c fiber.Ctx) (*services.AdminTokenClaims, bool) {
	claims, ok := c.Locals("token_claims").(*services.AdminTokenClaims)
	return claims, ok
}
