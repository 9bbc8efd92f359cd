package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/mscandco/distribution-api/internal/auth"
	"github.com/mscandco/distribution-api/internal/model"
	"github.com/mscandco/distribution-api/pkg/response"
)

// Context locals set by the auth middlewares
const (
	LocalUserID     = "userId"
	LocalEmail      = "email"
	LocalName       = "name"
	LocalRole       = "role"
	LocalLabelScope = "labelScope"
)

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	authenticator *auth.Authenticator
}

// NewAuthMiddleware creates a new auth middleware with Zitadel JWKS verification
func NewAuthMiddleware(verifier auth.TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{authenticator: auth.NewAuthenticator(verifier, "")}
}

// NewAuthMiddlewareWithFallback creates auth middleware with both JWKS and legacy HMAC support
func NewAuthMiddlewareWithFallback(verifier auth.TokenVerifier, jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{authenticator: auth.NewAuthenticator(verifier, jwtSecret)}
}

// NewLegacyAuthMiddleware creates auth middleware using only HMAC signing (for testing/dev)
func NewLegacyAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{authenticator: auth.NewAuthenticator(nil, jwtSecret)}
}

// Authenticate validates JWT token from Authorization header
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return response.Unauthorized(c, "Missing authorization header")
		}

		id, err := m.authenticator.FromHeader(authHeader)
		switch {
		case err == nil:
		case errors.Is(err, auth.ErrNoToken):
			return response.Unauthorized(c, "Invalid authorization header format")
		case errors.Is(err, auth.ErrNoRole):
			return response.Forbidden(c, "Token carries no recognised role")
		case errors.Is(err, auth.ErrNotConfigured):
			return response.Unauthorized(c, "Authentication not configured")
		default:
			return response.Unauthorized(c, "Invalid or expired token")
		}

		setIdentity(c, id)
		return c.Next()
	}
}

func setIdentity(c *fiber.Ctx, id *auth.Identity) {
	c.Locals(LocalUserID, id.UserID)
	c.Locals(LocalEmail, id.Email)
	c.Locals(LocalName, id.Name)
	c.Locals(LocalRole, id.Role)
	c.Locals(LocalLabelScope, id.LabelID)
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) string {
	if userID, ok := c.Locals(LocalUserID).(string); ok {
		return userID
	}
	return ""
}

// GetRole extracts the caller's role from context
func GetRole(c *fiber.Ctx) model.Role {
	if role, ok := c.Locals(LocalRole).(model.Role); ok {
		return role
	}
	return ""
}

// ActorFromContext builds the workflow actor for the authenticated caller.
func ActorFromContext(c *fiber.Ctx) (model.Actor, bool) {
	userID := GetUserID(c)
	role := GetRole(c)
	if userID == "" || role == "" {
		return model.Actor{}, false
	}
	scope, _ := c.Locals(LocalLabelScope).(string)
	return model.Actor{Role: role, UserID: userID, LabelScope: scope}, true
}
