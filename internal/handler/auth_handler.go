package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/mscandco/distribution-api/internal/auth"
)

// AuthHandler handles ForwardAuth verification for the API gateway
type AuthHandler struct {
	authenticator *auth.Authenticator
}

// NewAuthHandler creates a new auth handler for ForwardAuth verification
func NewAuthHandler(authenticator *auth.Authenticator) *AuthHandler {
	return &AuthHandler{authenticator: authenticator}
}

// Verify handles GET /auth/verify, called by Traefik ForwardAuth.
// Returns 200 with X-User-* headers on success, 401 on a bad token and 403
// when the token names no known role.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	id, err := h.authenticator.FromHeader(authHeader)
	if errors.Is(err, auth.ErrNoRole) {
		return c.SendStatus(fiber.StatusForbidden)
	}
	if err != nil {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	c.Set("X-User-Id", id.UserID)
	c.Set("X-User-Role", string(id.Role))
	if id.LabelID != "" {
		c.Set("X-User-Label", id.LabelID)
	}
	if id.Email != "" {
		c.Set("X-User-Email", id.Email)
	}
	if id.Name != "" {
		c.Set("X-User-Name", id.Name)
	}
	return c.SendStatus(fiber.StatusOK)
}
