package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mscandco/distribution-api/internal/auth"
	"github.com/mscandco/distribution-api/internal/model"
	"github.com/mscandco/distribution-api/pkg/response"
)

// GatewayAuthMiddleware reads user identity from X-User-* headers
// set by Traefik ForwardAuth and populates Fiber context locals.
func GatewayAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-Id")
		if userID == "" {
			return response.Unauthorized(c, "Missing user identity headers")
		}
		role, ok := model.ParseRole(c.Get("X-User-Role"))
		if !ok {
			return response.Forbidden(c, "Missing or unknown X-User-Role")
		}

		setIdentity(c, &auth.Identity{
			UserID:  userID,
			Email:   c.Get("X-User-Email"),
			Name:    c.Get("X-User-Name"),
			Role:    role,
			LabelID: c.Get("X-User-Label"),
		})
		return c.Next()
	}
}
