package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/utils"
)

// AttachJWTLocals copies the claims set by OptionalJWT into "userId" (uuid.UUID)
// and "role". Without claims the request continues anonymously.
func AttachJWTLocals() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("user").(*utils.Claims)
		if !ok || claims == nil {
			return c.Next()
		}
		if err := attach(c, claims); err != nil {
			return err
		}
		return c.Next()
	}
}

// Auth rejects requests without a valid session token, then attaches the
// claims like AttachJWTLocals. Route groups use it as their guard.
func Auth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := TokenFrom(c)
		if tokenStr == "" {
			return fiber.ErrUnauthorized
		}
		claims, err := utils.ParseJWT(secret, tokenStr)
		if err != nil {
			return fiber.ErrUnauthorized
		}
		c.Locals("user", claims)
		if err := attach(c, claims); err != nil {
			return err
		}
		return c.Next()
	}
}

func attach(c *fiber.Ctx, claims *utils.Claims) error {
	uid, err := uuid.Parse(strings.TrimSpace(claims.UserID))
	if err != nil {
		return fiber.ErrUnauthorized
	}
	c.Locals("userId", uid)
	c.Locals("role", strings.ToLower(strings.TrimSpace(claims.Role)))
	return nil
}

// UserID returns the authenticated user, or uuid.Nil for anonymous requests.
func UserID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals("userId").(uuid.UUID)
	return id
}
