package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/utils"
)

// CookieName holds the session JWT.
const CookieName = "jm_token"

// TokenFrom picks the session token from the cookie, then a Bearer header,
// then the token query parameter (websocket clients cannot set headers).
func TokenFrom(c *fiber.Ctx) string {
	if t := c.Cookies(CookieName); t != "" {
		return t
	}
	if h := c.Get(fiber.HeaderAuthorization); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return c.Query("token")
}

// OptionalJWT attaches claims when a valid token is present and lets
// anonymous requests through.
func OptionalJWT(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if tokenStr := TokenFrom(c); tokenStr != "" {
			if claims, err := utils.ParseJWT(secret, tokenStr); err == nil {
				c.Locals("user", claims)
			}
		}
		return c.Next()
	}
}
