package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/models"
)

// RequireRoles checks the role claim. Run it after Auth.
func RequireRoles(allowed ...string) fiber.Handler {
	allowedSet := map[string]bool{}
	for _, r := range allowed {
		allowedSet[strings.ToLower(r)] = true
	}

	return func(c *fiber.Ctx) error {
		if UserID(c) == uuid.Nil {
			return fiber.ErrUnauthorized
		}
		role, _ := c.Locals("role").(string)
		if !allowedSet[role] {
			return fiber.NewError(fiber.StatusForbidden, "forbidden: insufficient role")
		}
		return c.Next()
	}
}

type UserLookup interface {
	User(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// RequireStaff reads the user row; staff is never carried in the token.
func RequireStaff(users UserLookup) fiber.Handler {
	return requireUser(users, func(u *models.User) error {
		if !u.IsStaff {
			return fiber.NewError(fiber.StatusForbidden, "forbidden: staff only")
		}
		return nil
	})
}

// RequireVerified blocks users whose email is not confirmed yet.
func RequireVerified(users UserLookup) fiber.Handler {
	return requireUser(users, func(u *models.User) error {
		if !u.IsEmailVerified {
			return apperr.ErrUnverified
		}
		return nil
	})
}

func requireUser(users UserLookup, check func(*models.User) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := UserID(c)
		if id == uuid.Nil {
			return fiber.ErrUnauthorized
		}
		u, err := users.User(c.UserContext(), id)
		if err != nil {
			if apperr.As(err).Kind == apperr.KindNotFound {
				return fiber.ErrUnauthorized
			}
			return err
		}
		if !u.IsActive {
			return fiber.ErrUnauthorized
		}
		if err := check(u); err != nil {
			return err
		}
		c.Locals("currentUser", u)
		return c.Next()
	}
}
