package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/middleware"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/models"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/realtime"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/services/account"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/services/orders"
)

type SellerProfileHandler struct {
	Accounts *account.Service
	Orders   *orders.Service
	Notifier *realtime.Notifier
	Session  Session
}

func (h *SellerProfileHandler) Routes(r fiber.Router, auth fiber.Handler) {
	r.Post("/seller/become", auth, middleware.RequireVerified(h.Accounts), h.Become)
	r.Post("/user/switch-role", auth, h.SwitchRole)

	g := r.Group("/seller/profile")
	g.Get("/", auth, h.MyProfile)
	g.Patch("/setup", auth, h.Setup)
	g.Put("/setup", auth, h.Setup)
	g.Get("/completion", auth, h.Completion)
	g.Delete("/delete", auth, h.Delete)
	g.Get("/:userId", h.PublicProfile)
}

// ProfileView adds child counts to the stored profile.
type ProfileView struct {
	*models.SellerProfile
	Counts models.ProfileCounts `json:"counts"`
}

func view(p *models.SellerProfile) ProfileView {
	return ProfileView{SellerProfile: p, Counts: models.CountsOf(p)}
}

func (h *SellerProfileHandler) Become(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	u, p, err := h.Accounts.BecomeSeller(c.UserContext(), uid)
	if err != nil {
		return err
	}
	token, err := h.roleChanged(c, u)
	if err != nil {
		return err
	}
	log.Infof("user %s became a seller", u.ID)
	return ok(c, fiber.StatusOK, "You are now a seller", fiber.Map{
		"user":    u,
		"profile": view(p),
		"token":   token,
	})
}

type switchRoleReq struct {
	Role string `json:"role" validate:"required"`
}

func (h *SellerProfileHandler) SwitchRole(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	var req switchRoleReq
	if err := bind(c, &req); err != nil {
		return err
	}
	u, changed, err := h.Accounts.SwitchRole(c.UserContext(), uid, req.Role)
	if err != nil {
		return err
	}
	if !changed {
		return ok(c, fiber.StatusOK, "Already in "+string(u.CurrentRole)+" role", fiber.Map{"user": u, "changed": false})
	}
	token, err := h.roleChanged(c, u)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Switched to "+string(u.CurrentRole)+" role", fiber.Map{
		"user":    u,
		"changed": true,
		"token":   token,
	})
}

// roleChanged re-issues the session so the role claim follows the row,
// and tells the user's other tabs.
func (h *SellerProfileHandler) roleChanged(c *fiber.Ctx, u *models.User) (string, error) {
	token, err := h.Session.Issue(c, u)
	if err != nil {
		return "", err
	}
	h.Notifier.Notify(c.UserContext(), realtime.Event{
		Type: realtime.EventRoleChanged,
		Data: fiber.Map{"current_role": u.CurrentRole, "is_seller": u.IsSeller},
	}, u.ID)
	return token, nil
}

func (h *SellerProfileHandler) MyProfile(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	p, err := h.Accounts.SellerProfile(c.UserContext(), uid)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "OK", view(p))
}

func (h *SellerProfileHandler) Setup(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	in, err := decodeProfile(c)
	if err != nil {
		return err
	}
	p, err := h.Accounts.SetupProfile(c.UserContext(), uid, in)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Profile saved", view(p))
}

// decodeProfile takes JSON, or a multipart form when portfolio media is uploaded.
func decodeProfile(c *fiber.Ctx) (account.ProfileInput, error) {
	var in account.ProfileInput
	if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return in, apperr.Field("body", "Invalid multipart form")
		}
		return account.DecodeProfileForm(form)
	}
	if err := c.BodyParser(&in); err != nil {
		return in, apperr.Field("body", "Invalid request body")
	}
	return in, nil
}

func (h *SellerProfileHandler) Completion(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	comp, err := h.Accounts.Completion(c.UserContext(), uid)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "OK", comp)
}

func (h *SellerProfileHandler) Delete(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	u, err := h.Accounts.DeleteSellerProfile(c.UserContext(), uid)
	if err != nil {
		return err
	}
	if _, err := h.roleChanged(c, u); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// PublicProfile is readable without a session.
func (h *SellerProfileHandler) PublicProfile(c *fiber.Ctx) error {
	userID, err := paramUUID(c, "userId")
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	u, err := h.Accounts.User(ctx, userID)
	if err != nil {
		return err
	}
	p, err := h.Accounts.SellerProfile(ctx, userID)
	if err != nil {
		return err
	}
	ratings, err := h.Orders.SellerRatings(ctx, userID, c.QueryInt("ratings", 10))
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "OK", fiber.Map{
		"user": fiber.Map{
			"id":              u.ID,
			"username":        u.Username,
			"first_name":      u.FirstName,
			"last_name":       u.LastName,
			"profile_picture": u.ProfilePicture,
		},
		"profile": view(p),
		"ratings": ratings,
	})
}
