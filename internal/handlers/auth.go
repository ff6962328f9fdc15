package handlers

import (
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/mailer"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/middleware"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/models"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/services/account"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/storage"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/utils"
)

const (
	verifyTokenTTL = 24 * time.Hour
	resetTokenTTL  = time.Hour
)

// Session signs the role-bearing JWT and sets it as the jm_token cookie.
type Session struct {
	JWTSecret    string
	ExpiresMin   int
	CookieSecure bool
}

func (s Session) Issue(c *fiber.Ctx, u *models.User) (string, error) {
	token, err := utils.SignJWT(s.JWTSecret, u.ID.String(), string(u.CurrentRole), s.ExpiresMin)
	if err != nil {
		return "", apperr.Internal(err)
	}
	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   s.CookieSecure,
		SameSite: "Lax",
		MaxAge:   s.ExpiresMin * 60,
	})
	return token, nil
}

func (s Session) Clear(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.CookieSecure,
		SameSite: "Lax",
	})
}

type AuthHandler struct {
	Accounts        *account.Service
	Mailer          mailer.Mailer
	Storage         storage.Storage
	Session         Session
	FrontendBaseURL string
}

func (h *AuthHandler) Routes(r fiber.Router, auth fiber.Handler) {
	g := r.Group("/auth")
	g.Post("/register", h.Register)
	g.Post("/login", h.Login)
	g.Post("/logout", h.Logout)
	g.Post("/verify-email", h.VerifyEmail)
	g.Post("/resend-verification", auth, h.ResendVerification)
	g.Post("/password/forgot", h.ForgotPassword)
	g.Post("/password/reset", h.ResetPassword)

	me := r.Group("/me", auth)
	me.Get("/", h.Me)
	me.Patch("/", h.UpdateMe)
	me.Post("/picture", h.UploadPicture)
}

type RegisterReq struct {
	Username  string `json:"username" validate:"required,min=3,max=150"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterReq
	if err := bind(c, &req); err != nil {
		return err
	}

	u, err := h.Accounts.Register(c.UserContext(), account.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return err
	}
	h.sendVerification(u)

	token, err := h.Session.Issue(c, u)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, "Registration successful. Check your email to verify your address.", fiber.Map{
		"user":  u,
		"token": token,
	})
}

type LoginReq struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login accepts a username or an email in "login"; "email" is kept as an alias.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req struct {
		LoginReq
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return apperr.Field("body", "Invalid request body")
	}
	if req.Login == "" {
		req.Login = req.Email
	}
	if err := check(&req.LoginReq); err != nil {
		return err
	}

	u, err := h.Accounts.Authenticate(c.UserContext(), req.Login, req.Password)
	if err != nil {
		return err
	}
	token, err := h.Session.Issue(c, u)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Login successful", fiber.Map{"user": u, "token": token})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.Session.Clear(c)
	return ok(c, fiber.StatusOK, "Logged out", nil)
}

type tokenReq struct {
	Token string `json:"token" validate:"required"`
}

func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	var req tokenReq
	if err := bind(c, &req); err != nil {
		return err
	}
	claims, err := utils.ParseActionToken(h.Session.JWTSecret, req.Token, utils.PurposeVerifyEmail)
	if err != nil {
		return apperr.Field("token", "Verification link is invalid or has expired")
	}
	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return apperr.Field("token", "Verification link is invalid or has expired")
	}
	u, err := h.Accounts.VerifyEmail(c.UserContext(), uid, claims.Email)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Email verified", u)
}

func (h *AuthHandler) ResendVerification(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	u, err := h.Accounts.User(c.UserContext(), uid)
	if err != nil {
		return err
	}
	if u.IsEmailVerified {
		return ok(c, fiber.StatusOK, "Email is already verified", nil)
	}
	h.sendVerification(u)
	return ok(c, fiber.StatusOK, "Verification email sent", nil)
}

type forgotReq struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPassword answers the same way whether or not the email is known.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req forgotReq
	if err := bind(c, &req); err != nil {
		return err
	}
	const msg = "If that email is registered, a reset link is on its way"

	u, err := h.Accounts.UserByEmail(c.UserContext(), req.Email)
	if err != nil {
		if apperr.As(err).Kind == apperr.KindNotFound {
			return ok(c, fiber.StatusOK, msg, nil)
		}
		return err
	}
	token, err := utils.SignResetToken(h.Session.JWTSecret, u.ID.String(), u.Email, u.Password, resetTokenTTL)
	if err != nil {
		return apperr.Internal(err)
	}
	data := mailer.EmailData{Name: u.FullName(), ActionURL: h.link("/reset-password", token)}
	if err := h.Mailer.SendPasswordReset(u.Email, data); err != nil {
		log.Warnf("password reset mail to %s: %v", u.Email, err)
	}
	return ok(c, fiber.StatusOK, msg, nil)
}

type resetReq struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req resetReq
	if err := bind(c, &req); err != nil {
		return err
	}
	claims, err := utils.ParseActionToken(h.Session.JWTSecret, req.Token, utils.PurposeResetPassword)
	if err != nil {
		return apperr.Field("token", "Reset link is invalid or has expired")
	}
	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return apperr.Field("token", "Reset link is invalid or has expired")
	}
	if err := h.Accounts.ResetPassword(c.UserContext(), uid, claims.Email, claims.Stamp, req.Password); err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "Password updated", nil)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	u, err := h.Accounts.User(c.UserContext(), uid)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, "OK", u)
}

type updateMeReq struct {
	FirstName      *string `json:"first_name" validate:"omitempty,max=150"`
	LastName       *string `json:"last_name" validate:"omitempty,max=150"`
	Email          *string `json:"email" validate:"omitempty,email"`
	ProfilePicture *string `json:"profile_picture" validate:"omitempty,max=500"`
}

func (h *AuthHandler) UpdateMe(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	var req updateMeReq
	if err := bind(c, &req); err != nil {
		return err
	}
	return h.applyPatch(c, uid, account.UserPatch{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		ProfilePicture: req.ProfilePicture,
	})
}

func (h *AuthHandler) UploadPicture(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	fh, err := c.FormFile("profile_picture")
	if err != nil {
		return apperr.Field("profile_picture", "File is required")
	}
	if err := storage.ProfilePictureRule.Check("profile_picture", fh); err != nil {
		return err
	}
	pic, err := h.Storage.Save(c.UserContext(), "profile_pictures", fh)
	if err != nil {
		return apperr.Internal(err)
	}
	return h.applyPatch(c, uid, account.UserPatch{ProfilePicture: &pic})
}

func (h *AuthHandler) applyPatch(c *fiber.Ctx, uid uuid.UUID, p account.UserPatch) error {
	u, emailChanged, err := h.Accounts.UpdateUser(c.UserContext(), uid, p)
	if err != nil {
		return err
	}
	msg := "Profile updated"
	if emailChanged {
		h.sendVerification(u)
		msg = "Profile updated. Verify your new email address."
	}
	return ok(c, fiber.StatusOK, msg, u)
}

// sendVerification never fails the request; a lost mail can be re-sent.
func (h *AuthHandler) sendVerification(u *models.User) {
	token, err := utils.SignActionToken(h.Session.JWTSecret, u.ID.String(), u.Email, utils.PurposeVerifyEmail, verifyTokenTTL)
	if err != nil {
		log.Errorf("sign verification token for %s: %v", u.ID, err)
		return
	}
	data := mailer.EmailData{Name: u.FullName(), ActionURL: h.link("/verify-email", token)}
	if err := h.Mailer.SendVerification(u.Email, data); err != nil {
		log.Warnf("verification mail to %s: %v", u.Email, err)
	}
}

func (h *AuthHandler) link(path, token string) string {
	return h.FrontendBaseURL + path + "?token=" + url.QueryEscape(token)
}
