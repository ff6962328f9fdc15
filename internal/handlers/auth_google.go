package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/services/account"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type GoogleOAuthHandler struct {
	Accounts        *account.Service
	Session         Session
	GoogleClientID  string
	GoogleSecret    string
	GoogleRedirect  string
	FrontendBaseURL string

	// UserInfoURL overrides the Google endpoint in tests.
	UserInfoURL string
}

func (h *GoogleOAuthHandler) Routes(r fiber.Router) {
	g := r.Group("/auth/google")
	g.Get("/start", h.GoogleStart)
	g.Get("/callback", h.GoogleCallback)
}

func (h *GoogleOAuthHandler) oauthCfg() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.GoogleClientID,
		ClientSecret: h.GoogleSecret,
		RedirectURL:  h.GoogleRedirect,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"openid", "email", "profile"},
	}
}

func randomState(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (h *GoogleOAuthHandler) shortCookie(c *fiber.Ctx, name, value string, maxAge int) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.Session.CookieSecure,
		SameSite: "Lax",
		MaxAge:   maxAge,
	})
}

func (h *GoogleOAuthHandler) GoogleStart(c *fiber.Ctx) error {
	if h.GoogleClientID == "" {
		return fiber.NewError(fiber.StatusNotFound, "Google login is not configured")
	}
	st, err := randomState(32)
	if err != nil {
		log.Errorf("google oauth state: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to start Google login")
	}
	h.shortCookie(c, "oauth_state", st, 10*60)
	h.shortCookie(c, "oauth_next", safeNext(c.Query("next", "/")), 10*60)

	return c.Redirect(h.oauthCfg().AuthCodeURL(st, oauth2.AccessTypeOffline), http.StatusTemporaryRedirect)
}

type googleUserInfo struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

func (h *GoogleOAuthHandler) GoogleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing code/state")
	}
	if st := c.Cookies("oauth_state"); st == "" || st != state {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid state")
	}
	next := safeNext(c.Cookies("oauth_next"))

	tok, err := h.oauthCfg().Exchange(c.UserContext(), code)
	if err != nil {
		log.Warnf("google oauth exchange: %v", err)
		return fiber.NewError(fiber.StatusBadRequest, "Failed to exchange code")
	}

	gu, err := h.fetchUserInfo(tok.AccessToken)
	if err != nil {
		log.Warnf("google userinfo: %v", err)
		return fiber.NewError(fiber.StatusBadGateway, "Failed to fetch Google profile")
	}

	u, err := h.Accounts.GoogleLogin(c.UserContext(), account.GoogleProfile{
		Email:         gu.Email,
		VerifiedEmail: gu.VerifiedEmail,
		FirstName:     gu.GivenName,
		LastName:      gu.FamilyName,
		Picture:       gu.Picture,
	})
	if err != nil {
		return c.Redirect(h.FrontendBaseURL+"/auth/login?err="+url.QueryEscape(err.Error()), http.StatusTemporaryRedirect)
	}

	if _, err := h.Session.Issue(c, u); err != nil {
		return err
	}
	h.shortCookie(c, "oauth_state", "", -1)
	h.shortCookie(c, "oauth_next", "", -1)

	return c.Redirect(h.FrontendBaseURL+next, http.StatusTemporaryRedirect)
}

func (h *GoogleOAuthHandler) fetchUserInfo(accessToken string) (*googleUserInfo, error) {
	endpoint := h.UserInfoURL
	if endpoint == "" {
		endpoint = googleUserInfoURL
	}
	var gu googleUserInfo
	resp, err := resty.New().SetTimeout(10 * time.Second).
		R().
		SetAuthToken(accessToken).
		SetHeader("Accept", "application/json").
		SetResult(&gu).
		Get(endpoint)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("userinfo status %d: %s", resp.StatusCode(), resp.String())
	}
	return &gu, nil
}

// safeNext keeps redirects on the frontend origin.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}
