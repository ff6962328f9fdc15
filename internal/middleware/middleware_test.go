package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/models"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/utils"
)

const secret = "test-secret"

func token(t *testing.T, id uuid.UUID, role string) string {
	t.Helper()
	tok, err := utils.SignJWT(secret, id.String(), role, 5)
	require.NoError(t, err)
	return tok
}

func echoApp(mw ...fiber.Handler) *fiber.App {
	app := fiber.New()
	handlers := append(mw, func(c *fiber.Ctx) error {
		return c.SendString(UserID(c).String() + "|" + c.Locals("role").(string))
	})
	app.Get("/", handlers...)
	return app
}

func TestAuthTokenSources(t *testing.T) {
	id := uuid.New()
	tok := token(t, id, "seller")
	app := echoApp(Auth(secret))

	cases := map[string]func(r *http.Request){
		"cookie": func(r *http.Request) { r.Header.Set("Cookie", CookieName+"="+tok) },
		"bearer": func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) },
		"query":  func(r *http.Request) { r.URL.RawQuery = "token=" + tok },
	}
	for name, set := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			set(req)
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		})
	}
}

func TestAuthRejects(t *testing.T) {
	app := echoApp(Auth(secret))

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	bad, err := utils.SignJWT("other-secret", uuid.NewString(), "buyer", 5)
	require.NoError(t, err)
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+bad)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestOptionalJWTLetsAnonymousThrough(t *testing.T) {
	app := fiber.New()
	app.Get("/", OptionalJWT(secret), AttachJWTLocals(), func(c *fiber.Ctx) error {
		return c.SendString(UserID(c).String())
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/?token=garbage", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequireRoles(t *testing.T) {
	app := echoApp(Auth(secret), RequireRoles("seller"))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, uuid.New(), "buyer"))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, uuid.New(), "SELLER"))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

type stubUsers map[uuid.UUID]*models.User

func (s stubUsers) User(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, apperr.NotFound("user")
}

func TestRequireStaffAndVerified(t *testing.T) {
	staff := &models.User{ID: uuid.New(), IsStaff: true, IsActive: true}
	plain := &models.User{ID: uuid.New(), IsActive: true}
	users := stubUsers{staff.ID: staff, plain.ID: plain}

	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		if e, ok := err.(*fiber.Error); ok {
			return c.SendStatus(e.Code)
		}
		if apperr.As(err).Kind == apperr.KindPermission {
			return c.SendStatus(fiber.StatusForbidden)
		}
		return c.SendStatus(fiber.StatusInternalServerError)
	}})
	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	app.Get("/staff", Auth(secret), RequireStaff(users), ok)
	app.Get("/verified", Auth(secret), RequireVerified(users), ok)

	cases := []struct {
		path string
		user uuid.UUID
		want int
	}{
		{"/staff", staff.ID, fiber.StatusOK},
		{"/staff", plain.ID, fiber.StatusForbidden},
		{"/staff", uuid.New(), fiber.StatusUnauthorized},
		{"/verified", plain.ID, fiber.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("GET", tc.path, nil)
		req.Header.Set("Authorization", "Bearer "+token(t, tc.user, "buyer"))
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, tc.want, resp.StatusCode, tc.path)
	}
}
