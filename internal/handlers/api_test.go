package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/gigmarket/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/mailer"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/middleware"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/models"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/services/account"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/services/earnings"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/services/orders"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/storage"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/testutil"
	"github.com/Windi-Fikriyansyah/gigmarket/internal/utils"
)

const testSecret = "handler-secret"

type outbox struct {
	mu    sync.Mutex
	links map[string]string
}

func (o *outbox) SendVerification(to string, data mailer.EmailData) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.links[to] = data.ActionURL
	return nil
}

func (o *outbox) SendPasswordReset(to string, data mailer.EmailData) error {
	return o.SendVerification(to, data)
}

func (o *outbox) token(t *testing.T, email string) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	u, err := url.Parse(o.links[email])
	require.NoError(t, err)
	tok := u.Query().Get("token")
	require.NotEmpty(t, tok, "no mail for %s", email)
	return tok
}

func apiApp(t *testing.T, gdb *gorm.DB) (*fiber.App, *outbox) {
	t.Helper()
	mail := &outbox{links: map[string]string{}}
	accounts := account.NewService(gdb, models.DefaultCompletenessRules, storage.NewLocal(t.TempDir(), "/uploads"))
	ledger := earnings.NewService(gdb)
	session := Session{JWTSecret: testSecret, ExpiresMin: 10}

	app := newApp()
	api := app.Group("/api")
	auth := middleware.Auth(testSecret)
	(&AuthHandler{Accounts: accounts, Mailer: mail, Session: session, FrontendBaseURL: "http://front"}).Routes(api, auth)
	(&SellerProfileHandler{
		Accounts: accounts,
		Orders:   orders.NewService(gdb, ledger, nil, nil),
		Session:  session,
	}).Routes(api, auth)
	NewSellerDashboardHandler(ledger).Routes(api, auth, middleware.RequireRoles(string(models.RoleSeller)))
	return app, mail
}

func call(t *testing.T, app *fiber.App, method, path, token, body string) envelope {
	t.Helper()
	env, _ := callStatus(t, app, method, path, token, body)
	return env
}

func callStatus(t *testing.T, app *fiber.App, method, path, token, body string) (envelope, int) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	if resp.StatusCode == fiber.StatusNoContent {
		resp.Body.Close()
		return envelope{Success: true}, resp.StatusCode
	}
	return decode(t, resp), resp.StatusCode
}

type authData struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

func TestBecomeSellerFlow(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	app, mail := apiApp(t, gdb)

	env, status := callStatus(t, app, http.MethodPost, "/api/auth/register", "",
		`{"username":"amelia","email":"amelia@example.com","password":"supersecret"}`)
	require.Equal(t, 201, status, env.Message)
	var reg authData
	require.NoError(t, json.Unmarshal(env.Data, &reg))
	assert.Equal(t, models.RoleBuyer, reg.User.CurrentRole)
	assert.False(t, reg.User.IsEmailVerified)

	// Unverified users cannot become sellers.
	env, status = callStatus(t, app, http.MethodPost, "/api/seller/become/", reg.Token, "")
	assert.Equal(t, 403, status)
	assert.Equal(t, apperr.CodeUnverified, env.Code)

	_, status = callStatus(t, app, http.MethodPost, "/api/auth/verify-email", "",
		`{"token":"`+mail.token(t, "amelia@example.com")+`"}`)
	require.Equal(t, 200, status)

	env, status = callStatus(t, app, http.MethodPost, "/api/seller/become/", reg.Token, "")
	require.Equal(t, 200, status, env.Message)
	var became authData
	require.NoError(t, json.Unmarshal(env.Data, &became))
	assert.True(t, became.User.IsSeller)
	assert.Equal(t, models.RoleSeller, became.User.CurrentRole)
	require.NotEmpty(t, became.Token)

	env, status = callStatus(t, app, http.MethodPost, "/api/seller/become/", became.Token, "")
	assert.Equal(t, 400, status)
	assert.Equal(t, apperr.CodeAlreadySeller, env.Code)

	env = call(t, app, http.MethodPatch, "/api/seller/profile/setup/", became.Token, `{"profile_title":"Logo"}`)
	require.True(t, env.Success, env.Message)

	env = call(t, app, http.MethodGet, "/api/seller/profile/completion/", became.Token, "")
	var comp account.Completion
	require.NoError(t, json.Unmarshal(env.Data, &comp))
	assert.False(t, comp.IsComplete)
	assert.Contains(t, comp.MissingFields, "profile_title")

	_, status = callStatus(t, app, http.MethodGet, "/api/seller/dashboard", became.Token, "")
	assert.Equal(t, 200, status)

	env, status = callStatus(t, app, http.MethodPost, "/api/user/switch-role/", became.Token, `{"role":"buyer"}`)
	require.Equal(t, 200, status, env.Message)
	var switched authData
	require.NoError(t, json.Unmarshal(env.Data, &switched))
	assert.Equal(t, models.RoleBuyer, switched.User.CurrentRole)

	// The re-issued token carries the buyer role.
	_, status = callStatus(t, app, http.MethodGet, "/api/seller/dashboard", switched.Token, "")
	assert.Equal(t, 403, status)

	env, status = callStatus(t, app, http.MethodPost, "/api/user/switch-role/", switched.Token, `{"role":"admin"}`)
	assert.Equal(t, 400, status)
	assert.Equal(t, apperr.CodeValidation, env.Code)
}

func TestSellerProfileDeleteAndPublicView(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	app, _ := apiApp(t, gdb)
	seller, _ := testutil.NewSeller(t, gdb)

	env, status := callStatus(t, app, http.MethodGet, "/api/seller/profile/"+seller.ID.String(), "", "")
	require.Equal(t, 200, status, env.Message)

	env = call(t, app, http.MethodPost, "/api/auth/login", "", `{"login":"`+seller.Username+`","password":"x"}`)
	assert.False(t, env.Success, "fixture passwords are not bcrypt hashes")

	tok, err := utils.SignJWT(testSecret, seller.ID.String(), string(seller.CurrentRole), 10)
	require.NoError(t, err)

	_, status = callStatus(t, app, http.MethodDelete, "/api/seller/profile/delete/", tok, "")
	assert.Equal(t, 204, status)

	env, status = callStatus(t, app, http.MethodGet, "/api/seller/profile/", tok, "")
	assert.Equal(t, 404, status)
	assert.Equal(t, apperr.CodeNotFound, env.Code)

	var u models.User
	require.NoError(t, gdb.First(&u, "id = ?", seller.ID).Error)
	assert.False(t, u.IsSeller)
	assert.Equal(t, models.RoleBuyer, u.CurrentRole)
}

func TestLoginByEmailOrUsername(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	app, _ := apiApp(t, gdb)

	_, status := callStatus(t, app, http.MethodPost, "/api/auth/register", "",
		`{"username":"bruno","email":"bruno@example.com","password":"supersecret"}`)
	require.Equal(t, 201, status)

	_, status = callStatus(t, app, http.MethodPost, "/api/auth/login", "", `{"login":"bruno","password":"supersecret"}`)
	assert.Equal(t, 200, status)
	_, status = callStatus(t, app, http.MethodPost, "/api/auth/login", "", `{"email":"bruno@example.com","password":"supersecret"}`)
	assert.Equal(t, 200, status)
	_, status = callStatus(t, app, http.MethodPost, "/api/auth/login", "", `{"login":"bruno","password":"wrong-password"}`)
	assert.Equal(t, 401, status)

	_, status = callStatus(t, app, http.MethodPost, "/api/auth/register", "",
		`{"username":"bruno","email":"other@example.com","password":"supersecret"}`)
	assert.Equal(t, 409, status)
}

func TestPasswordResetLinkWorksOnce(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	app, mail := apiApp(t, gdb)

	_, status := callStatus(t, app, http.MethodPost, "/api/auth/register", "",
		`{"username":"carla","email":"carla@example.com","password":"supersecret"}`)
	require.Equal(t, 201, status)

	_, status = callStatus(t, app, http.MethodPost, "/api/auth/password/forgot", "", `{"email":"carla@example.com"}`)
	require.Equal(t, 200, status)
	tok := mail.token(t, "carla@example.com")

	reset := `{"token":"` + tok + `","password":"brand-new-pass"}`
	env, status := callStatus(t, app, http.MethodPost, "/api/auth/password/reset", "", reset)
	require.Equal(t, 200, status, env.Message)

	env, status = callStatus(t, app, http.MethodPost, "/api/auth/password/reset", "", reset)
	assert.Equal(t, 400, status)
	assert.Contains(t, env.Errors, "token")

	_, status = callStatus(t, app, http.MethodPost, "/api/auth/login", "", `{"login":"carla","password":"brand-new-pass"}`)
	assert.Equal(t, 200, status)
}

func TestCompletionForbiddenForBuyers(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	app, _ := apiApp(t, gdb)
	buyer := testutil.NewUser(t, gdb)

	tok, err := utils.SignJWT(testSecret, buyer.ID.String(), string(buyer.CurrentRole), 10)
	require.NoError(t, err)

	env, status := callStatus(t, app, http.MethodGet, "/api/seller/profile/completion/", tok, "")
	assert.Equal(t, 403, status)
	assert.Equal(t, apperr.CodeNotASeller, env.Code)
}

func TestSetupProfileUploadsPortfolioMedia(t *testing.T) {
	gdb := testutil.SetupTestDB(t)
	app, _ := apiApp(t, gdb)
	seller, _ := testutil.NewSeller(t, gdb)
	tok, err := utils.SignJWT(testSecret, seller.ID.String(), string(seller.CurrentRole), 10)
	require.NoError(t, err)

	send := func(items string, files map[string]string) (envelope, int) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		require.NoError(t, w.WriteField("portfolio_items", items))
		for field, name := range files {
			part, err := w.CreateFormFile(field, name)
			require.NoError(t, err)
			_, err = part.Write([]byte("content"))
			require.NoError(t, err)
		}
		require.NoError(t, w.Close())

		req := httptest.NewRequest(http.MethodPatch, "/api/seller/profile/setup/", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+tok)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return decode(t, resp), resp.StatusCode
	}
	item := `[{"title":"Brand kit","description":"Logo and palette for a bakery"}]`

	env, status := send(item, map[string]string{"portfolio_items[0].media": "kit.png"})
	require.Equal(t, 200, status, env.Message)
	var p models.SellerProfile
	require.NoError(t, json.Unmarshal(env.Data, &p))
	require.Len(t, p.PortfolioItems, 1)
	stored := p.PortfolioItems[0].MediaFile
	assert.True(t, strings.HasPrefix(stored, "/uploads/portfolio/"), stored)
	assert.True(t, strings.HasSuffix(stored, ".png"), stored)

	// Re-sending the stored media keeps it without a new upload.
	kept := `[{"title":"Brand kit","description":"Logo and palette for a bakery","media_file":"` + stored + `"}]`
	_, status = send(kept, nil)
	assert.Equal(t, 200, status)

	env, status = send(item, map[string]string{"portfolio_items[0].media": "setup.exe"})
	assert.Equal(t, 400, status)
	assert.Contains(t, env.Errors, "portfolio_items[0].media")

	forged := `[{"title":"Brand kit","description":"Logo and palette for a bakery","media_file":"/uploads/portfolio/someone-else.png"}]`
	env, status = send(forged, nil)
	assert.Equal(t, 400, status)
	assert.Contains(t, env.Errors, "portfolio_items[0].media_file")

	env, status = send(`[{"title":"Brand kit","description":"Logo and palette for a bakery","media_file":"../../../etc/passwd.exe"}]`, nil)
	assert.Equal(t, 400, status)
	assert.Contains(t, env.Errors, "portfolio_items[0].media_file")
}
