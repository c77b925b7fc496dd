package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jansteinbacher/stock-dashboard/internal/middleware"
	"github.com/jansteinbacher/stock-dashboard/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func setupAuthTest(t *testing.T) (*fiber.App, *gorm.DB, *miniredis.Miniredis) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := middleware.SessionConfig{Secret: "test-secret"}
	h := &Handlers{
		UserFinder: &GormUserFinder{DB: db},
		Rdb:        rdb,
		Config:     cfg,
	}

	app := fiber.New()
	app.Use(middleware.SessionWithClient(cfg, rdb))
	app.Post("/api/v1/auth/login", h.Login)
	app.Get("/api/v1/auth/me", h.Me)
	app.Delete("/api/v1/auth/logout", h.Logout)
	return app, db, mr
}

func createUser(t *testing.T, db *gorm.DB, email, password string) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)
	u := models.User{Fullname: "Jan Tester", Email: email, PasswordHash: string(hash)}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func login(t *testing.T, app *fiber.App, email, password string) *http.Response {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestLogin_Success(t *testing.T) {
	app, db, _ := setupAuthTest(t)
	createUser(t, db, "jan@example.com", "s3cret!pw1")

	resp := login(t, app, "jan@example.com", "s3cret!pw1")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Contains(t, cookie.Value, "s:")
}

func TestLogin_WrongPassword(t *testing.T) {
	app, db, _ := setupAuthTest(t)
	createUser(t, db, "jan@example.com", "s3cret!pw1")

	resp := login(t, app, "jan@example.com", "wrong")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestLogin_UnknownEmail(t *testing.T) {
	app, _, _ := setupAuthTest(t)

	resp := login(t, app, "nobody@example.com", "whatever1!")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestLogin_MissingFields(t *testing.T) {
	app, _, _ := setupAuthTest(t)

	resp := login(t, app, "", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestMe_WithoutSession(t *testing.T) {
	app, _, _ := setupAuthTest(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/auth/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

// Full round-trip: login sets the cookie, the session middleware loads the
// user from Redis on the next request.
func TestMe_AfterLogin(t *testing.T) {
	app, db, _ := setupAuthTest(t)
	u := createUser(t, db, "jan@example.com", "s3cret!pw1")

	resp := login(t, app, "jan@example.com", "s3cret!pw1")
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)

	req := httptest.NewRequest("GET", "/api/v1/auth/me", nil)
	req.AddCookie(cookie)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data struct {
			User SessionUserShape `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, u.UserID.String(), body.Data.User.UserID)
	assert.Equal(t, "jan@example.com", body.Data.User.Email)
}

type cleanerRecorder struct {
	dropped []string
}

func (r *cleanerRecorder) Drop(sessionID string) {
	r.dropped = append(r.dropped, sessionID)
}

// Logout must release per-session state held outside Redis, keyed by the
// session ID the cookie carried.
func TestLogout_DropsSessionState(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := middleware.SessionConfig{Secret: "test-secret"}
	cleaner := &cleanerRecorder{}
	h := &Handlers{
		UserFinder: &GormUserFinder{DB: db},
		Rdb:        rdb,
		Config:     cfg,
		Cleaner:    cleaner,
	}

	app := fiber.New()
	app.Use(middleware.SessionWithClient(cfg, rdb))
	app.Post("/api/v1/auth/login", h.Login)
	app.Delete("/api/v1/auth/logout", h.Logout)

	createUser(t, db, "jan@example.com", "s3cret!pw1")
	resp := login(t, app, "jan@example.com", "s3cret!pw1")
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	sessionID := strings.TrimPrefix(cookie.Value, "s:")

	req := httptest.NewRequest("DELETE", "/api/v1/auth/logout", nil)
	req.AddCookie(cookie)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Contains(t, cleaner.dropped, sessionID)
}

func TestLogout_DestroysSession(t *testing.T) {
	app, db, mr := setupAuthTest(t)
	createUser(t, db, "jan@example.com", "s3cret!pw1")

	resp := login(t, app, "jan@example.com", "s3cret!pw1")
	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)

	req := httptest.NewRequest("DELETE", "/api/v1/auth/logout", nil)
	req.AddCookie(cookie)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Session key gone from Redis; /me is 401 again.
	assert.Empty(t, mr.Keys())

	req = httptest.NewRequest("GET", "/api/v1/auth/me", nil)
	req.AddCookie(cookie)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
