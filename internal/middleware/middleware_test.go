package middleware

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"z7shop/internal/models"
	"z7shop/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type stubResolver map[string]*models.User

func (s stubResolver) CurrentUser(_ context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, services.ErrNoSession
	}
	if u, ok := s[token]; ok {
		return u, nil
	}
	return nil, services.ErrInvalidSession
}

func newTestApp() *fiber.App {
	resolver := stubResolver{
		"customer": {ID: 1, Email: "c@example.com"},
		"admin":    {ID: 2, Email: "a@example.com", IsAdmin: true},
	}
	app := fiber.New()
	app.Get("/me", RequireSession(resolver), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"id": CurrentUser(c).ID})
	})
	app.Get("/admin", RequireSession(resolver), RequireAdmin(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/maybe", OptionalSession(resolver), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"guest": CurrentUser(c) == nil})
	})
	return app
}

func get(t *testing.T, app *fiber.App, path, token string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Cookie", SessionCookie+"="+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp.StatusCode, body
}

func TestRequireSession(t *testing.T) {
	app := newTestApp()

	status, body := get(t, app, "/me", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Not authenticated", body["error"])

	status, body = get(t, app, "/me", "stale")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Session expired or invalid", body["error"])

	status, body = get(t, app, "/me", "customer")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(1), body["id"])
}

func TestRequireAdmin(t *testing.T) {
	app := newTestApp()

	status, body := get(t, app, "/admin", "customer")
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "Unauthorized", body["error"])

	status, _ = get(t, app, "/admin", "admin")
	assert.Equal(t, fiber.StatusOK, status)
}

func TestOptionalSession(t *testing.T) {
	app := newTestApp()

	_, body := get(t, app, "/maybe", "")
	assert.Equal(t, true, body["guest"])
	_, body = get(t, app, "/maybe", "stale")
	assert.Equal(t, true, body["guest"])
	_, body = get(t, app, "/maybe", "customer")
	assert.Equal(t, false, body["guest"])
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: rate.Every(time.Minute), Burst: 2})
	defer rl.Stop()

	app := fiber.New()
	app.Post("/login", rl.Handler(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("POST", "/login", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest("POST", "/login", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 1, CleanupInterval: time.Minute})
	defer rl.Stop()

	rl.allow("10.0.0.1")
	require.Equal(t, 1, rl.Len())

	rl.cleanup(time.Now().Add(time.Minute))
	assert.Equal(t, 1, rl.Len())

	rl.cleanup(time.Now().Add(3 * time.Minute))
	assert.Equal(t, 0, rl.Len())
}
