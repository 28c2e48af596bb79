package middleware

import (
	"context"
	"errors"
	"log/slog"

	"z7shop/internal/models"
	"z7shop/internal/services"

	"github.com/gofiber/fiber/v2"
)

// SessionCookie is the name of the cookie carrying the session token.
const SessionCookie = "auth_session"

const userLocal = "user"

// SessionResolver maps a session token to its user.
type SessionResolver interface {
	CurrentUser(ctx context.Context, token string) (*models.User, error)
}

// RequireSession rejects requests without a valid session cookie and stores
// the authenticated user in the request locals.
func RequireSession(auth SessionResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := auth.CurrentUser(c.UserContext(), c.Cookies(SessionCookie))
		switch {
		case errors.Is(err, services.ErrNoSession):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated"})
		case errors.Is(err, services.ErrInvalidSession):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Session expired or invalid"})
		case err != nil:
			slog.Error("session lookup failed", slog.Any("error", err), slog.Any("request_id", c.Locals("requestid")))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "An unexpected error occurred"})
		}

		c.Locals(userLocal, user)
		return c.Next()
	}
}

// OptionalSession attaches the user when a valid session cookie is present
// and lets every request through.
func OptionalSession(auth SessionResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(SessionCookie)
		if token == "" {
			return c.Next()
		}
		user, err := auth.CurrentUser(c.UserContext(), token)
		if err == nil {
			c.Locals(userLocal, user)
		} else if !errors.Is(err, services.ErrInvalidSession) {
			slog.Warn("optional session lookup failed", slog.Any("error", err))
		}
		return c.Next()
	}
}

// RequireAdmin must run after RequireSession.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Unauthorized"})
		}
		return c.Next()
	}
}

// CurrentUser returns the authenticated user of the request, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userLocal).(*models.User)
	return user
}
