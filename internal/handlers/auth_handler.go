package handlers

import (
	"errors"
	"log/slog"
	"time"

	"z7shop/internal/middleware"
	"z7shop/internal/models"
	"z7shop/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CookieConfig controls the attributes of the session cookie.
type CookieConfig struct {
	Secure bool
	TTL    time.Duration
}

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	cookie      CookieConfig
	limiter     fiber.Handler
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewAuthHandler creates a new AuthHandler. limiter guards the credential
// endpoints and may be nil.
func NewAuthHandler(authService *services.AuthService, cookie CookieConfig, limiter fiber.Handler, logger *slog.Logger) *AuthHandler {
	if limiter == nil {
		limiter = func(c *fiber.Ctx) error { return c.Next() }
	}
	return &AuthHandler{
		authService: authService,
		cookie:      cookie,
		limiter:     limiter,
		validate:    newValidator(),
		logger:      logger,
	}
}

// RegisterRoutes registers the authentication routes.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/signup", h.limiter, h.HandleSignup)
	authRoutes.Post("/login", h.limiter, h.HandleLogin)
	authRoutes.Post("/logout", h.HandleLogout)
	authRoutes.Get("/me", middleware.RequireSession(h.authService), h.HandleMe)
	authRoutes.Get("/verify-session", h.HandleVerifySession)
	authRoutes.Post("/request-reset", h.limiter, h.HandleRequestReset)
	authRoutes.Post("/reset-password", h.limiter, h.HandleResetPassword)
}

type signupRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=8"`
	FirstName *string `json:"firstName" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,max=100"`
}

// HandleSignup creates an account and logs it in.
func (h *AuthHandler) HandleSignup(c *fiber.Ctx) error {
	var req signupRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}

	user, session, err := h.authService.Signup(c.UserContext(), services.SignupInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			return errorJSON(c, fiber.StatusBadRequest, "Email is already registered")
		}
		return internalError(c, h.logger, "signup failed", err)
	}

	h.setSessionCookie(c, session)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"user":    newUserResponse(user, false),
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin checks credentials and issues a session cookie.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}

	user, session, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return errorJSON(c, fiber.StatusUnauthorized, "Invalid email or password")
		}
		return internalError(c, h.logger, "login failed", err)
	}

	h.setSessionCookie(c, session)
	return c.JSON(fiber.Map{
		"success": true,
		"user":    newUserResponse(user, false),
	})
}

// HandleLogout deletes the session and clears the cookie.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	if err := h.authService.Logout(c.UserContext(), c.Cookies(middleware.SessionCookie)); err != nil {
		return internalError(c, h.logger, "logout failed", err)
	}
	h.clearSessionCookie(c)
	return c.JSON(fiber.Map{"success": true})
}

// HandleMe returns the authenticated user.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	return c.JSON(newUserResponse(middleware.CurrentUser(c), true))
}

// HandleVerifySession is HandleMe with its own error wording, used by page guards.
func (h *AuthHandler) HandleVerifySession(c *fiber.Ctx) error {
	user, err := h.authService.CurrentUser(c.UserContext(), c.Cookies(middleware.SessionCookie))
	switch {
	case errors.Is(err, services.ErrNoSession):
		return errorJSON(c, fiber.StatusUnauthorized, "Not authenticated")
	case errors.Is(err, services.ErrInvalidSession):
		return errorJSON(c, fiber.StatusUnauthorized, "Invalid session")
	case err != nil:
		return internalError(c, h.logger, "verify session failed", err)
	}
	return c.JSON(newUserResponse(user, true))
}

type requestResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// HandleRequestReset mails a reset link. It answers the same for unknown addresses.
func (h *AuthHandler) HandleRequestReset(c *fiber.Ctx) error {
	var req requestResetRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}
	if err := h.authService.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return internalError(c, h.logger, "password reset request failed", err)
	}
	return c.JSON(fiber.Map{"success": true})
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// HandleResetPassword sets a new password from a reset token.
func (h *AuthHandler) HandleResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}
	if err := h.authService.ResetPassword(c.UserContext(), req.Token, req.Password); err != nil {
		if errors.Is(err, services.ErrInvalidResetToken) {
			return errorJSON(c, fiber.StatusBadRequest, "Invalid or expired token")
		}
		return internalError(c, h.logger, "password reset failed", err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *AuthHandler) setSessionCookie(c *fiber.Ctx, session *models.Session) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(h.cookie.TTL.Seconds()),
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
