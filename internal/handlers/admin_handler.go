package handlers

import (
	"errors"
	"log/slog"

	"z7shop/internal/middleware"
	"z7shop/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AdminHandler handles user administration requests.
type AdminHandler struct {
	adminService *services.AdminService
	auth         middleware.SessionResolver
	validate     *validator.Validate
	logger       *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(adminService *services.AdminService, auth middleware.SessionResolver, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		auth:         auth,
		validate:     newValidator(),
		logger:       logger,
	}
}

// RegisterRoutes registers the admin routes.
func (h *AdminHandler) RegisterRoutes(router fiber.Router) {
	adminRoutes := router.Group("/admin", middleware.RequireSession(h.auth), middleware.RequireAdmin())
	adminRoutes.Get("/users", h.HandleListUsers)
	adminRoutes.Patch("/users/:id/toggle-admin", h.HandleToggleAdmin)
}

// HandleListUsers returns every account without credentials.
func (h *AdminHandler) HandleListUsers(c *fiber.Ctx) error {
	users, err := h.adminService.ListUsers(c.UserContext())
	if err != nil {
		return internalError(c, h.logger, "failed to list users", err)
	}

	resp := make([]adminUserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, adminUserResponse{
			ID:           u.ID,
			Email:        u.Email,
			FirstName:    u.FirstName,
			LastName:     u.LastName,
			IsAdmin:      u.IsAdmin,
			IsSuperAdmin: u.IsSuperAdmin,
			CreatedAt:    u.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"users": resp})
}

type toggleAdminRequest struct {
	IsAdmin *bool `json:"isAdmin" validate:"required"`
}

// HandleToggleAdmin grants or revokes admin rights.
func (h *AdminHandler) HandleToggleAdmin(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid user ID")
	}

	var req toggleAdminRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}

	err = h.adminService.ToggleAdmin(c.UserContext(), middleware.CurrentUser(c), uint(id), *req.IsAdmin)
	switch {
	case errors.Is(err, services.ErrSelfDemotion):
		return errorJSON(c, fiber.StatusBadRequest, "Cannot remove admin privileges from yourself")
	case errors.Is(err, services.ErrSuperAdminDemotion):
		return errorJSON(c, fiber.StatusBadRequest, "Cannot remove admin privileges from super admin accounts")
	case errors.Is(err, services.ErrUserNotFound):
		return errorJSON(c, fiber.StatusNotFound, "User not found")
	case err != nil:
		return internalError(c, h.logger, "failed to toggle admin", err)
	}

	msg := "User is no longer an admin"
	if *req.IsAdmin {
		msg = "User is now an admin"
	}
	return c.JSON(fiber.Map{"success": true, "message": msg})
}
