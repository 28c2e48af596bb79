package handlers

import (
	"context"
	"log/slog"
	"time"

	"z7shop/internal/middleware"
	"z7shop/internal/services"

	"github.com/gofiber/fiber/v2"
)

// DashboardHandler serves admin dashboard statistics.
type DashboardHandler struct {
	dashboard *services.DashboardService
	auth      middleware.SessionResolver
	logger    *slog.Logger
}

func NewDashboardHandler(dashboard *services.DashboardService, auth middleware.SessionResolver, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, auth: auth, logger: logger}
}

func (h *DashboardHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/dashboard/stats", middleware.RequireSession(h.auth), middleware.RequireAdmin(), h.HandleStats)
}

func (h *DashboardHandler) HandleStats(c *fiber.Ctx) error {
	stats, err := h.dashboard.Stats(c.UserContext())
	if err != nil {
		return internalError(c, h.logger, "failed to compute dashboard stats", err)
	}
	return c.JSON(newStatsResponse(stats))
}

// HealthHandler reports liveness and database reachability.
type HealthHandler struct {
	ping func(ctx context.Context) error
	now  func() time.Time
}

// NewHealthHandler creates a HealthHandler; ping checks the database.
func NewHealthHandler(ping func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{ping: ping, now: time.Now}
}

func (h *HealthHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/health", h.HandleHealth)
}

// HandleHealth always answers 200 so the process counts as alive; the
// database state is reported in the body.
func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	db := "up"
	if err := h.ping(ctx); err != nil {
		db = "down"
	}
	return c.JSON(fiber.Map{
		"status":   "healthy",
		"time":     h.now().UTC().Format(time.RFC3339),
		"database": db,
	})
}
