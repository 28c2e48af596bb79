package handlers

import (
	"errors"
	"log/slog"

	"z7shop/internal/middleware"
	"z7shop/internal/models"
	"z7shop/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for customer and admin order views.
type OrderHandler struct {
	orderService *services.OrderService
	auth         middleware.SessionResolver
	validate     *validator.Validate
	logger       *slog.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderService *services.OrderService, auth middleware.SessionResolver, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		auth:         auth,
		validate:     newValidator(),
		logger:       logger,
	}
}

// RegisterRoutes registers the order routes. Admin routes come first so
// "admin" is never parsed as an order id.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders", middleware.RequireSession(h.auth))

	adminRoutes := orderRoutes.Group("/admin", middleware.RequireAdmin())
	adminRoutes.Get("/", h.HandleListAll)
	adminRoutes.Put("/:id/update-status", h.HandleUpdateStatus)

	orderRoutes.Get("/", h.HandleListMine)
	orderRoutes.Get("/:id", h.HandleGet)
}

// HandleListMine returns the caller's orders, newest first.
func (h *OrderHandler) HandleListMine(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	orders, err := h.orderService.ListMyOrders(c.UserContext(), user.ID)
	if err != nil {
		return internalError(c, h.logger, "failed to list orders", err)
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, newOrderResponse(&orders[i]))
	}
	return c.JSON(resp)
}

// HandleGet returns one order to its owner or an admin.
func (h *OrderHandler) HandleGet(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid order ID")
	}

	order, err := h.orderService.GetOrder(c.UserContext(), middleware.CurrentUser(c), uint(id))
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		return errorJSON(c, fiber.StatusNotFound, "Order not found")
	case errors.Is(err, services.ErrForbidden):
		return errorJSON(c, fiber.StatusForbidden, "Unauthorized")
	case err != nil:
		return internalError(c, h.logger, "failed to get order", err)
	}
	return c.JSON(newOrderDetailResponse(order))
}

// HandleListAll returns a page of all orders for admins.
func (h *OrderHandler) HandleListAll(c *fiber.Ctx) error {
	page, err := h.orderService.ListOrders(c.UserContext(), services.OrderQuery{
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 10),
		Status: c.Query("status"),
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidStatus) {
			return errorJSON(c, fiber.StatusBadRequest, "Invalid status")
		}
		return internalError(c, h.logger, "failed to list all orders", err)
	}

	rows := make([]adminOrderRow, 0, len(page.Orders))
	for i := range page.Orders {
		rows = append(rows, newAdminOrderRow(&page.Orders[i]))
	}
	return c.JSON(fiber.Map{
		"orders": rows,
		"pagination": pagination{
			Total:      page.Total,
			Page:       page.Page,
			Limit:      page.Limit,
			TotalPages: page.TotalPages,
		},
	})
}

type updateStatusRequest struct {
	Status           string  `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled"`
	PaymentStatus    *string `json:"paymentStatus" validate:"omitempty,oneof=pending paid failed refunded"`
	SendNotification bool    `json:"sendNotification"`
}

// HandleUpdateStatus changes an order's status and optionally emails the customer.
func (h *OrderHandler) HandleUpdateStatus(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid order ID")
	}

	var req updateStatusRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}

	upd := services.StatusUpdate{
		Status:           models.OrderStatus(req.Status),
		SendNotification: req.SendNotification,
	}
	if req.PaymentStatus != nil {
		ps := models.PaymentStatus(*req.PaymentStatus)
		upd.PaymentStatus = &ps
	}

	err = h.orderService.UpdateStatus(c.UserContext(), uint(id), upd)
	switch {
	case errors.Is(err, services.ErrInvalidStatus):
		return errorJSON(c, fiber.StatusBadRequest, "Invalid status")
	case errors.Is(err, services.ErrInvalidPaymentState):
		return errorJSON(c, fiber.StatusBadRequest, "Invalid payment status")
	case errors.Is(err, services.ErrOrderNotFound):
		return errorJSON(c, fiber.StatusNotFound, "Order not found")
	case err != nil:
		return internalError(c, h.logger, "failed to update order status", err)
	}
	return c.JSON(fiber.Map{"success": true})
}
