package handlers

import (
	"errors"
	"log/slog"
	"strings"

	"z7shop/internal/middleware"
	"z7shop/internal/models"
	"z7shop/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// CheckoutHandler handles payment intents, order placement and confirmation email.
type CheckoutHandler struct {
	checkout *services.CheckoutService
	auth     middleware.SessionResolver
	validate *validator.Validate
	logger   *slog.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(checkout *services.CheckoutService, auth middleware.SessionResolver, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		auth:     auth,
		validate: newValidator(),
		logger:   logger,
	}
}

// RegisterRoutes registers the checkout routes.
func (h *CheckoutHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/create-payment-intent", h.HandleCreatePaymentIntent)
	router.Post("/store-order", middleware.OptionalSession(h.auth), h.HandleStoreOrder)
	router.Post("/send-order-confirmation", h.HandleSendOrderConfirmation)
}

type paymentIntentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
}

// HandleCreatePaymentIntent creates a Stripe PaymentIntent for the cart plus delivery.
func (h *CheckoutHandler) HandleCreatePaymentIntent(c *fiber.Ctx) error {
	var req paymentIntentRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid amount")
	}

	res, err := h.checkout.CreatePaymentIntent(c.UserContext(), req.Amount, req.DeliveryFee)
	if err != nil {
		if errors.Is(err, services.ErrInvalidAmount) {
			return errorJSON(c, fiber.StatusBadRequest, "Invalid amount")
		}
		return errorJSON(c, fiber.StatusInternalServerError, "Payment intent creation failed")
	}
	return c.JSON(fiber.Map{
		"clientSecret":    res.ClientSecret,
		"paymentIntentId": res.PaymentIntentID,
	})
}

type cartItem struct {
	ID       flexString      `json:"id"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type cartData struct {
	Total    decimal.Decimal `json:"total"`
	Quantity int             `json:"quantity"`
	Items    []cartItem      `json:"items"`
}

type deliveryChoice struct {
	Method string          `json:"method" validate:"required"`
	Price  decimal.Decimal `json:"price"`
}

// deliveryForm is the older checkout form, still sent by cached clients.
type deliveryForm struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city"`
	State        string `json:"state"`
	Zip          string `json:"zip"`
	Country      string `json:"country"`
}

type paymentIntentRef struct {
	ID string `json:"id"`
}

type orderData struct {
	OrderNumber    string            `json:"orderNumber" validate:"omitempty,max=32"`
	CartData       cartData          `json:"cartData"`
	DeliveryMethod deliveryChoice    `json:"deliveryMethod"`
	PaymentIntent  *paymentIntentRef `json:"paymentIntent"`
	DeliveryForm   *deliveryForm     `json:"deliveryForm"`
}

type shippingForm struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	ZipCode  string `json:"zipCode"`
	Country  string `json:"country"`
}

type storeOrderRequest struct {
	OrderData *orderData    `json:"orderData" validate:"required"`
	Email     string        `json:"email" validate:"omitempty,email"`
	Shipping  *shippingForm `json:"shipping"`
}

func (r *storeOrderRequest) shipping() *services.ShippingInput {
	if s := r.Shipping; s != nil {
		return &services.ShippingInput{
			RecipientName: s.FullName,
			Email:         s.Email,
			Phone:         s.Phone,
			AddressLine1:  s.Address,
			City:          s.City,
			State:         s.State,
			PostalCode:    s.ZipCode,
			Country:       s.Country,
		}
	}
	if f := r.OrderData.DeliveryForm; f != nil {
		return &services.ShippingInput{
			RecipientName: strings.TrimSpace(f.FirstName + " " + f.LastName),
			Phone:         f.Phone,
			AddressLine1:  f.Address,
			AddressLine2:  f.AddressLine2,
			City:          f.City,
			State:         f.State,
			PostalCode:    f.Zip,
			Country:       f.Country,
		}
	}
	return nil
}

func toCartItems(items []cartItem) []services.CartItem {
	out := make([]services.CartItem, 0, len(items))
	for _, it := range items {
		var pid *string
		if it.ID != "" {
			id := string(it.ID)
			pid = &id
		}
		out = append(out, services.CartItem{ProductID: pid, Name: it.Name, Quantity: it.Quantity, Price: it.Price})
	}
	return out
}

// HandleStoreOrder persists a completed checkout. Orders placed with a valid
// session cookie are attributed to that user; all others are guest orders.
func (h *CheckoutHandler) HandleStoreOrder(c *fiber.Ctx) error {
	var req storeOrderRequest
	if ok, err := parseBody(c, h.validate, &req); !ok {
		return err
	}
	data := req.OrderData

	in := services.StoreOrderInput{
		OrderNumber:    data.OrderNumber,
		Email:          req.Email,
		DeliveryMethod: models.DeliveryMethod(strings.ToLower(data.DeliveryMethod.Method)),
		DeliveryFee:    data.DeliveryMethod.Price,
		CartTotal:      data.CartData.Total,
		CartQuantity:   data.CartData.Quantity,
		Items:          toCartItems(data.CartData.Items),
		Shipping:       req.shipping(),
	}
	if data.PaymentIntent != nil {
		in.PaymentIntentID = data.PaymentIntent.ID
	}
	if user := middleware.CurrentUser(c); user != nil {
		in.UserID = &user.ID
	}

	order, err := h.checkout.StoreOrder(c.UserContext(), in)
	if err != nil {
		var verr *services.OrderValidationError
		switch {
		case errors.As(err, &verr):
			return errorJSON(c, fiber.StatusBadRequest, verr.Message)
		case errors.Is(err, services.ErrDuplicateNumber):
			return errorJSON(c, fiber.StatusConflict, "Order number already exists")
		case errors.Is(err, services.ErrIntentUsed):
			return errorJSON(c, fiber.StatusConflict, "Payment has already been used for another order")
		}
		h.logger.Error("failed to store order", slog.Any("error", err), slog.Any("request_id", c.Locals("requestid")))
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to store order")
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"orderId":     order.ID,
		"orderNumber": order.OrderNumber,
	})
}

type confirmationRequest struct {
	OrderData *orderData `json:"orderData"`
	Email     string     `json:"email"`
}

// HandleSendOrderConfirmation emails an order summary. Delivery failures are reported.
func (h *CheckoutHandler) HandleSendOrderConfirmation(c *fiber.Ctx) error {
	var req confirmationRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if req.OrderData == nil || strings.TrimSpace(req.Email) == "" {
		return errorJSON(c, fiber.StatusBadRequest, "Missing required data")
	}
	data := req.OrderData

	err := h.checkout.SendOrderConfirmation(c.UserContext(), services.ConfirmationInput{
		Email:          req.Email,
		OrderNumber:    data.OrderNumber,
		CartQuantity:   data.CartData.Quantity,
		CartTotal:      data.CartData.Total,
		Items:          toCartItems(data.CartData.Items),
		DeliveryMethod: models.DeliveryMethod(strings.ToLower(data.DeliveryMethod.Method)),
		DeliveryFee:    data.DeliveryMethod.Price,
	})
	if err != nil {
		h.logger.Error("order confirmation email failed", slog.String("order_number", data.OrderNumber), slog.Any("error", err))
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to send email confirmation")
	}
	return c.JSON(fiber.Map{"success": true})
}
