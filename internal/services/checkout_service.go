package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"z7shop/internal/metrics"
	"z7shop/internal/models"
	"z7shop/internal/repositories"
	"z7shop/pkg/mailer"
	"z7shop/pkg/rabbitmq"

	"github.com/shopspring/decimal"
)

// CheckoutConfig carries the store settings used at checkout.
type CheckoutConfig struct {
	ProductName         string
	StandardDeliveryFee decimal.Decimal
	ExpressDeliveryFee  decimal.Decimal
	MailFrom            string
	SupportEmail        string
}

// CheckoutService handles payment intents, order placement and confirmation email.
type CheckoutService struct {
	orders   repositories.OrderRepository
	payments PaymentGateway
	mailer   Mailer
	events   EventPublisher // optional
	cfg      CheckoutConfig

	Logger  *slog.Logger
	Metrics metrics.Recorder
	Now     func() time.Time
}

// NewCheckoutService creates a new CheckoutService. events may be nil.
func NewCheckoutService(
	orders repositories.OrderRepository,
	gateway PaymentGateway,
	mail Mailer,
	events EventPublisher,
	cfg CheckoutConfig,
) *CheckoutService {
	return &CheckoutService{
		orders:   orders,
		payments: gateway,
		mailer:   mail,
		events:   events,
		cfg:      cfg,
		Logger:   slog.Default(),
		Metrics:  metrics.Nop{},
		Now:      time.Now,
	}
}

// PaymentIntentResult is returned to the browser to confirm the card payment.
type PaymentIntentResult struct {
	ClientSecret    string
	PaymentIntentID string
	AmountCents     int64
}

// maxIntentCents is the largest amount Stripe accepts for a single charge.
const maxIntentCents = 99999999

// CreatePaymentIntent starts a payment for amount plus deliveryFee.
func (s *CheckoutService) CreatePaymentIntent(ctx context.Context, amount, deliveryFee decimal.Decimal) (*PaymentIntentResult, error) {
	if amount.IsNegative() || deliveryFee.IsNegative() {
		return nil, ErrInvalidAmount
	}
	total := amount.Add(deliveryFee).Mul(decimal.NewFromInt(100)).Round(0)
	if !total.IsPositive() || total.GreaterThan(decimal.NewFromInt(maxIntentCents)) {
		return nil, ErrInvalidAmount
	}
	cents := total.IntPart()

	intent, err := s.payments.CreateIntent(ctx, cents)
	s.Metrics.RecordPaymentIntent(err)
	if err != nil {
		s.Logger.Error("payment intent creation failed", slog.Int64("amount_cents", cents), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}
	return &PaymentIntentResult{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		AmountCents:     intent.AmountCents,
	}, nil
}

// CartItem is one explicit line of the shopping cart.
type CartItem struct {
	ProductID *string
	Name      string
	Quantity  int
	Price     decimal.Decimal
}

// ShippingInput is the recipient and address an order ships to.
type ShippingInput struct {
	RecipientName string
	Email         string
	Phone         string
	AddressLine1  string
	AddressLine2  string
	City          string
	State         string
	PostalCode    string
	Country       string
}

// StoreOrderInput is a completed checkout.
type StoreOrderInput struct {
	UserID          *uint
	OrderNumber     string
	Email           string
	PaymentIntentID string
	DeliveryMethod  models.DeliveryMethod
	DeliveryFee     decimal.Decimal
	CartTotal       decimal.Decimal
	CartQuantity    int
	Items           []CartItem
	Shipping        *ShippingInput
}

const orderNumberAttempts = 3

// StoreOrder validates and persists a completed checkout. The order, its items
// and its shipping record are written in one transaction. Confirmation email
// and the order.created event are best-effort.
func (s *CheckoutService) StoreOrder(ctx context.Context, in StoreOrderInput) (*models.Order, error) {
	order, err := s.buildOrder(in)
	if err != nil {
		return nil, err
	}
	if in.PaymentIntentID != "" {
		if err := s.checkIntentUnused(ctx, in.PaymentIntentID); err != nil {
			return nil, err
		}
	}
	order.PaymentStatus = s.paymentStatus(ctx, in.PaymentIntentID, order.TotalAmount)

	generated := in.OrderNumber == ""
	for attempt := 1; ; attempt++ {
		if generated {
			if order.OrderNumber, err = s.newOrderNumber(); err != nil {
				return nil, err
			}
		}
		err = s.orders.Create(ctx, order)
		if err == nil {
			break
		}
		if !errors.Is(err, repositories.ErrDuplicate) {
			return nil, err
		}
		// The duplicate may be the payment intent if another order raced this one.
		if in.PaymentIntentID != "" {
			if err := s.checkIntentUnused(ctx, in.PaymentIntentID); err != nil {
				return nil, err
			}
		}
		if !generated || attempt == orderNumberAttempts {
			return nil, ErrDuplicateNumber
		}
		order.ID = 0
	}
	s.Metrics.RecordOrderStored(string(order.PaymentStatus))

	s.sendStoredConfirmation(ctx, order)
	publish(s.events, s.Logger, rabbitmq.EventOrderCreated, order)
	return order, nil
}

func (s *CheckoutService) buildOrder(in StoreOrderInput) (*models.Order, error) {
	switch in.DeliveryMethod {
	case models.DeliveryStandard, models.DeliveryExpress:
	default:
		return nil, invalidOrder("Invalid delivery method")
	}
	if !in.DeliveryFee.Equal(s.deliveryFee(in.DeliveryMethod)) {
		return nil, invalidOrder("Delivery fee does not match the %s delivery price", in.DeliveryMethod)
	}

	items, err := s.buildItems(in)
	if err != nil {
		return nil, err
	}

	shipping, err := buildShipping(in.Shipping, in.Email)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:         in.UserID,
		OrderNumber:    strings.TrimSpace(in.OrderNumber),
		Status:         models.OrderStatusPending,
		DeliveryMethod: in.DeliveryMethod,
		DeliveryFee:    in.DeliveryFee,
		Items:          items,
		Shipping:       shipping,
	}
	order.PaymentIntentID = optional(in.PaymentIntentID)
	order.TotalAmount = order.Subtotal().Add(order.DeliveryFee)
	return order, nil
}

func (s *CheckoutService) deliveryFee(m models.DeliveryMethod) decimal.Decimal {
	if m == models.DeliveryExpress {
		return s.cfg.ExpressDeliveryFee
	}
	return s.cfg.StandardDeliveryFee
}

func (s *CheckoutService) buildItems(in StoreOrderInput) ([]models.OrderItem, error) {
	total := in.CartTotal.Round(2)

	if len(in.Items) == 0 {
		if in.CartQuantity < 1 {
			return nil, invalidOrder("Cart quantity must be at least 1")
		}
		if !total.IsPositive() {
			return nil, invalidOrder("Cart total must be positive")
		}
		qty := decimal.NewFromInt(int64(in.CartQuantity))
		unit := total.Div(qty).Round(2)
		if !unit.Mul(qty).Equal(total) {
			return nil, invalidOrder("Cart total does not divide evenly by quantity")
		}
		return []models.OrderItem{{
			ProductName: s.cfg.ProductName,
			Quantity:    in.CartQuantity,
			Price:       unit,
		}}, nil
	}

	items := make([]models.OrderItem, 0, len(in.Items))
	sum := decimal.Zero
	for _, it := range in.Items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			name = s.cfg.ProductName
		}
		if it.Quantity < 1 {
			return nil, invalidOrder("Item quantity must be at least 1")
		}
		if it.Price.IsNegative() {
			return nil, invalidOrder("Item price must not be negative")
		}
		item := models.OrderItem{
			ProductName: name,
			ProductID:   it.ProductID,
			Quantity:    it.Quantity,
			Price:       it.Price.Round(2),
		}
		sum = sum.Add(item.LineTotal())
		items = append(items, item)
	}
	if !sum.IsPositive() {
		return nil, invalidOrder("Cart total must be positive")
	}
	if !sum.Equal(total) {
		return nil, invalidOrder("Cart total does not match items")
	}
	return items, nil
}

func buildShipping(in *ShippingInput, email string) (*models.OrderShipping, error) {
	if in == nil {
		return nil, invalidOrder("Shipping information is required")
	}
	sh := &models.OrderShipping{
		RecipientName: strings.TrimSpace(in.RecipientName),
		Email:         NormalizeEmail(in.Email),
		Phone:         optional(in.Phone),
		AddressLine1:  strings.TrimSpace(in.AddressLine1),
		AddressLine2:  optional(in.AddressLine2),
		City:          strings.TrimSpace(in.City),
		State:         strings.TrimSpace(in.State),
		PostalCode:    strings.TrimSpace(in.PostalCode),
		Country:       strings.TrimSpace(in.Country),
	}
	if sh.Email == "" {
		sh.Email = NormalizeEmail(email)
	}
	if sh.State == "" {
		sh.State = sh.City
	}
	if sh.Country == "" {
		sh.Country = defaultCountry
	}

	switch {
	case sh.RecipientName == "":
		return nil, invalidOrder("Recipient name is required")
	case sh.Email == "":
		return nil, invalidOrder("Email is required")
	case sh.AddressLine1 == "":
		return nil, invalidOrder("Address is required")
	case sh.City == "":
		return nil, invalidOrder("City is required")
	case sh.PostalCode == "":
		return nil, invalidOrder("Postal code is required")
	}
	return sh, nil
}

func (s *CheckoutService) checkIntentUnused(ctx context.Context, intentID string) error {
	used, err := s.orders.PaymentIntentInUse(ctx, intentID)
	if err != nil {
		return err
	}
	if used {
		return ErrIntentUsed
	}
	return nil
}

// paymentStatus derives the initial payment status from the payment intent.
// Without an intent id the client confirmed the payment itself.
func (s *CheckoutService) paymentStatus(ctx context.Context, intentID string, total decimal.Decimal) models.PaymentStatus {
	if intentID == "" {
		return models.PaymentStatusPaid
	}

	intent, err := s.payments.GetIntent(ctx, intentID)
	if err != nil {
		s.Logger.Warn("payment intent lookup failed, storing order as pending",
			slog.String("payment_intent", intentID), slog.Any("error", err))
		return models.PaymentStatusPending
	}

	// An intent for a different amount never pays for this order.
	if want := total.Mul(decimal.NewFromInt(100)).Round(0).IntPart(); intent.AmountCents != want {
		s.Logger.Warn("payment intent amount differs from order total, storing order as pending",
			slog.String("payment_intent", intentID),
			slog.Int64("intent_cents", intent.AmountCents),
			slog.Int64("order_cents", want))
		return models.PaymentStatusPending
	}

	switch {
	case intent.Succeeded():
		return models.PaymentStatusPaid
	case intent.Failed():
		return models.PaymentStatusFailed
	}
	return models.PaymentStatusPending
}

// newOrderNumber returns SP- followed by the last six digits of the unix
// millisecond clock and four random upper-case hex digits.
func (s *CheckoutService) newOrderNumber() (string, error) {
	ms := strconv.FormatInt(s.Now().UnixMilli(), 10)
	if len(ms) > 6 {
		ms = ms[len(ms)-6:]
	}
	suffix, err := randomHex(2)
	if err != nil {
		return "", err
	}
	return "SP-" + ms + strings.ToUpper(suffix), nil
}

func (s *CheckoutService) sendStoredConfirmation(ctx context.Context, order *models.Order) {
	if order.Shipping == nil || order.Shipping.Email == "" {
		return
	}
	data := orderEmail(order, s.cfg.SupportEmail)
	data.Heading = "Order Confirmation"
	data.Intro = "Thank you for your order! We're getting it ready to ship."

	err := s.send(ctx, order.Shipping.Email, fmt.Sprintf("Your Z7 Neck Brackets Order #%s", order.OrderNumber), data)
	s.Metrics.RecordEmail("order_confirmation", err)
	if err != nil {
		s.Logger.Error("failed to send order confirmation email",
			slog.String("order_number", order.OrderNumber), slog.Any("error", err))
	}
}

func (s *CheckoutService) send(ctx context.Context, to, subject string, data mailer.OrderEmail) error {
	html, err := mailer.RenderOrder(data)
	if err != nil {
		return err
	}
	_, err = s.mailer.Send(ctx, mailer.Message{
		From:    s.cfg.MailFrom,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
	return err
}

// ConfirmationInput is the client-side order summary for the confirmation email.
type ConfirmationInput struct {
	Email          string
	OrderNumber    string
	CartQuantity   int
	CartTotal      decimal.Decimal
	Items          []CartItem
	DeliveryMethod models.DeliveryMethod
	DeliveryFee    decimal.Decimal
}

// SendOrderConfirmation emails an order summary built from checkout data.
// Unlike the email sent by StoreOrder, delivery failures are returned.
func (s *CheckoutService) SendOrderConfirmation(ctx context.Context, in ConfirmationInput) error {
	now := s.Now()
	data := mailer.OrderEmail{
		Heading:        "Thank you for your order!",
		Intro:          "We're excited to confirm your Z7 Neck Brackets order.",
		OrderNumber:    in.OrderNumber,
		OrderDate:      now.Format(dateLayout),
		DeliveryMethod: deliveryLabel(in.DeliveryMethod),
		Subtotal:       in.CartTotal,
		Shipping:       in.DeliveryFee,
		Total:          in.CartTotal.Add(in.DeliveryFee),
		SupportEmail:   s.cfg.SupportEmail,
		Year:           now.Year(),
	}
	if len(in.Items) == 0 {
		qty := in.CartQuantity
		if qty < 1 {
			qty = 1
		}
		data.Items = []mailer.LineItem{{
			Name:     s.cfg.ProductName,
			Quantity: qty,
			Price:    in.CartTotal.Div(decimal.NewFromInt(int64(qty))),
		}}
	}
	for _, it := range in.Items {
		data.Items = append(data.Items, mailer.LineItem{Name: it.Name, Quantity: it.Quantity, Price: it.Price})
	}

	err := s.send(ctx, NormalizeEmail(in.Email), fmt.Sprintf("Z7 Neck Brackets - Order Confirmation #%s", in.OrderNumber), data)
	s.Metrics.RecordEmail("order_confirmation", err)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmailDelivery, err)
	}
	return nil
}

// publish emits an order event when a publisher is configured. Failures are logged only.
func publish(events EventPublisher, logger *slog.Logger, eventType string, order *models.Order) {
	if events == nil {
		return
	}
	err := events.PublishOrderEvent(rabbitmq.OrderEvent{
		Type:          eventType,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		UserID:        order.UserID,
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		TotalAmount:   order.TotalAmount.StringFixed(2),
	})
	if err != nil {
		logger.Warn("failed to publish order event",
			slog.String("type", eventType),
			slog.String("order_number", order.OrderNumber),
			slog.Any("error", err))
	}
}
