package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"z7shop/internal/metrics"
	"z7shop/internal/models"
	"z7shop/internal/repositories"
	"z7shop/pkg/mailer"
	"z7shop/pkg/rabbitmq"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// OrderService handles business logic related to viewing and managing orders.
type OrderService struct {
	orders repositories.OrderRepository
	mailer Mailer
	events EventPublisher // optional

	mailFrom     string
	supportEmail string

	Logger  *slog.Logger
	Metrics metrics.Recorder
}

// NewOrderService creates a new OrderService. events may be nil.
func NewOrderService(orders repositories.OrderRepository, mail Mailer, events EventPublisher, mailFrom, supportEmail string) *OrderService {
	return &OrderService{
		orders:       orders,
		mailer:       mail,
		events:       events,
		mailFrom:     mailFrom,
		supportEmail: supportEmail,
		Logger:       slog.Default(),
		Metrics:      metrics.Nop{},
	}
}

// ListMyOrders returns the user's orders, newest first.
func (s *OrderService) ListMyOrders(ctx context.Context, userID uint) ([]models.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// GetOrder returns one order to its owner or to an admin.
func (s *OrderService) GetOrder(ctx context.Context, viewer *models.User, id uint) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if viewer.IsAdmin {
		return order, nil
	}
	if order.UserID == nil || *order.UserID != viewer.ID {
		return nil, ErrForbidden
	}
	return order, nil
}

// OrderQuery selects a page of orders for the admin listing.
type OrderQuery struct {
	Page   int
	Limit  int
	Status string // empty for all statuses
}

// OrderPage is one page of the admin order listing.
type OrderPage struct {
	Orders     []models.Order
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// ListOrders returns a page of all orders, newest first. Page and limit are
// clamped to sane bounds; an unknown status filter is rejected.
func (s *OrderService) ListOrders(ctx context.Context, q OrderQuery) (*OrderPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}

	filter := repositories.OrderFilter{Limit: q.Limit, Offset: (q.Page - 1) * q.Limit}
	if q.Status != "" {
		status := models.OrderStatus(q.Status)
		if !status.Valid() {
			return nil, ErrInvalidStatus
		}
		filter.Status = &status
	}

	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &OrderPage{
		Orders:     orders,
		Total:      total,
		Page:       q.Page,
		Limit:      q.Limit,
		TotalPages: int((total + int64(q.Limit) - 1) / int64(q.Limit)),
	}, nil
}

// StatusUpdate is an admin change to an order's status.
type StatusUpdate struct {
	Status           models.OrderStatus
	PaymentStatus    *models.PaymentStatus
	SendNotification bool
}

// UpdateStatus changes the fulfillment (and optionally payment) status of an
// order. When requested the customer is emailed; email failures are logged only.
func (s *OrderService) UpdateStatus(ctx context.Context, id uint, upd StatusUpdate) error {
	if !upd.Status.Valid() {
		return ErrInvalidStatus
	}
	if upd.PaymentStatus != nil && !upd.PaymentStatus.Valid() {
		return ErrInvalidPaymentState
	}

	if err := s.orders.UpdateStatus(ctx, id, upd.Status, upd.PaymentStatus); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrOrderNotFound
		}
		return err
	}

	if !upd.SendNotification && s.events == nil {
		return nil
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		s.Logger.Error("failed to reload order after status update", slog.Uint64("order_id", uint64(id)), slog.Any("error", err))
		return nil
	}
	if upd.SendNotification {
		s.notifyStatus(ctx, order)
	}
	publish(s.events, s.Logger, rabbitmq.EventOrderStatusUpdated, order)
	return nil
}

// notifyStatus emails the account holder, or the shipping address for guest orders.
func (s *OrderService) notifyStatus(ctx context.Context, order *models.Order) {
	var to string
	switch {
	case order.User != nil:
		to = order.User.Email
	case order.Shipping != nil:
		to = order.Shipping.Email
	}
	if to == "" {
		s.Logger.Warn("no recipient for status update email", slog.String("order_number", order.OrderNumber))
		return
	}

	data := orderEmail(order, s.supportEmail)
	data.Heading = "Order Status Update"
	data.Intro = fmt.Sprintf("Your order status is now: %s", statusLabel(order.Status))

	err := s.sendStatusEmail(ctx, to, order, data)
	s.Metrics.RecordEmail("status_update", err)
	if err != nil {
		s.Logger.Error("failed to send status update email",
			slog.String("order_number", order.OrderNumber), slog.Any("error", err))
	}
}

func (s *OrderService) sendStatusEmail(ctx context.Context, to string, order *models.Order, data mailer.OrderEmail) error {
	html, err := mailer.RenderOrder(data)
	if err != nil {
		return err
	}
	_, err = s.mailer.Send(ctx, mailer.Message{
		From:    s.mailFrom,
		To:      []string{to},
		Subject: fmt.Sprintf("Order #%s Status Update: %s", order.OrderNumber, statusLabel(order.Status)),
		HTML:    html,
	})
	return err
}
