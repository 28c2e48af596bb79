package repositories

import (
	"context"
	"time"

	"z7shop/internal/models"
)

// OrderFilter narrows and pages an order listing.
type OrderFilter struct {
	Status *models.OrderStatus
	Limit  int
	Offset int
}

// StatusCount is the number of orders in one fulfillment status.
type StatusCount struct {
	Status models.OrderStatus
	Count  int64
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	// Create stores the order with its items and shipping in a single transaction.
	Create(ctx context.Context, order *models.Order) error
	// PaymentIntentInUse reports whether an order already references the payment intent.
	PaymentIntentInUse(ctx context.Context, intentID string) (bool, error)
	// GetByID loads the order with items, shipping and owning user.
	GetByID(ctx context.Context, id uint) (*models.Order, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error)
	UpdateStatus(ctx context.Context, id uint, status models.OrderStatus, paymentStatus *models.PaymentStatus) error
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context) ([]StatusCount, error)
	ListCreatedBetween(ctx context.Context, from, to time.Time) ([]models.Order, error)
	Recent(ctx context.Context, n int) ([]models.Order, error)
}
