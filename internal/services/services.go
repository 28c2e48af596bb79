package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"z7shop/pkg/mailer"
	"z7shop/pkg/payments"
	"z7shop/pkg/rabbitmq"
)

// Mailer delivers rendered email.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) (string, error)
}

// PaymentGateway creates and reads payment intents.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amountCents int64) (*payments.Intent, error)
	GetIntent(ctx context.Context, id string) (*payments.Intent, error)
}

// EventPublisher publishes order lifecycle events.
type EventPublisher interface {
	PublishOrderEvent(event rabbitmq.OrderEvent) error
}

var (
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNoSession          = errors.New("not authenticated")
	ErrInvalidSession     = errors.New("session expired or invalid")
	ErrInvalidResetToken  = errors.New("invalid or expired token")

	ErrInvalidAmount   = errors.New("invalid amount")
	ErrPaymentGateway  = errors.New("payment intent creation failed")
	ErrInvalidOrder    = errors.New("invalid order")
	ErrOrderNotFound   = errors.New("order not found")
	ErrForbidden       = errors.New("unauthorized")
	ErrInvalidStatus   = errors.New("invalid order status")
	ErrEmailDelivery   = errors.New("failed to send email")
	ErrDuplicateNumber = errors.New("order number already exists")
	ErrIntentUsed      = errors.New("payment intent already used by another order")

	ErrUserNotFound        = errors.New("user not found")
	ErrSelfDemotion        = errors.New("cannot remove admin privileges from yourself")
	ErrSuperAdminDemotion  = errors.New("cannot remove admin privileges from super admin accounts")
	ErrInvalidPaymentState = errors.New("invalid payment status")
)

// OrderValidationError describes why an order payload was rejected.
// It matches ErrInvalidOrder with errors.Is.
type OrderValidationError struct {
	Message string
}

func (e *OrderValidationError) Error() string { return e.Message }

func (e *OrderValidationError) Unwrap() error { return ErrInvalidOrder }

func invalidOrder(format string, args ...any) error {
	return &OrderValidationError{Message: fmt.Sprintf(format, args...)}
}

// randomHex returns n random bytes hex encoded.
func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
