package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus tracks the fulfillment stage of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// OrderStatuses lists every fulfillment status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// Valid reports whether s is one of the known fulfillment statuses.
func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// PaymentStatus tracks the payment stage of an order, independently of fulfillment.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Valid reports whether s is one of the known payment statuses.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// DeliveryMethod is the shipping speed picked at checkout.
type DeliveryMethod string

const (
	DeliveryStandard DeliveryMethod = "standard"
	DeliveryExpress  DeliveryMethod = "express"
)

// Order represents a placed customer order. UserID is nil for guest checkouts.
type Order struct {
	ID              uint            `gorm:"primaryKey"`
	UserID          *uint           `gorm:"index"`
	User            *User           `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL"`
	OrderNumber     string          `gorm:"uniqueIndex;type:varchar(32);not null"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Status          OrderStatus     `gorm:"type:varchar(20);not null;default:'pending';index"`
	PaymentStatus   PaymentStatus   `gorm:"type:varchar(20);not null;default:'pending'"`
	PaymentIntentID *string         `gorm:"type:varchar(255);uniqueIndex:idx_orders_payment_intent_id"`
	DeliveryMethod  DeliveryMethod  `gorm:"type:varchar(20);not null"`
	DeliveryFee     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt       time.Time       `gorm:"index"`
	UpdatedAt       time.Time

	Items    []OrderItem    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Shipping *OrderShipping `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// Subtotal is the sum of the line items, excluding delivery.
func (o *Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range o.Items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

// OrderItem represents a single line within an order.
type OrderItem struct {
	ID          uint            `gorm:"primaryKey"`
	OrderID     uint            `gorm:"not null;index"`
	ProductName string          `gorm:"type:varchar(255);not null"`
	ProductID   *string         `gorm:"type:varchar(64)"`
	Quantity    int             `gorm:"not null"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"` // Unit price at the time of order
	CreatedAt   time.Time
}

// LineTotal is price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderShipping is the recipient and address an order ships to.
type OrderShipping struct {
	ID            uint    `gorm:"primaryKey"`
	OrderID       uint    `gorm:"not null;uniqueIndex"`
	RecipientName string  `gorm:"type:varchar(255);not null"`
	Email         string  `gorm:"type:varchar(255);not null"`
	Phone         *string `gorm:"type:varchar(50)"`
	AddressLine1  string  `gorm:"type:varchar(255);not null"`
	AddressLine2  *string `gorm:"type:varchar(255)"`
	City          string  `gorm:"type:varchar(100);not null"`
	State         string  `gorm:"type:varchar(100);not null"`
	PostalCode    string  `gorm:"type:varchar(20);not null"`
	Country       string  `gorm:"type:varchar(100);not null"`
	CreatedAt     time.Time
}

// TableName keeps the singular table name used by the SQL migrations.
func (OrderShipping) TableName() string { return "order_shipping" }
