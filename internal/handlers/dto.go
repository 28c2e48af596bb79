package handlers

import (
	"bytes"
	"encoding/json"
	"time"

	"z7shop/internal/models"
	"z7shop/internal/services"

	"github.com/shopspring/decimal"
)

// money renders a decimal as a JSON number with two decimal places.
type money decimal.Decimal

func (m money) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(m).StringFixed(2)), nil
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type userResponse struct {
	ID           uint    `json:"id"`
	Email        string  `json:"email"`
	FirstName    *string `json:"firstName"`
	LastName     *string `json:"lastName"`
	IsAdmin      bool    `json:"isAdmin"`
	IsSuperAdmin *bool   `json:"isSuperAdmin,omitempty"`
}

func newUserResponse(u *models.User, withSuper bool) userResponse {
	r := userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsAdmin:   u.IsAdmin,
	}
	if withSuper {
		super := u.IsSuperAdmin
		r.IsSuperAdmin = &super
	}
	return r
}

type adminUserResponse struct {
	ID           uint      `json:"id"`
	Email        string    `json:"email"`
	FirstName    *string   `json:"firstName"`
	LastName     *string   `json:"lastName"`
	IsAdmin      bool      `json:"isAdmin"`
	IsSuperAdmin bool      `json:"isSuperAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
}

type orderItemResponse struct {
	ID          uint    `json:"id"`
	ProductName string  `json:"productName"`
	ProductID   *string `json:"productId"`
	Quantity    int     `json:"quantity"`
	Price       money   `json:"price"`
}

type shippingResponse struct {
	RecipientName string  `json:"recipientName"`
	Email         string  `json:"email"`
	Phone         *string `json:"phone"`
	AddressLine1  string  `json:"addressLine1"`
	AddressLine2  *string `json:"addressLine2"`
	City          string  `json:"city"`
	State         string  `json:"state"`
	PostalCode    string  `json:"postalCode"`
	Country       string  `json:"country"`
}

type orderResponse struct {
	ID              uint                  `json:"id"`
	UserID          *uint                 `json:"userId,omitempty"`
	UserEmail       *string               `json:"userEmail,omitempty"`
	OrderNumber     string                `json:"orderNumber"`
	TotalAmount     money                 `json:"totalAmount"`
	Status          models.OrderStatus    `json:"status"`
	PaymentStatus   models.PaymentStatus  `json:"paymentStatus"`
	PaymentIntentID *string               `json:"paymentIntentId,omitempty"`
	DeliveryMethod  models.DeliveryMethod `json:"deliveryMethod"`
	DeliveryFee     money                 `json:"deliveryFee"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
	Items           []orderItemResponse   `json:"items"`
	Shipping        *shippingResponse     `json:"shipping"`
}

func newOrderResponse(o *models.Order) orderResponse {
	r := orderResponse{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		TotalAmount:    money(o.TotalAmount),
		Status:         o.Status,
		PaymentStatus:  o.PaymentStatus,
		DeliveryMethod: o.DeliveryMethod,
		DeliveryFee:    money(o.DeliveryFee),
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
		Items:          make([]orderItemResponse, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		r.Items = append(r.Items, orderItemResponse{
			ID:          it.ID,
			ProductName: it.ProductName,
			ProductID:   it.ProductID,
			Quantity:    it.Quantity,
			Price:       money(it.Price),
		})
	}
	if sh := o.Shipping; sh != nil {
		r.Shipping = &shippingResponse{
			RecipientName: sh.RecipientName,
			Email:         sh.Email,
			Phone:         sh.Phone,
			AddressLine1:  sh.AddressLine1,
			AddressLine2:  sh.AddressLine2,
			City:          sh.City,
			State:         sh.State,
			PostalCode:    sh.PostalCode,
			Country:       sh.Country,
		}
	}
	return r
}

// newOrderDetailResponse adds the owner fields shown on the order detail page.
func newOrderDetailResponse(o *models.Order) orderResponse {
	r := newOrderResponse(o)
	r.UserID = o.UserID
	r.PaymentIntentID = o.PaymentIntentID
	if o.User != nil {
		r.UserEmail = &o.User.Email
	}
	return r
}

type adminOrderRow struct {
	ID             uint                  `json:"id"`
	UserID         *uint                 `json:"userId"`
	UserEmail      *string               `json:"userEmail"`
	OrderNumber    string                `json:"orderNumber"`
	TotalAmount    money                 `json:"totalAmount"`
	Status         models.OrderStatus    `json:"status"`
	PaymentStatus  models.PaymentStatus  `json:"paymentStatus"`
	DeliveryMethod models.DeliveryMethod `json:"deliveryMethod"`
	DeliveryFee    money                 `json:"deliveryFee"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
	RecipientName  *string               `json:"recipientName"`
}

func newAdminOrderRow(o *models.Order) adminOrderRow {
	row := adminOrderRow{
		ID:             o.ID,
		UserID:         o.UserID,
		OrderNumber:    o.OrderNumber,
		TotalAmount:    money(o.TotalAmount),
		Status:         o.Status,
		PaymentStatus:  o.PaymentStatus,
		DeliveryMethod: o.DeliveryMethod,
		DeliveryFee:    money(o.DeliveryFee),
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	if o.User != nil {
		row.UserEmail = &o.User.Email
	}
	if o.Shipping != nil {
		row.RecipientName = &o.Shipping.RecipientName
	}
	return row
}

type pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

type recentOrder struct {
	ID          uint               `json:"id"`
	OrderNumber string             `json:"orderNumber"`
	TotalAmount money              `json:"totalAmount"`
	Status      models.OrderStatus `json:"status"`
	CreatedAt   time.Time          `json:"createdAt"`
}

type statsResponse struct {
	TotalOrders    int64                        `json:"totalOrders"`
	OrdersByStatus map[models.OrderStatus]int64 `json:"ordersByStatus"`
	MonthlyOrders  [12]int64                    `json:"monthlyOrders"`
	MonthlyRevenue [12]money                    `json:"monthlyRevenue"`
	RecentOrders   []recentOrder                `json:"recentOrders"`
}

func newStatsResponse(s *services.DashboardStats) statsResponse {
	r := statsResponse{
		TotalOrders:    s.TotalOrders,
		OrdersByStatus: s.OrdersByStatus,
		MonthlyOrders:  s.MonthlyOrders,
		RecentOrders:   make([]recentOrder, 0, len(s.RecentOrders)),
	}
	for i, rev := range s.MonthlyRevenue {
		r.MonthlyRevenue[i] = money(rev)
	}
	for _, o := range s.RecentOrders {
		r.RecentOrders = append(r.RecentOrders, recentOrder{
			ID:          o.ID,
			OrderNumber: o.OrderNumber,
			TotalAmount: money(o.TotalAmount),
			Status:      o.Status,
			CreatedAt:   o.CreatedAt,
		})
	}
	return r
}
