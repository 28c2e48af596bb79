package services

import (
	"strings"

	"z7shop/internal/models"
	"z7shop/pkg/mailer"
)

const (
	defaultCountry = "United States"
	dateLayout     = "Jan 2, 2006"
)

// orderEmail builds the template data for a persisted order.
func orderEmail(order *models.Order, supportEmail string) mailer.OrderEmail {
	data := mailer.OrderEmail{
		OrderNumber:    order.OrderNumber,
		OrderDate:      order.CreatedAt.Format(dateLayout),
		DeliveryMethod: deliveryLabel(order.DeliveryMethod),
		Subtotal:       order.Subtotal(),
		Shipping:       order.DeliveryFee,
		Total:          order.TotalAmount,
		SupportEmail:   supportEmail,
		Year:           order.CreatedAt.Year(),
	}
	for _, item := range order.Items {
		data.Items = append(data.Items, mailer.LineItem{
			Name:     item.ProductName,
			Quantity: item.Quantity,
			Price:    item.Price,
		})
	}
	if sh := order.Shipping; sh != nil {
		data.CustomerName = sh.RecipientName
		data.ShippingAddress = &mailer.Address{
			Line1:      sh.AddressLine1,
			Line2:      deref(sh.AddressLine2),
			City:       sh.City,
			State:      sh.State,
			PostalCode: sh.PostalCode,
			Country:    sh.Country,
		}
	}
	return data
}

func deliveryLabel(m models.DeliveryMethod) string {
	switch m {
	case models.DeliveryExpress:
		return "Express Delivery (1-2 business days)"
	case models.DeliveryStandard:
		return "Standard Delivery (3-5 business days)"
	}
	return string(m)
}

func statusLabel(s models.OrderStatus) string {
	return strings.ToUpper(string(s))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
