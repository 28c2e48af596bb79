package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"money": func(d decimal.Decimal) string { return "$" + d.StringFixed(2) },
}).ParseFS(templateFS, "templates/*.html"))

// LineItem is one product row of an order email.
type LineItem struct {
	Name     string
	Quantity int
	Price    decimal.Decimal // unit price
}

// Total is the line price times quantity.
func (l LineItem) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Address is a postal address as printed in emails.
type Address struct {
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// OrderEmail is the data behind the order confirmation and status update emails.
type OrderEmail struct {
	Heading         string
	Intro           string
	OrderNumber     string
	CustomerName    string
	OrderDate       string
	DeliveryMethod  string
	Items           []LineItem
	Subtotal        decimal.Decimal
	Shipping        decimal.Decimal
	Total           decimal.Decimal
	ShippingAddress *Address
	SupportEmail    string
	Year            int
}

// PasswordResetEmail is the data behind the password reset email.
type PasswordResetEmail struct {
	ResetLink string
	Year      int
}

// RenderOrder renders the order email HTML.
func RenderOrder(data OrderEmail) (string, error) {
	return render("order.html", data)
}

// RenderPasswordReset renders the password reset email HTML.
func RenderPasswordReset(data PasswordResetEmail) (string, error) {
	return render("reset_password.html", data)
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("mailer: render %s: %w", name, err)
	}
	return buf.String(), nil
}
