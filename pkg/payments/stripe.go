// Package payments wraps the Stripe PaymentIntents API used by checkout.
package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// ErrNotConfigured is returned when no Stripe secret key was provided.
var ErrNotConfigured = errors.New("payment gateway is not configured")

// Intent is the subset of a Stripe PaymentIntent the store uses.
type Intent struct {
	ID           string
	ClientSecret string
	AmountCents  int64
	Currency     string
	Status       string
}

// Succeeded reports whether the customer's payment went through.
func (i *Intent) Succeeded() bool {
	return i.Status == string(stripe.PaymentIntentStatusSucceeded)
}

// Failed reports whether the intent can no longer succeed without a new payment method.
func (i *Intent) Failed() bool {
	return i.Status == string(stripe.PaymentIntentStatusCanceled) ||
		i.Status == string(stripe.PaymentIntentStatusRequiresPaymentMethod)
}

// StripeGateway creates and reads PaymentIntents through the Stripe SDK.
type StripeGateway struct {
	api      *client.API
	currency string
}

// NewStripeGateway returns a gateway for secretKey. An empty key yields a gateway
// whose calls fail with ErrNotConfigured.
func NewStripeGateway(secretKey, currency string) *StripeGateway {
	g := &StripeGateway{currency: currency}
	if secretKey != "" {
		g.api = &client.API{}
		g.api.Init(secretKey, nil)
	}
	return g
}

// CreateIntent starts a card payment for amountCents in the gateway currency.
func (g *StripeGateway) CreateIntent(ctx context.Context, amountCents int64) (*Intent, error) {
	if g.api == nil {
		return nil, ErrNotConfigured
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(g.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}
	return toIntent(pi), nil
}

// GetIntent reads the current state of a PaymentIntent.
func (g *StripeGateway) GetIntent(ctx context.Context, id string) (*Intent, error) {
	if g.api == nil {
		return nil, ErrNotConfigured
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: get payment intent %s: %w", id, err)
	}
	return toIntent(pi), nil
}

func toIntent(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
	}
}
