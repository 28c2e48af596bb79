package payments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v82"
)

func TestStripeGateway_Unconfigured(t *testing.T) {
	g := NewStripeGateway("", "usd")

	_, err := g.CreateIntent(context.Background(), 2498)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = g.GetIntent(context.Background(), "pi_123")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestToIntent(t *testing.T) {
	intent := toIntent(&stripe.PaymentIntent{
		ID:           "pi_123",
		ClientSecret: "pi_123_secret_abc",
		Amount:       2498,
		Currency:     stripe.CurrencyUSD,
		Status:       stripe.PaymentIntentStatusSucceeded,
	})

	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, "pi_123_secret_abc", intent.ClientSecret)
	assert.EqualValues(t, 2498, intent.AmountCents)
	assert.Equal(t, "usd", intent.Currency)
	assert.True(t, intent.Succeeded())
	assert.False(t, intent.Failed())
}

func TestIntent_Failed(t *testing.T) {
	for _, status := range []stripe.PaymentIntentStatus{
		stripe.PaymentIntentStatusCanceled,
		stripe.PaymentIntentStatusRequiresPaymentMethod,
	} {
		intent := &Intent{Status: string(status)}
		assert.True(t, intent.Failed(), status)
		assert.False(t, intent.Succeeded(), status)
	}
	assert.False(t, (&Intent{Status: string(stripe.PaymentIntentStatusProcessing)}).Failed())
}
