package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_BusinessCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordOrderStored("paid")
	c.RecordOrderStored("paid")
	c.RecordEmail("order_confirmation", nil)
	c.RecordEmail("order_confirmation", errors.New("boom"))
	c.RecordPaymentIntent(nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.ordersStored.WithLabelValues("paid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.emailsSent.WithLabelValues("order_confirmation", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.emailsSent.WithLabelValues("order_confirmation", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.paymentIntents.WithLabelValues("ok")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	app := fiber.New()
	app.Use(c.Middleware())
	app.Get("/api/orders/:id", func(ctx *fiber.Ctx) error { return ctx.SendStatus(fiber.StatusNotFound) })
	app.Get("/metrics", Handler(reg))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/orders/42", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requestTotal.WithLabelValues("GET", "/api/orders/:id", "404")))

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "z7shop_http_requests_total")
}
