// Package metrics exposes Prometheus instrumentation for the storefront API.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the business metrics surface used by the services.
type Recorder interface {
	RecordOrderStored(paymentStatus string)
	RecordEmail(template string, err error)
	RecordPaymentIntent(err error)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordOrderStored(string) {}
func (Nop) RecordEmail(string, error) {}
func (Nop) RecordPaymentIntent(error) {}

// Collector records HTTP and business metrics into a Prometheus registry.
type Collector struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	ordersStored    *prometheus.CounterVec
	emailsSent      *prometheus.CounterVec
	paymentIntents  *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "z7shop",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "z7shop",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		ordersStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "z7shop",
			Name:      "orders_stored_total",
			Help:      "Orders persisted, by initial payment status.",
		}, []string{"payment_status"}),
		emailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "z7shop",
			Name:      "emails_total",
			Help:      "Transactional emails attempted, by template and result.",
		}, []string{"template", "result"}),
		paymentIntents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "z7shop",
			Name:      "payment_intents_total",
			Help:      "Stripe payment intents requested, by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.requestDuration,
		c.requestTotal,
		c.ordersStored,
		c.emailsSent,
		c.paymentIntents,
	)
	return c
}

func (c *Collector) RecordOrderStored(paymentStatus string) {
	c.ordersStored.WithLabelValues(paymentStatus).Inc()
}

func (c *Collector) RecordEmail(template string, err error) {
	c.emailsSent.WithLabelValues(template, result(err)).Inc()
}

func (c *Collector) RecordPaymentIntent(err error) {
	c.paymentIntents.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Middleware observes every request. Routes are labelled by their pattern,
// not the raw path, to keep label cardinality bounded.
func (c *Collector) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		err := ctx.Next()

		status := ctx.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		route := "unmatched"
		if r := ctx.Route(); r != nil && r.Path != "" {
			route = r.Path
		}
		labels := []string{ctx.Method(), route, strconv.Itoa(status)}
		c.requestTotal.WithLabelValues(labels...).Inc()
		c.requestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the registry in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
