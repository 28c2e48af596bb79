// Package server assembles the Fiber application from its dependencies.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"z7shop/internal/config"
	"z7shop/internal/database"
	"z7shop/internal/handlers"
	"z7shop/internal/metrics"
	"z7shop/internal/middleware"
	"z7shop/internal/repositories"
	"z7shop/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// Deps are the external collaborators of the API.
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Logger   *slog.Logger
	Mailer   services.Mailer
	Payments services.PaymentGateway
	Events   services.EventPublisher // nil disables order events
	Registry *prometheus.Registry    // nil disables /metrics
	// AccessLog receives the request log lines. Defaults to stdout.
	AccessLog io.Writer
}

// Server is the wired HTTP application.
type Server struct {
	App     *fiber.App
	Auth    *services.AuthService
	limiter *middleware.RateLimiter
}

// New builds the Fiber app with every route registered.
func New(d Deps) *Server {
	cfg := d.Config
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	accessLog := d.AccessLog
	if accessLog == nil {
		accessLog = os.Stdout
	}

	var recorder metrics.Recorder = metrics.Nop{}
	var collector *metrics.Collector
	if d.Registry != nil {
		collector = metrics.NewCollector(d.Registry)
		recorder = collector
	}

	// --- Repositories ---
	userRepo := repositories.NewGORMUserRepository(d.DB)
	sessionRepo := repositories.NewGORMSessionRepository(d.DB)
	resetRepo := repositories.NewGORMResetTokenRepository(d.DB)
	orderRepo := repositories.NewGORMOrderRepository(d.DB)

	// --- Services ---
	authService := services.NewAuthService(userRepo, sessionRepo, resetRepo, d.Mailer, services.AuthConfig{
		SessionTTL:    cfg.SessionTTL,
		ResetTokenTTL: cfg.ResetTokenTTL,
		AppURL:        cfg.AppURL,
		MailFrom:      cfg.MailFromNoReply,
	})
	authService.Logger, authService.Metrics = log, recorder

	checkoutService := services.NewCheckoutService(orderRepo, d.Payments, d.Mailer, d.Events, services.CheckoutConfig{
		ProductName:         cfg.ProductName,
		StandardDeliveryFee: cfg.StandardDeliveryFee,
		ExpressDeliveryFee:  cfg.ExpressDeliveryFee,
		MailFrom:            cfg.MailFromOrders,
		SupportEmail:        cfg.SupportEmail,
	})
	checkoutService.Logger, checkoutService.Metrics = log, recorder

	orderService := services.NewOrderService(orderRepo, d.Mailer, d.Events, cfg.MailFromOrders, cfg.SupportEmail)
	orderService.Logger, orderService.Metrics = log, recorder

	adminService := services.NewAdminService(userRepo)
	dashboardService := services.NewDashboardService(orderRepo)

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  rate.Limit(cfg.AuthRateLimit),
		Burst: cfg.AuthRateBurst,
	})

	// --- Fiber App ---
	app := fiber.New(fiber.Config{
		AppName:      "z7shop",
		ErrorHandler: errorHandler(log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,

		// c.IP() feeds the auth rate limiter; behind a proxy it must be the client address.
		ProxyHeader:             cfg.ProxyHeader,
		EnableIPValidation:      cfg.ProxyHeader != "",
		EnableTrustedProxyCheck: len(cfg.TrustedProxies) > 0,
		TrustedProxies:          cfg.TrustedProxies,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		Output: accessLog,
	}))
	if collector != nil {
		app.Use(collector.Middleware())
		app.Get("/metrics", metrics.Handler(d.Registry))
	}

	handlers.NewHealthHandler(func(ctx context.Context) error { return database.Ping(ctx, d.DB) }).RegisterRoutes(app)

	api := app.Group("/api")
	handlers.NewAuthHandler(authService, handlers.CookieConfig{Secure: cfg.CookieSecure, TTL: cfg.SessionTTL}, limiter.Handler(), log).RegisterRoutes(api)
	handlers.NewCheckoutHandler(checkoutService, authService, log).RegisterRoutes(api)
	handlers.NewOrderHandler(orderService, authService, log).RegisterRoutes(api)
	handlers.NewAdminHandler(adminService, authService, log).RegisterRoutes(api)
	handlers.NewDashboardHandler(dashboardService, authService, log).RegisterRoutes(api)

	return &Server{App: app, Auth: authService, limiter: limiter}
}

// Shutdown stops the HTTP server and background workers.
func (s *Server) Shutdown() error {
	s.limiter.Stop()
	return s.App.Shutdown()
}

// errorHandler renders errors that escape the handlers, such as unknown routes.
func errorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "An unexpected error occurred"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			msg = fe.Message
		} else {
			log.Error("unhandled error",
				slog.Any("error", err),
				slog.String("path", c.Path()),
				slog.Any("request_id", c.Locals("requestid")))
		}
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
}
