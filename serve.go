package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"z7shop/internal/server"
	"z7shop/internal/services"
	"z7shop/pkg/mailer"
	"z7shop/pkg/payments"
	"z7shop/pkg/rabbitmq"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, db, err := bootstrap()
			if err != nil {
				return err
			}

			// --- External services ---
			var mail services.Mailer = mailer.LogMailer{Logger: log}
			if cfg.ResendAPIKey != "" {
				mail = mailer.NewResendMailer(cfg.ResendAPIKey)
			} else {
				log.Warn("RESEND_API_KEY not set, emails will only be logged")
			}

			if cfg.StripeSecretKey == "" {
				log.Warn("STRIPE_SECRET_KEY not set, payment intents will fail")
			}
			gateway := payments.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeCurrency)

			var events services.EventPublisher
			if cfg.RabbitMQURL != "" {
				mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, log)
				if err != nil {
					return err
				}
				defer mq.Close()
				events = mq
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			srv := server.New(server.Deps{
				Config:   cfg,
				DB:       db,
				Logger:   log,
				Mailer:   mail,
				Payments: gateway,
				Events:   events,
				Registry: reg,
			})

			// Graceful shutdown handling
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				log.Info("starting server", slog.String("addr", cfg.AppPort), slog.String("env", cfg.AppEnv))
				errCh <- srv.App.Listen(cfg.AppPort)
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("server failed: %w", err)
			case <-quit:
			}

			log.Info("shutting down server")
			if err := srv.Shutdown(); err != nil {
				log.Error("error during shutdown", slog.Any("error", err))
			}
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
			log.Info("server gracefully stopped")
			return nil
		},
	}
}
