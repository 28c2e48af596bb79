package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"z7shop/internal/config"
	"z7shop/internal/logger"
	"z7shop/pkg/rabbitmq"

	"github.com/spf13/cobra"
)

func newConsumeEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consume-events",
		Short: "Log order events published to RabbitMQ",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log := logger.SetupDefault(os.Stdout, cfg.IsProduction())

			if cfg.RabbitMQURL == "" {
				return fmt.Errorf("RABBITMQ_URL is required")
			}
			mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, log)
			if err != nil {
				return err
			}
			defer mq.Close()

			done, err := mq.ConsumeOrderEvents(rabbitmq.LogOrderEvent(log))
			if err != nil {
				return err
			}
			log.Info("waiting for order events, press CTRL+C to exit")

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-quit:
			case <-done:
				return fmt.Errorf("order event channel closed by broker")
			}
			return nil
		},
	}
}
