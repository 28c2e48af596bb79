package main

import (
	"fmt"
	"log/slog"

	"z7shop/internal/repositories"
	"z7shop/internal/services"
	"z7shop/pkg/mailer"

	"github.com/spf13/cobra"
)

func newCreateAdminCmd() *cobra.Command {
	var email, password string
	var super bool

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account or promote an existing one",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(password) < 8 {
				return fmt.Errorf("password must be at least 8 characters")
			}
			cfg, log, db, err := bootstrap()
			if err != nil {
				return err
			}

			auth := services.NewAuthService(
				repositories.NewGORMUserRepository(db),
				repositories.NewGORMSessionRepository(db),
				repositories.NewGORMResetTokenRepository(db),
				mailer.LogMailer{Logger: log},
				services.AuthConfig{SessionTTL: cfg.SessionTTL, ResetTokenTTL: cfg.ResetTokenTTL},
			)
			user, err := auth.CreateAdmin(cmd.Context(), email, password, super)
			if err != nil {
				return err
			}
			log.Info("admin ready", slog.Uint64("id", uint64(user.ID)), slog.String("email", user.Email), slog.Bool("super", user.IsSuperAdmin))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email address")
	cmd.Flags().StringVar(&password, "password", "", "admin password (min 8 characters)")
	cmd.Flags().BoolVar(&super, "super", false, "mark the account as a super admin")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
