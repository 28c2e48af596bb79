package repositories

import (
	"context"

	"z7shop/internal/models"
)

// SessionRepository defines the interface for login session storage.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	// GetByToken returns the session for token regardless of expiry.
	GetByToken(ctx context.Context, token string) (*models.Session, error)
	DeleteByToken(ctx context.Context, token string) error
}

// ResetTokenRepository defines the interface for password reset token storage.
type ResetTokenRepository interface {
	// Replace deletes every token of the owning user and stores token in its place.
	Replace(ctx context.Context, token *models.PasswordResetToken) error
	GetByToken(ctx context.Context, token string) (*models.PasswordResetToken, error)
}
