package repositories

import (
	"context"
	"time"

	"z7shop/internal/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uint) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	SetAdmin(ctx context.Context, id uint, isAdmin bool) error
	// ResetPassword consumes a valid reset token, stores the new hash for its
	// owner and revokes the owner's reset tokens and sessions. An unknown,
	// expired or already consumed token yields ErrNotFound.
	ResetPassword(ctx context.Context, token string, now time.Time, passwordHash string) error
}
