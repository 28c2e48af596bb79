package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"z7shop/internal/models"

	"gorm.io/gorm"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("user with email %s: %w", user.Email, ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByEmail retrieves a user by their email from the database.
func (r *GORMUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user with email %s: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email %s: %w", email, err)
	}
	return &user, nil
}

// GetByID retrieves a user by their ID from the database.
func (r *GORMUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user with ID %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by ID %d: %w", id, err)
	}
	return &user, nil
}

// List returns every user, newest first.
func (r *GORMUserRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// SetAdmin updates the admin flag of a user.
func (r *GORMUserRepository) SetAdmin(ctx context.Context, id uint, isAdmin bool) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]any{"is_admin": isAdmin, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("failed to update admin flag for user %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user with ID %d: %w", id, ErrNotFound)
	}
	return nil
}

// ResetPassword consumes the reset token and stores the new password hash. The
// token row is deleted inside the transaction and must be the one deleting it,
// so concurrent requests with the same token cannot both succeed. The user's
// remaining reset tokens and all sessions are revoked.
func (r *GORMUserRepository) ResetPassword(ctx context.Context, token string, now time.Time, passwordHash string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rt models.PasswordResetToken
		if err := tx.First(&rt, "token = ?", token).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("reset token: %w", ErrNotFound)
			}
			return fmt.Errorf("failed to get reset token: %w", err)
		}
		if !rt.Valid(now) {
			return fmt.Errorf("reset token expired: %w", ErrNotFound)
		}

		res := tx.Where("id = ?", rt.ID).Delete(&models.PasswordResetToken{})
		if res.Error != nil {
			return fmt.Errorf("failed to consume reset token: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("reset token already used: %w", ErrNotFound)
		}

		upd := tx.Model(&models.User{}).Where("id = ?", rt.UserID).
			Updates(map[string]any{"password_hash": passwordHash, "updated_at": now})
		if upd.Error != nil {
			return fmt.Errorf("failed to update password for user %d: %w", rt.UserID, upd.Error)
		}
		if upd.RowsAffected == 0 {
			return fmt.Errorf("user with ID %d: %w", rt.UserID, ErrNotFound)
		}
		if err := tx.Where("user_id = ?", rt.UserID).Delete(&models.PasswordResetToken{}).Error; err != nil {
			return fmt.Errorf("failed to delete reset tokens for user %d: %w", rt.UserID, err)
		}
		if err := tx.Where("user_id = ?", rt.UserID).Delete(&models.Session{}).Error; err != nil {
			return fmt.Errorf("failed to delete sessions for user %d: %w", rt.UserID, err)
		}
		return nil
	})
}
