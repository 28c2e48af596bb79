package services

import (
	"context"
	"errors"

	"z7shop/internal/models"
	"z7shop/internal/repositories"
)

// AdminService handles user administration.
type AdminService struct {
	users repositories.UserRepository
}

// NewAdminService creates a new AdminService.
func NewAdminService(users repositories.UserRepository) *AdminService {
	return &AdminService{users: users}
}

// ListUsers returns every account, newest first.
func (s *AdminService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

// ToggleAdmin grants or revokes admin rights on target. Admins cannot demote
// themselves and super admins cannot be demoted at all.
func (s *AdminService) ToggleAdmin(ctx context.Context, actor *models.User, targetID uint, isAdmin bool) error {
	if targetID == actor.ID && !isAdmin {
		return ErrSelfDemotion
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if target.IsSuperAdmin && !isAdmin {
		return ErrSuperAdminDemotion
	}

	if err := s.users.SetAdmin(ctx, targetID, isAdmin); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}
