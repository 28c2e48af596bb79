package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"z7shop/internal/metrics"
	"z7shop/internal/models"
	"z7shop/internal/repositories"
	"z7shop/pkg/mailer"

	"golang.org/x/crypto/bcrypt"
)

const sessionTokenBytes = 32

// AuthConfig carries the settings AuthService needs.
type AuthConfig struct {
	SessionTTL    time.Duration
	ResetTokenTTL time.Duration
	AppURL        string
	MailFrom      string
}

// AuthService handles business logic for accounts, sessions and password resets.
type AuthService struct {
	users       repositories.UserRepository
	sessions    repositories.SessionRepository
	resetTokens repositories.ResetTokenRepository
	mailer      Mailer
	cfg         AuthConfig

	Logger  *slog.Logger
	Metrics metrics.Recorder
	Now     func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	users repositories.UserRepository,
	sessions repositories.SessionRepository,
	resetTokens repositories.ResetTokenRepository,
	mail Mailer,
	cfg AuthConfig,
) *AuthService {
	return &AuthService{
		users:       users,
		sessions:    sessions,
		resetTokens: resetTokens,
		mailer:      mail,
		cfg:         cfg,
		Logger:      slog.Default(),
		Metrics:     metrics.Nop{},
		Now:         time.Now,
	}
}

// NormalizeEmail trims and lower-cases an address for lookup and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignupInput is the data needed to create an account.
type SignupInput struct {
	Email     string
	Password  string
	FirstName *string
	LastName  *string
}

// Signup registers a new user and logs them in.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.User, *models.Session, error) {
	email := NormalizeEmail(in.Email)

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, nil, ErrEmailTaken
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// Lost a race with a concurrent signup for the same address.
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, nil, ErrEmailTaken
		}
		return nil, nil, err
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

// Login checks the credentials and opens a new session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, *models.Session, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

// Logout deletes the session behind token, if any.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.DeleteByToken(ctx, token)
}

// CurrentUser resolves a session token to its user.
// Expired sessions are deleted on sight.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrNoSession
	}

	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}

	if !session.Valid(s.Now()) {
		if err := s.sessions.DeleteByToken(ctx, token); err != nil {
			s.Logger.Warn("failed to delete expired session", slog.Any("error", err))
		}
		return nil, ErrInvalidSession
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) createSession(ctx context.Context, userID uint) (*models.Session, error) {
	token, err := randomHex(sessionTokenBytes)
	if err != nil {
		return nil, err
	}
	session := &models.Session{
		UserID:    userID,
		Token:     token,
		ExpiresAt: s.Now().Add(s.cfg.SessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// RequestPasswordReset issues a reset token and mails the link. Unknown
// addresses succeed silently so callers cannot probe for accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil
		}
		return err
	}

	token, err := randomHex(sessionTokenBytes)
	if err != nil {
		return err
	}
	if err := s.resetTokens.Replace(ctx, &models.PasswordResetToken{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: s.Now().Add(s.cfg.ResetTokenTTL),
	}); err != nil {
		return err
	}

	err = s.sendResetEmail(ctx, user.Email, token)
	s.Metrics.RecordEmail("reset_password", err)
	if err != nil {
		s.Logger.Error("failed to send password reset email",
			slog.Uint64("user_id", uint64(user.ID)), slog.Any("error", err))
	}
	return nil
}

func (s *AuthService) sendResetEmail(ctx context.Context, to, token string) error {
	html, err := mailer.RenderPasswordReset(mailer.PasswordResetEmail{
		ResetLink: fmt.Sprintf("%s/reset-password?token=%s", s.cfg.AppURL, token),
		Year:      s.Now().Year(),
	})
	if err != nil {
		return err
	}
	_, err = s.mailer.Send(ctx, mailer.Message{
		From:    s.cfg.MailFrom,
		To:      []string{to},
		Subject: "Reset Your Password",
		HTML:    html,
	})
	return err
}

// ResetPassword consumes a reset token and sets a new password. All of the
// user's sessions are revoked. The lookup here only rejects bad tokens before
// hashing; the repository consumes the token atomically.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	rt, err := s.resetTokens.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	if !rt.Valid(s.Now()) {
		return ErrInvalidResetToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.ResetPassword(ctx, token, s.Now(), string(hash)); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	return nil
}

// CreateAdmin creates an administrator account, or promotes an existing one.
func (s *AuthService) CreateAdmin(ctx context.Context, email, password string, super bool) (*models.User, error) {
	email = NormalizeEmail(email)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		IsAdmin:      true,
		IsSuperAdmin: super,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if !errors.Is(err, repositories.ErrDuplicate) {
			return nil, err
		}
		existing, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if err := s.users.SetAdmin(ctx, existing.ID, true); err != nil {
			return nil, err
		}
		existing.IsAdmin = true
		return existing, nil
	}
	return user, nil
}
