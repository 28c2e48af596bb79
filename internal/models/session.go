package models

import "time"

// Session is a server-side login session referenced by the auth cookie.
type Session struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;index"`
	Token     string    `gorm:"uniqueIndex;type:varchar(128);not null"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time
}

// Valid reports whether the session can still authenticate requests at now.
// A session stops being valid at the instant it expires.
func (s *Session) Valid(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// PasswordResetToken is a single-use token mailed to a user who forgot their password.
type PasswordResetToken struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;index"`
	Token     string    `gorm:"uniqueIndex;type:varchar(128);not null"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time
}

// Valid reports whether the token is still usable at now.
func (t *PasswordResetToken) Valid(now time.Time) bool {
	return now.Before(t.ExpiresAt)
}
