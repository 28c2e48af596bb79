package models

import "time"

// User represents a customer or administrator account.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255);not null"` // No json tag for security
	FirstName    *string   `json:"firstName" gorm:"type:varchar(100)"`
	LastName     *string   `json:"lastName" gorm:"type:varchar(100)"`
	IsAdmin      bool      `json:"isAdmin" gorm:"not null;default:false"`
	IsSuperAdmin bool      `json:"isSuperAdmin" gorm:"not null;default:false"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Sessions    []Session            `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	ResetTokens []PasswordResetToken `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}
