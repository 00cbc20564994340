package auth

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account is the root entity. Emails are normalized to lowercase before
// they reach the store; the unique index enforces global uniqueness.
type Account struct {
	ID           string `gorm:"primaryKey;type:uuid"`
	Email        string `gorm:"uniqueIndex;not null"`
	Name         string `gorm:"not null"`
	PasswordHash string `gorm:"not null"`

	IsActive        bool `gorm:"not null;default:true"`
	IsEmailVerified bool `gorm:"not null;default:false"`

	FailedLoginAttempts int        `gorm:"not null;default:0"`
	LockoutUntil        *time.Time `gorm:""`
	LastLoginAt         *time.Time `gorm:""`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Account) TableName() string {
	return "accounts"
}

func (a *Account) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// EmailVerification is a one-shot opaque token created at registration
// and consumed exactly once by the verify-email flow.
type EmailVerification struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	AccountID string `gorm:"index;not null"`
	Token     string `gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time
	IsUsed    bool `gorm:"not null;default:false"`
	CreatedAt time.Time
}

func (EmailVerification) TableName() string {
	return "email_verifications"
}

func (v *EmailVerification) BeforeCreate(*gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// PasswordReset stores the SHA-256 of a numeric one-time code, never
// the code itself. At most one row per account is active (unused and
// unexpired) at any time.
type PasswordReset struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	AccountID string `gorm:"index;not null"`
	TokenHash string `gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time
	IsUsed    bool `gorm:"not null;default:false"`
	CreatedAt time.Time
}

func (PasswordReset) TableName() string {
	return "password_resets"
}

func (p *PasswordReset) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// RefreshToken is one persisted session. Several may coexist per
// account; logout revokes one, a password reset revokes them all.
type RefreshToken struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	AccountID string `gorm:"index;not null"`
	Token     string `gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time
	IsRevoked bool `gorm:"not null;default:false"`
	CreatedAt time.Time
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (r *RefreshToken) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
