package auth

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Repository is the transactional store contract the orchestrator
// depends on. Every method listed as a "consume" runs as a single
// transaction with an atomic conditional mark-used, so two concurrent
// requests presenting the same one-time token cannot both succeed; the
// loser observes ErrTokenUsed.
type Repository interface {
	CreateAccount(ctx context.Context, account *Account) error
	FindAccountByEmail(ctx context.Context, email string) (*Account, error)
	FindAccountByID(ctx context.Context, id string) (*Account, error)
	UpdateAccount(ctx context.Context, id string, updates map[string]any) error

	CreateVerificationToken(ctx context.Context, token *EmailVerification) error
	ConsumeVerificationToken(ctx context.Context, token string) (*Account, error)

	InvalidateActiveResetTokens(ctx context.Context, accountID string) error
	CreateResetToken(ctx context.Context, token *PasswordReset) error
	FindResetToken(ctx context.Context, tokenHash string) (*PasswordReset, error)
	ConsumeResetToken(ctx context.Context, tokenHash, newPasswordHash string) (*Account, error)

	CreateRefreshToken(ctx context.Context, token *RefreshToken) error
	FindRefreshToken(ctx context.Context, token string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, token string) error
	RevokeAllRefreshTokens(ctx context.Context, accountID string) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateAccount(ctx context.Context, account *Account) error {
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *repository) FindAccountByEmail(ctx context.Context, email string) (*Account, error) {
	var account Account
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindAccountByID(ctx context.Context, id string) (*Account, error) {
	var account Account
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) UpdateAccount(ctx context.Context, id string, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&Account{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) CreateVerificationToken(ctx context.Context, token *EmailVerification) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// ConsumeVerificationToken marks the token used and the owning account
// verified in one transaction. The conditional update on is_used is the
// linearization point for concurrent consumers.
func (r *repository) ConsumeVerificationToken(ctx context.Context, token string) (*Account, error) {
	var account Account
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var verification EmailVerification
		if err := tx.Where("token = ?", token).First(&verification).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidToken
			}
			return err
		}
		if verification.IsUsed {
			return ErrTokenUsed
		}
		if time.Now().After(verification.ExpiresAt) {
			return ErrTokenExpired
		}

		res := tx.Model(&EmailVerification{}).
			Where("id = ? AND is_used = ?", verification.ID, false).
			Update("is_used", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTokenUsed
		}

		if err := tx.Model(&Account{}).
			Where("id = ?", verification.AccountID).
			Update("is_email_verified", true).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", verification.AccountID).First(&account).Error
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) InvalidateActiveResetTokens(ctx context.Context, accountID string) error {
	return r.db.WithContext(ctx).Model(&PasswordReset{}).
		Where("account_id = ? AND is_used = ?", accountID, false).
		Update("is_used", true).Error
}

func (r *repository) CreateResetToken(ctx context.Context, token *PasswordReset) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *repository) FindResetToken(ctx context.Context, tokenHash string) (*PasswordReset, error) {
	var reset PasswordReset
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&reset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return &reset, nil
}

// ConsumeResetToken applies the whole reset effect atomically: mark the
// token used, swap the password hash, revoke every refresh token the
// account owns. The password hash is computed by the caller before the
// transaction opens.
func (r *repository) ConsumeResetToken(ctx context.Context, tokenHash, newPasswordHash string) (*Account, error) {
	var account Account
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reset PasswordReset
		if err := tx.Where("token_hash = ?", tokenHash).First(&reset).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvalidToken
			}
			return err
		}
		if reset.IsUsed {
			return ErrTokenUsed
		}
		if time.Now().After(reset.ExpiresAt) {
			return ErrTokenExpired
		}

		res := tx.Model(&PasswordReset{}).
			Where("id = ? AND is_used = ?", reset.ID, false).
			Update("is_used", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTokenUsed
		}

		if err := tx.Model(&Account{}).
			Where("id = ?", reset.AccountID).
			Update("password_hash", newPasswordHash).Error; err != nil {
			return err
		}
		if err := tx.Model(&RefreshToken{}).
			Where("account_id = ?", reset.AccountID).
			Update("is_revoked", true).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", reset.AccountID).First(&account).Error
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) CreateRefreshToken(ctx context.Context, token *RefreshToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *repository) FindRefreshToken(ctx context.Context, token string) (*RefreshToken, error) {
	var refresh RefreshToken
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&refresh).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &refresh, nil
}

func (r *repository) RevokeRefreshToken(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).Model(&RefreshToken{}).
		Where("token = ?", token).
		Update("is_revoked", true).Error
}

func (r *repository) RevokeAllRefreshTokens(ctx context.Context, accountID string) error {
	return r.db.WithContext(ctx).Model(&RefreshToken{}).
		Where("account_id = ?", accountID).
		Update("is_revoked", true).Error
}
