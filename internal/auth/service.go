package auth

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/moodnote/auth-service/internal/config"
)

// Service is the auth orchestrator. It owns no state of its own; all
// account state lives behind Repository, and all collaborators are
// injected once at construction.
type Service struct {
	config     *config.AuthConfig
	log        *zap.Logger
	repository Repository
	forge      *TokenForge
	hasher     *Hasher
	guard      *LockoutGuard
	notifier   Notifier
}

// TokenPair is the result of a successful login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	Account      *Account
}

func NewService(config *config.AuthConfig, log *zap.Logger, repo Repository, notifier Notifier) *Service {
	return &Service{
		config:     config,
		log:        log,
		repository: repo,
		forge:      NewTokenForge(config),
		hasher:     NewHasher(config.BcryptCost),
		guard:      NewLockoutGuard(config),
		notifier:   notifier,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an unverified, active account and issues its email
// verification token. The verification mail is fire-and-forget.
func (s *Service) Register(ctx context.Context, email, name, password string) (*Account, error) {
	email = normalizeEmail(email)

	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	if _, err := s.repository.FindAccountByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	account := &Account{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.repository.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	token, err := NewVerificationToken()
	if err != nil {
		return nil, err
	}
	verification := &EmailVerification{
		AccountID: account.ID,
		Token:     token,
		ExpiresAt: time.Now().Add(s.config.VerificationDuration),
	}
	if err := s.repository.CreateVerificationToken(ctx, verification); err != nil {
		return nil, err
	}

	s.notify(ctx, NotifyVerification, account.Email, map[string]string{
		"name":  account.Name,
		"token": token,
	})

	return account, nil
}

// VerifyEmail consumes a verification token; marking the token used and
// flipping the account flag happen in one store transaction.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*Account, error) {
	return s.repository.ConsumeVerificationToken(ctx, token)
}

// Login validates credentials and issues an access/refresh token pair.
// Unknown email and wrong password are indistinguishable to the caller;
// a wrong password still advances the lockout counter as a side effect.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	email = normalizeEmail(email)

	account, err := s.repository.FindAccountByEmail(ctx, email)
	if err != nil {
		// Burn a hash so the unknown-email branch costs the same as a
		// password check.
		_, _ = s.hasher.Hash("dummy")
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	if s.guard.IsLocked(account, now) {
		return nil, ErrAccountLocked
	}
	if s.guard.ShouldReset(account, now) {
		if err := s.repository.UpdateAccount(ctx, account.ID, map[string]any{
			"failed_login_attempts": 0,
			"lockout_until":         nil,
		}); err != nil {
			return nil, err
		}
		account.FailedLoginAttempts = 0
		account.LockoutUntil = nil
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		attempts, lockoutUntil := s.guard.RecordFailure(account, now)
		updates := map[string]any{"failed_login_attempts": attempts}
		if lockoutUntil != nil {
			updates["lockout_until"] = lockoutUntil
		}
		if err := s.repository.UpdateAccount(ctx, account.ID, updates); err != nil {
			s.log.Error("failed to record login failure",
				zap.String("account_id", account.ID),
				zap.Error(err))
		}
		return nil, ErrInvalidCredentials
	}

	if !account.IsEmailVerified {
		return nil, ErrEmailNotVerified
	}
	if !account.IsActive {
		return nil, ErrAccountDeactivated
	}

	if err := s.repository.UpdateAccount(ctx, account.ID, map[string]any{
		"failed_login_attempts": 0,
		"lockout_until":         nil,
		"last_login_at":         now,
	}); err != nil {
		return nil, err
	}

	accessToken, err := s.forge.GenerateAccessToken(account.ID, account.Email)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.forge.GenerateRefreshToken(account.ID, account.Email)
	if err != nil {
		return nil, err
	}

	if err := s.repository.CreateRefreshToken(ctx, &RefreshToken{
		AccountID: account.ID,
		Token:     refreshToken,
		ExpiresAt: now.Add(s.config.RefreshTokenDuration),
	}); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Account:      account,
	}, nil
}

// RefreshAccessToken exchanges a valid refresh token for a fresh access
// token. The refresh token itself is not rotated; it stays valid until
// its own expiry or explicit revocation.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.forge.VerifyRefreshToken(refreshToken)
	if err != nil {
		return "", err
	}

	stored, err := s.repository.FindRefreshToken(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	if stored.IsRevoked {
		return "", ErrTokenRevoked
	}
	if time.Now().After(stored.ExpiresAt) {
		return "", ErrTokenExpired
	}

	return s.forge.GenerateAccessToken(claims.AccountID, claims.Email)
}

// ForgotPassword never fails outwardly: the caller gets the same result
// whether or not the email maps to an account, and internal errors are
// logged and swallowed.
func (s *Service) ForgotPassword(ctx context.Context, email string) {
	email = normalizeEmail(email)

	account, err := s.repository.FindAccountByEmail(ctx, email)
	if err != nil {
		return
	}

	code, err := NewResetCode()
	if err != nil {
		s.log.Error("failed to generate reset code", zap.Error(err))
		return
	}

	if err := s.repository.InvalidateActiveResetTokens(ctx, account.ID); err != nil {
		s.log.Error("failed to invalidate reset tokens",
			zap.String("account_id", account.ID),
			zap.Error(err))
		return
	}

	if err := s.repository.CreateResetToken(ctx, &PasswordReset{
		AccountID: account.ID,
		TokenHash: HashResetCode(code),
		ExpiresAt: time.Now().Add(s.config.ResetDuration),
	}); err != nil {
		s.log.Error("failed to create reset token",
			zap.String("account_id", account.ID),
			zap.Error(err))
		return
	}

	s.notify(ctx, NotifyPasswordReset, account.Email, map[string]string{
		"name": account.Name,
		"code": code,
	})
}

// ResetPassword consumes a reset code, swaps the password hash and
// revokes every refresh token the account owns, atomically.
func (s *Service) ResetPassword(ctx context.Context, code, newPassword string) error {
	tokenHash := HashResetCode(code)

	// Precondition read so an invalid code is reported before password
	// validation; the consume transaction re-checks is_used atomically.
	reset, err := s.repository.FindResetToken(ctx, tokenHash)
	if err != nil {
		return err
	}
	if reset.IsUsed {
		return ErrTokenUsed
	}
	if time.Now().After(reset.ExpiresAt) {
		return ErrTokenExpired
	}

	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	account, err := s.repository.ConsumeResetToken(ctx, tokenHash, hash)
	if err != nil {
		return err
	}

	s.notify(ctx, NotifyPasswordChanged, account.Email, map[string]string{
		"name": account.Name,
	})
	return nil
}

// ChangePassword swaps the password of an authenticated account. The
// same-password check compares against the stored hash, not plaintext.
// Existing refresh tokens stay valid.
func (s *Service) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	account, err := s.repository.FindAccountByID(ctx, accountID)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(currentPassword, account.PasswordHash) {
		return ErrInvalidCredentials
	}

	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	if s.hasher.Verify(newPassword, account.PasswordHash) {
		return ErrSamePassword
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.repository.UpdateAccount(ctx, account.ID, map[string]any{
		"password_hash": hash,
	}); err != nil {
		return err
	}

	s.notify(ctx, NotifyPasswordChanged, account.Email, map[string]string{
		"name": account.Name,
	})
	return nil
}

// Logout revokes the presented refresh token. Unknown tokens are a
// no-op; the operation is idempotent.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if err := s.repository.RevokeRefreshToken(ctx, refreshToken); err != nil {
		s.log.Error("failed to revoke refresh token", zap.Error(err))
	}
	return nil
}

func (s *Service) notify(ctx context.Context, kind NotificationKind, address string, data map[string]string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, kind, address, data); err != nil {
		s.log.Error("notification failed",
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}
