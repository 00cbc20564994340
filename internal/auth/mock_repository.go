package auth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// mockRepository is an in-memory store for tests. Consume operations
// take the same all-or-nothing shape as the gorm implementation so the
// orchestrator sees identical semantics.
type mockRepository struct {
	mu            sync.Mutex
	accounts      map[string]*Account
	verifications map[string]*EmailVerification
	resets        map[string]*PasswordReset
	refreshTokens map[string]*RefreshToken
	nextID        int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		accounts:      make(map[string]*Account),
		verifications: make(map[string]*EmailVerification),
		resets:        make(map[string]*PasswordReset),
		refreshTokens: make(map[string]*RefreshToken),
	}
}

func (r *mockRepository) newID() string {
	r.nextID++
	return fmt.Sprintf("id-%d", r.nextID)
}

func copyAccount(a *Account) *Account {
	clone := *a
	return &clone
}

func (r *mockRepository) CreateAccount(_ context.Context, account *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.accounts {
		if existing.Email == account.Email {
			return ErrEmailTaken
		}
	}
	if account.ID == "" {
		account.ID = r.newID()
	}
	r.accounts[account.ID] = copyAccount(account)
	return nil
}

func (r *mockRepository) FindAccountByEmail(_ context.Context, email string) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, account := range r.accounts {
		if account.Email == email {
			return copyAccount(account), nil
		}
	}
	return nil, ErrNotFound
}

func (r *mockRepository) FindAccountByID(_ context.Context, id string) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyAccount(account), nil
}

func (r *mockRepository) UpdateAccount(_ context.Context, id string, updates map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[id]
	if !ok {
		return ErrNotFound
	}
	applyAccountUpdates(account, updates)
	return nil
}

func applyAccountUpdates(account *Account, updates map[string]any) {
	for column, value := range updates {
		switch column {
		case "failed_login_attempts":
			account.FailedLoginAttempts = value.(int)
		case "lockout_until":
			if value == nil {
				account.LockoutUntil = nil
			} else {
				account.LockoutUntil = value.(*time.Time)
			}
		case "last_login_at":
			t := value.(time.Time)
			account.LastLoginAt = &t
		case "password_hash":
			account.PasswordHash = value.(string)
		case "is_email_verified":
			account.IsEmailVerified = value.(bool)
		case "is_active":
			account.IsActive = value.(bool)
		}
	}
}

func (r *mockRepository) CreateVerificationToken(_ context.Context, token *EmailVerification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token.ID == "" {
		token.ID = r.newID()
	}
	clone := *token
	r.verifications[token.Token] = &clone
	return nil
}

func (r *mockRepository) ConsumeVerificationToken(_ context.Context, token string) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	verification, ok := r.verifications[token]
	if !ok {
		return nil, ErrInvalidToken
	}
	if verification.IsUsed {
		return nil, ErrTokenUsed
	}
	if time.Now().After(verification.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	account, ok := r.accounts[verification.AccountID]
	if !ok {
		return nil, ErrNotFound
	}

	verification.IsUsed = true
	account.IsEmailVerified = true
	return copyAccount(account), nil
}

func (r *mockRepository) InvalidateActiveResetTokens(_ context.Context, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, reset := range r.resets {
		if reset.AccountID == accountID && !reset.IsUsed {
			reset.IsUsed = true
		}
	}
	return nil
}

func (r *mockRepository) CreateResetToken(_ context.Context, token *PasswordReset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token.ID == "" {
		token.ID = r.newID()
	}
	clone := *token
	r.resets[token.TokenHash] = &clone
	return nil
}

func (r *mockRepository) FindResetToken(_ context.Context, tokenHash string) (*PasswordReset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reset, ok := r.resets[tokenHash]
	if !ok {
		return nil, ErrInvalidToken
	}
	clone := *reset
	return &clone, nil
}

func (r *mockRepository) ConsumeResetToken(_ context.Context, tokenHash, newPasswordHash string) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reset, ok := r.resets[tokenHash]
	if !ok {
		return nil, ErrInvalidToken
	}
	if reset.IsUsed {
		return nil, ErrTokenUsed
	}
	if time.Now().After(reset.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	account, ok := r.accounts[reset.AccountID]
	if !ok {
		return nil, ErrNotFound
	}

	reset.IsUsed = true
	account.PasswordHash = newPasswordHash
	for _, refresh := range r.refreshTokens {
		if refresh.AccountID == reset.AccountID {
			refresh.IsRevoked = true
		}
	}
	return copyAccount(account), nil
}

func (r *mockRepository) CreateRefreshToken(_ context.Context, token *RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token.ID == "" {
		token.ID = r.newID()
	}
	clone := *token
	r.refreshTokens[token.Token] = &clone
	return nil
}

func (r *mockRepository) FindRefreshToken(_ context.Context, token string) (*RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	refresh, ok := r.refreshTokens[token]
	if !ok {
		return nil, ErrTokenNotFound
	}
	clone := *refresh
	return &clone, nil
}

func (r *mockRepository) RevokeRefreshToken(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if refresh, ok := r.refreshTokens[token]; ok {
		refresh.IsRevoked = true
	}
	return nil
}

func (r *mockRepository) RevokeAllRefreshTokens(_ context.Context, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, refresh := range r.refreshTokens {
		if refresh.AccountID == accountID {
			refresh.IsRevoked = true
		}
	}
	return nil
}

// activeVerificationCount reports unused, unexpired verification tokens
// owned by the account. Test helper.
func (r *mockRepository) activeVerificationCount(accountID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	now := time.Now()
	for _, v := range r.verifications {
		if v.AccountID == accountID && !v.IsUsed && now.Before(v.ExpiresAt) {
			count++
		}
	}
	return count
}

// activeResetCount reports unused, unexpired reset tokens owned by the
// account. Test helper.
func (r *mockRepository) activeResetCount(accountID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	now := time.Now()
	for _, reset := range r.resets {
		if reset.AccountID == accountID && !reset.IsUsed && now.Before(reset.ExpiresAt) {
			count++
		}
	}
	return count
}

// mutateAccount applies fn to the stored account under the lock. Test
// helper for backdating lockouts and similar setups.
func (r *mockRepository) mutateAccount(accountID string, fn func(*Account)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if account, ok := r.accounts[accountID]; ok {
		fn(account)
	}
}
