package auth

import (
	"time"

	"github.com/moodnote/auth-service/internal/config"
)

// LockoutGuard decides the failed-login state machine for an account:
// Open while attempts stay under the max, Locked until lockoutUntil
// once the max is reached. Unlocking is lazy; the next request that
// observes an elapsed lockout resets the counter.
type LockoutGuard struct {
	maxAttempts     int
	lockoutDuration time.Duration
}

func NewLockoutGuard(config *config.AuthConfig) *LockoutGuard {
	return &LockoutGuard{
		maxAttempts:     config.MaxLoginAttempts,
		lockoutDuration: config.LockoutDuration,
	}
}

// IsLocked reports whether the account is inside an active lockout
// window at the given instant.
func (g *LockoutGuard) IsLocked(account *Account, now time.Time) bool {
	return account.LockoutUntil != nil && now.Before(*account.LockoutUntil)
}

// ShouldReset reports whether a past lockout window should be cleared
// before the request proceeds.
func (g *LockoutGuard) ShouldReset(account *Account, now time.Time) bool {
	return account.LockoutUntil != nil && !now.Before(*account.LockoutUntil)
}

// RecordFailure returns the account's next failure count and, when the
// count reaches the configured max, the lockout deadline to persist.
func (g *LockoutGuard) RecordFailure(account *Account, now time.Time) (attempts int, lockoutUntil *time.Time) {
	attempts = account.FailedLoginAttempts + 1
	if attempts >= g.maxAttempts {
		until := now.Add(g.lockoutDuration)
		lockoutUntil = &until
	}
	return attempts, lockoutUntil
}
