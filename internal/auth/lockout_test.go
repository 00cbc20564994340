package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockoutGuard_StateTransitions(t *testing.T) {
	guard := NewLockoutGuard(newTestConfig())
	now := time.Now()

	t.Run("open account accumulates failures", func(t *testing.T) {
		account := &Account{FailedLoginAttempts: 0}

		attempts, until := guard.RecordFailure(account, now)
		assert.Equal(t, 1, attempts)
		assert.Nil(t, until)
	})

	t.Run("reaching max attempts locks", func(t *testing.T) {
		account := &Account{FailedLoginAttempts: 4}

		attempts, until := guard.RecordFailure(account, now)
		assert.Equal(t, 5, attempts)
		require.NotNil(t, until)
		assert.WithinDuration(t, now.Add(15*time.Minute), *until, time.Second)
	})

	t.Run("locked while before lockoutUntil", func(t *testing.T) {
		until := now.Add(time.Minute)
		account := &Account{FailedLoginAttempts: 5, LockoutUntil: &until}

		assert.True(t, guard.IsLocked(account, now))
		assert.False(t, guard.ShouldReset(account, now))
	})

	t.Run("elapsed lockout resets lazily", func(t *testing.T) {
		until := now.Add(-time.Second)
		account := &Account{FailedLoginAttempts: 5, LockoutUntil: &until}

		assert.False(t, guard.IsLocked(account, now))
		assert.True(t, guard.ShouldReset(account, now))
	})

	t.Run("no lockout recorded means open", func(t *testing.T) {
		account := &Account{FailedLoginAttempts: 3}

		assert.False(t, guard.IsLocked(account, now))
		assert.False(t, guard.ShouldReset(account, now))
	})
}
