package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Register(t *testing.T) {
	t.Run("creates unverified active account with one verification token", func(t *testing.T) {
		env := newTestEnv(t)

		account, err := env.service.Register(context.Background(), "Alice@X.com", testName, testPassword)
		require.NoError(t, err)

		assert.Equal(t, "alice@x.com", account.Email, "email is normalized to lowercase")
		assert.True(t, account.IsActive)
		assert.False(t, account.IsEmailVerified)
		assert.Equal(t, 1, env.repo.activeVerificationCount(account.ID))

		send := env.notifier.last()
		assert.Equal(t, NotifyVerification, send.kind)
		assert.Equal(t, "alice@x.com", send.address)
		assert.Len(t, send.data["token"], 64)
	})

	t.Run("duplicate email", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.service.Register(context.Background(), testEmail, testName, testPassword)
		require.NoError(t, err)

		_, err = env.service.Register(context.Background(), "ALICE@x.com", "Other", testPassword)
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("weak password", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.service.Register(context.Background(), testEmail, testName, "weak")
		assert.ErrorIs(t, err, ErrWeakPassword)
		assert.Equal(t, 0, env.notifier.count())
	})

	t.Run("common password", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.service.Register(context.Background(), testEmail, testName, "password123")
		assert.ErrorIs(t, err, ErrWeakPassword)
	})
}

func TestService_VerifyEmail(t *testing.T) {
	t.Run("marks account verified", func(t *testing.T) {
		env := newTestEnv(t)
		env.registerVerified(t)

		account, err := env.repo.FindAccountByEmail(context.Background(), testEmail)
		require.NoError(t, err)
		assert.True(t, account.IsEmailVerified)
	})

	t.Run("second consumption fails without touching the account", func(t *testing.T) {
		env := newTestEnv(t)
		env.registerVerified(t)
		token := env.notifier.last().data["token"]

		_, err := env.service.VerifyEmail(context.Background(), token)
		assert.ErrorIs(t, err, ErrTokenUsed)

		account, findErr := env.repo.FindAccountByEmail(context.Background(), testEmail)
		require.NoError(t, findErr)
		assert.True(t, account.IsEmailVerified)
	})

	t.Run("unknown token", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.service.VerifyEmail(context.Background(), "deadbeef")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		env := newTestEnv(t)

		account, err := env.service.Register(context.Background(), testEmail, testName, testPassword)
		require.NoError(t, err)

		expired := &EmailVerification{
			AccountID: account.ID,
			Token:     "expiredtoken",
			ExpiresAt: time.Now().Add(-time.Minute),
		}
		require.NoError(t, env.repo.CreateVerificationToken(context.Background(), expired))

		_, err = env.service.VerifyEmail(context.Background(), "expiredtoken")
		assert.ErrorIs(t, err, ErrTokenExpired)
	})
}

func TestService_Login(t *testing.T) {
	t.Run("success issues token pair and stamps last login", func(t *testing.T) {
		env := newTestEnv(t)
		account := env.registerVerified(t)

		pair, err := env.service.Login(context.Background(), testEmail, testPassword)
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)

		stored, err := env.repo.FindAccountByID(context.Background(), account.ID)
		require.NoError(t, err)
		assert.NotNil(t, stored.LastLoginAt)
		assert.Equal(t, 0, stored.FailedLoginAttempts)

		refresh, err := env.repo.FindRefreshToken(context.Background(), pair.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, account.ID, refresh.AccountID)
		assert.False(t, refresh.IsRevoked)
	})

	t.Run("unknown email and wrong password yield the same error", func(t *testing.T) {
		env := newTestEnv(t)
		env.registerVerified(t)

		_, unknownErr := env.service.Login(context.Background(), "nobody@x.com", testPassword)
		_, wrongErr := env.service.Login(context.Background(), testEmail, "Wr0ng!Pass")

		assert.ErrorIs(t, unknownErr, ErrInvalidCredentials)
		assert.ErrorIs(t, wrongErr, ErrInvalidCredentials)
		assert.Equal(t, unknownErr.Error(), wrongErr.Error())
	})

	t.Run("wrong password increments the failure counter", func(t *testing.T) {
		env := newTestEnv(t)
		account := env.registerVerified(t)

		_, err := env.service.Login(context.Background(), testEmail, "Wr0ng!Pass")
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		stored, err := env.repo.FindAccountByID(context.Background(), account.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.FailedLoginAttempts)
		assert.Nil(t, stored.LockoutUntil)
	})

	t.Run("max failures lock the account even for the correct password", func(t *testing.T) {
		env := newTestEnv(t)
		account := env.registerVerified(t)

		for i := 0; i < env.config.MaxLoginAttempts; i++ {
			_, err := env.service.Login(context.Background(), testEmail, "Wr0ng!Pass")
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		}

		stored, err := env.repo.FindAccountByID(context.Background(), account.ID)
		require.NoError(t, err)
		assert.Equal(t, env.config.MaxLoginAttempts, stored.FailedLoginAttempts)
		require.NotNil(t, stored.LockoutUntil)

		_, err = env.service.Login(context.Background(), testEmail, testPassword)
		assert.ErrorIs(t, err, ErrAccountLocked)
	})

	t.Run("elapsed lockout unlocks lazily and login resets the counter", func(t *testing.T) {
		env := newTestEnv(t)
		account := env.registerVerified(t)

		for i := 0; i < env.config.MaxLoginAttempts; i++ {
			_, _ = env.service.Login(context.Background(), testEmail, "Wr0ng!Pass")
		}

		// Backdate the lockout instead of sleeping through it.
		past := time.Now().Add(-time.Second)
		env.repo.mutateAccount(account.ID, func(a *Account) {
			a.LockoutUntil = &past
		})

		pair, err := env.service.Login(context.Background(), testEmail, testPassword)
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)

		stored, err := env.repo.FindAccountByID(context.Background(), account.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, stored.FailedLoginAttempts)
		assert.Nil(t, stored.LockoutUntil)
	})

	t.Run("unverified email", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.service.Register(context.Background(), testEmail, testName, testPassword)
		require.NoError(t, err)

		_, err = env.service.Login(context.Background(), testEmail, testPassword)
		assert.ErrorIs(t, err, ErrEmailNotVerified)
	})

	t.Run("deactivated account", func(t *testing.T) {
		env := newTestEnv(t)
		account := env.registerVerified(t)

		env.repo.mutateAccount(account.ID, func(a *Account) {
			a.IsActive = false
		})

		_, err := env.service.Login(context.Background(), testEmail, testPassword)
		assert.ErrorIs(t, err, ErrAccountDeactivated)
	})
}

func TestService_RefreshAccessToken(t *testing.T) {
	t.Run("issues a new access token, refresh token unchanged", func(t *testing.T) {
		env := newTestEnv(t)
		env.registerVerified(t)

		pair, err := env.service.Login(context.Background(), testEmail, testPassword)
		require.NoError(t, err)

		accessToken, err := env.service.RefreshAccessToken(context.Background(), pair.RefreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, accessToken)

		// Not rotated: the same refresh token keeps working.
		_, err = env.service.RefreshAccessToken(context.Background(), pair.RefreshToken)
		assert.NoError(t, err)
	})

	t.Run("malformed token", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.service.RefreshAccessToken(context.Background(), "garbage")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("verifies but unknown to the store", func(t *testing.T) {
		env := newTestEnv(t)
		env.registerVerified(t)

		forge := NewTokenForge(env.config)
		foreign, err := forge.GenerateRefreshToken("acct-x", "alice@x.com")
		require.NoError(t, err)

		_, err = env.service.RefreshAccessToken(context.Background(), foreign)
		assert.ErrorIs(t, err, ErrTokenNotFound)
	})

	t.Run("revoked token", func(t *testing.T) {
		env := newTestEnv(t)
		env.registerVerified(t)

		pair, err := env.service.Login(context.Background(), testEmail, testPassword)
		require.NoError(t, err)

		require.NoError(t, env.service.Logout(context.Background(), pair.RefreshToken))

		_, err = env.service.RefreshAccessToken(context.Background(), pair.RefreshToken)
		assert.ErrorIs(t, err, ErrTokenRevoked)
	})
}

func TestService_ForgotPassword(t *testing.T) {
	t.Run("unknown email is silent", func(t *testing.T) {
		env := newTestEnv(t)

		env.service.ForgotPassword(context.Background(), "nobody@x.com")
		assert.Equal(t, 0, env.notifier.count())
	})

	t.Run("creates an OTP and notifies", func(t *testing.T) {
		env := newTestEnv(t)
		account := env.registerVerified(t)

		env.service.ForgotPassword(context.Background(), testEmail)

		send := env.notifier.last()
		assert.Equal(t, NotifyPasswordReset, send.kind)
		assert.Len(t, send.data["code"], 6)
		assert.Equal(t, 1, env.repo.activeResetCount(account.ID))
	})

	t.Run("second request invalidates the first code", func(t *testing.T) {
		env := newTestEnv(t)
		account := env.registerVerified(t)

		env.service.ForgotPassword(context.Background(), testEmail)
		firstCode := env.notifier.last().data["code"]

		env.service.ForgotPassword(context.Background(), testEmail)
		assert.Equal(t, 1, env.repo.activeResetCount(account.ID))

		err := env.service.ResetPassword(context.Background(), firstCode, "N3w!Passw0rd")
		assert.ErrorIs(t, err, ErrTokenUsed)
	})
}

func TestService_ResetPassword(t *testing.T) {
	t.Run("success swaps password and revokes all refresh tokens", func(t *testing.T) {
		env := newTestEnv(t)
		env.registerVerified(t)

		// Two live sessions.
		first, err := env.service.Login(context.Background(), testEmail, testPassword)
		require.NoError(t, err)
		second, err := env.service.Login(context.Background(), testEmail, testPassword)
		require.NoError(t, err)

		env.service.ForgotPassword(context.Background(), testEmail)
		code := env.notifier.last().data["code"]

		require.NoError(t, env.service.ResetPassword(context.Background(), code, "N3w!Passw0rd"))

		_, err = env.service.Login(context.Background(), testEmail, testPassword)
		assert.ErrorIs(t, err, ErrInvalidCredentials, "old password no longer works")

		pair, err := env.service.Login(context.Background(), testEmail, "N3w!Passw0rd")
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)

		_, err = env.service.RefreshAccessToken(context.Background(), first.RefreshToken)
		assert.ErrorIs(t, err, ErrTokenRevoked)
		_, err = env.service.RefreshAccessToken(context.Background(), second.RefreshToken)
		assert.ErrorIs(t, err, ErrTokenRevoked)
	})

	t.Run("unknown code", func(t *testing.T) {
		env := newTestEnv(t)

		err := env.service.ResetPassword(context.Background(), "000000", "N3w!Passw0rd")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("used code", func(t *testing.T) {
		env := newTestEnv(t)
		env.registerVerified(t)

		env.service.ForgotPassword(context.Background(), testEmail)
		code := env.notifier.last().data["code"]

		require.NoError(t, env.service.ResetPassword(context.Background(), code, "N3w!Passw0rd"))

		err := env.service.ResetPassword(context.Background(), code, "An0ther!Pass")
		assert.ErrorIs(t, err, ErrTokenUsed)
	})

	t.Run("expired code", func(t *testing.T) {
		env := newTestEnv(t)
		account := env.registerVerified(t)

		require.NoError(t, env.repo.CreateResetToken(context.Background(), &PasswordReset{
			AccountID: account.ID,
			TokenHash: HashResetCode("123456"),
			ExpiresAt: time.Now().Add(-time.Minute),
		}))

		err := env.service.ResetPassword(context.Background(), "123456", "N3w!Passw0rd")
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("weak replacement password leaves the token unconsumed", func(t *testing.T) {
		env := newTestEnv(t)
		account := env.registerVerified(t)

		env.service.ForgotPassword(context.Background(), testEmail)
		code := env.notifier.last().data["code"]

		err := env.service.ResetPassword(context.Background(), code, "weak")
		assert.ErrorIs(t, err, ErrWeakPassword)
		assert.Equal(t, 1, env.repo.activeResetCount(account.ID))

		// The same code still works with a strong password.
		assert.NoError(t, env.service.ResetPassword(context.Background(), code, "N3w!Passw0rd"))
	})
}

func TestService_ChangePassword(t *testing.T) {
	t.Run("success keeps refresh tokens valid", func(t *testing.T) {
		env := newTestEnv(t)
		account := env.registerVerified(t)

		pair, err := env.service.Login(context.Background(), testEmail, testPassword)
		require.NoError(t, err)

		err = env.service.ChangePassword(context.Background(), account.ID, testPassword, "N3w!Passw0rd")
		require.NoError(t, err)

		_, err = env.service.Login(context.Background(), testEmail, "N3w!Passw0rd")
		assert.NoError(t, err)

		// The session survives a password change.
		_, err = env.service.RefreshAccessToken(context.Background(), pair.RefreshToken)
		assert.NoError(t, err)

		assert.Equal(t, NotifyPasswordChanged, env.notifier.last().kind)
	})

	t.Run("wrong current password", func(t *testing.T) {
		env := newTestEnv(t)
		account := env.registerVerified(t)

		err := env.service.ChangePassword(context.Background(), account.ID, "Wr0ng!Pass", "N3w!Passw0rd")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("same password rejected via hash comparison", func(t *testing.T) {
		env := newTestEnv(t)
		account := env.registerVerified(t)

		err := env.service.ChangePassword(context.Background(), account.ID, testPassword, testPassword)
		assert.ErrorIs(t, err, ErrSamePassword)
	})

	t.Run("weak new password", func(t *testing.T) {
		env := newTestEnv(t)
		account := env.registerVerified(t)

		err := env.service.ChangePassword(context.Background(), account.ID, testPassword, "weak")
		assert.ErrorIs(t, err, ErrWeakPassword)
	})

	t.Run("unknown account", func(t *testing.T) {
		env := newTestEnv(t)

		err := env.service.ChangePassword(context.Background(), "missing", testPassword, "N3w!Passw0rd")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestService_Logout(t *testing.T) {
	env := newTestEnv(t)
	env.registerVerified(t)

	pair, err := env.service.Login(context.Background(), testEmail, testPassword)
	require.NoError(t, err)

	require.NoError(t, env.service.Logout(context.Background(), pair.RefreshToken))

	// Idempotent, and unknown tokens are a no-op.
	assert.NoError(t, env.service.Logout(context.Background(), pair.RefreshToken))
	assert.NoError(t, env.service.Logout(context.Background(), "unknown-token"))

	_, err = env.service.RefreshAccessToken(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

// TestService_FullLifecycle walks the whole happy path: register, verify,
// login, refresh, logout, then observe the revoked session.
func TestService_FullLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account, err := env.service.Register(ctx, "alice@x.com", "Alice", "Str0ng!Pass")
	require.NoError(t, err)
	assert.False(t, account.IsEmailVerified)

	token := env.notifier.last().data["token"]
	verified, err := env.service.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.True(t, verified.IsEmailVerified)

	pair, err := env.service.Login(ctx, "alice@x.com", "Str0ng!Pass")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	accessToken, err := env.service.RefreshAccessToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, accessToken)

	require.NoError(t, env.service.Logout(ctx, pair.RefreshToken))

	_, err = env.service.RefreshAccessToken(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}
