package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/moodnote/auth-service/internal/config"
)

func newTestLogger(t *testing.T) *zap.Logger {
	logger, err := zap.NewDevelopment()
	assert.NoError(t, err)
	return logger
}

func newTestConfig() *config.AuthConfig {
	return &config.AuthConfig{
		AccessTokenSecret:    "test-access-secret",
		RefreshTokenSecret:   "test-refresh-secret",
		AccessTokenDuration:  time.Hour,
		RefreshTokenDuration: time.Hour * 24,
		VerificationDuration: time.Hour * 24,
		ResetDuration:        time.Hour,
		MaxLoginAttempts:     5,
		LockoutDuration:      time.Minute * 15,
		// bcrypt's minimum cost keeps the suite fast; production uses 12.
		BcryptCost: 4,
	}
}

// recordingNotifier captures sends so tests can pull issued tokens and
// reset codes out of the notification payloads.
type recordingNotifier struct {
	mu    sync.Mutex
	sends []recordedSend
}

type recordedSend struct {
	kind    NotificationKind
	address string
	data    map[string]string
}

func (n *recordingNotifier) Send(_ context.Context, kind NotificationKind, address string, data map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sends = append(n.sends, recordedSend{kind: kind, address: address, data: data})
	return nil
}

func (n *recordingNotifier) last() recordedSend {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sends) == 0 {
		return recordedSend{}
	}
	return n.sends[len(n.sends)-1]
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sends)
}

type testEnv struct {
	service  *Service
	repo     *mockRepository
	notifier *recordingNotifier
	config   *config.AuthConfig
}

func newTestEnv(t *testing.T) *testEnv {
	repo := newMockRepository()
	notifier := &recordingNotifier{}
	cfg := newTestConfig()
	return &testEnv{
		service:  NewService(cfg, newTestLogger(t), repo, notifier),
		repo:     repo,
		notifier: notifier,
		config:   cfg,
	}
}

const (
	testEmail    = "alice@x.com"
	testName     = "Alice"
	testPassword = "Str0ng!Pass"
)

// registerVerified registers and verifies an account in one step.
func (e *testEnv) registerVerified(t *testing.T) *Account {
	t.Helper()

	account, err := e.service.Register(context.Background(), testEmail, testName, testPassword)
	require.NoError(t, err)

	token := e.notifier.last().data["token"]
	require.NotEmpty(t, token)

	verified, err := e.service.VerifyEmail(context.Background(), token)
	require.NoError(t, err)
	require.True(t, verified.IsEmailVerified)

	return account
}
