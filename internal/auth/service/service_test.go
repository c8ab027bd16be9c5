package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/auth/internal/auth/domain"
	"github.com/edustack/auth/internal/auth/notify"
	"github.com/edustack/auth/internal/auth/store"
	"github.com/edustack/auth/internal/auth/store/drivers/sqlite"
	"github.com/edustack/auth/pkg/cryptox"
	"github.com/edustack/auth/pkg/jwtx"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "service-pepper-*")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// fakeClock lets tests march time forward deterministically.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now().UTC()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// capturingNotifier records every message instead of delivering it.
type capturingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

var _ notify.Notifier = (*capturingNotifier)(nil)

type sentMessage struct {
	To      string
	Subject string
	Body    string
}

func (n *capturingNotifier) Send(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{To: to, Subject: subject, Body: body})
	return nil
}

func (n *capturingNotifier) messages() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMessage(nil), n.sent...)
}

type testEnv struct {
	store    store.Store
	tokens   *TokenService
	resets   *ResetService
	auth     *AuthService
	clock    *fakeClock
	notifier *capturingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "service_test.db"))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	codec, err := jwtx.NewCodec([]byte("0123456789abcdef0123456789abcdef"), "edustack-auth", time.Hour)
	require.NoError(t, err)

	clock := newFakeClock()
	notifier := &capturingNotifier{}

	tokens := NewTokenService(st, codec, 7*24*time.Hour)
	tokens.now = clock.Now

	resets := NewResetService(st, notifier, time.Hour)
	resets.now = clock.Now
	resets.dispatch = func(fn func()) { fn() } // synchronous for assertions

	return &testEnv{
		store:    st,
		tokens:   tokens,
		resets:   resets,
		auth:     NewAuthService(st, tokens, resets),
		clock:    clock,
		notifier: notifier,
	}
}

func (e *testEnv) register(t *testing.T, username, email, password string) AuthResult {
	t.Helper()

	res, err := e.auth.Register(context.Background(), RegisterParams{
		Username:  username,
		Email:     email,
		Password:  password,
		FirstName: "Test",
		LastName:  "User",
	}, domain.DeviceContext{UserAgent: "go-test", IPAddress: "127.0.0.1"})
	require.NoError(t, err)
	return res
}

var testDevice = domain.DeviceContext{UserAgent: "go-test", IPAddress: "127.0.0.1"}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.register(t, "alice", "alice@example.com", "correct horse battery")
	assert.NotEmpty(t, res.UserID)
	assert.Equal(t, "alice", res.Username)
	assert.NotEmpty(t, res.Pair.AccessToken)
	assert.NotEmpty(t, res.Pair.RefreshToken)
	assert.Equal(t, "Bearer", res.Pair.TokenType)
	assert.Equal(t, []string{domain.DefaultRole}, res.Roles)

	// Duplicate username.
	_, err := env.auth.Register(ctx, RegisterParams{
		Username: "alice", Email: "alice2@example.com", Password: "another password",
	}, testDevice)
	assert.ErrorIs(t, err, ErrUserExists)

	// Duplicate email.
	_, err = env.auth.Register(ctx, RegisterParams{
		Username: "alice2", Email: "alice@example.com", Password: "another password",
	}, testDevice)
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestRegister_WeakPassword(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.auth.Register(context.Background(), RegisterParams{
		Username: "alice", Email: "alice@example.com", Password: "short",
	}, testDevice)
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.register(t, "alice", "alice@example.com", "correct horse battery")

	// By username.
	res, err := env.auth.Login(ctx, "alice", "correct horse battery", testDevice)
	require.NoError(t, err)
	assert.Equal(t, "alice", res.Username)

	// By email.
	res, err = env.auth.Login(ctx, "alice@example.com", "correct horse battery", testDevice)
	require.NoError(t, err)
	assert.Equal(t, "alice", res.Username)

	// Wrong password and unknown user collapse to the same error.
	_, err = env.auth.Login(ctx, "alice", "wrong password!", testDevice)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.auth.Login(ctx, "nobody", "whatever password", testDevice)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_DisabledAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.register(t, "alice", "alice@example.com", "correct horse battery")
	require.NoError(t, env.auth.SetUserEnabled(ctx, res.UserID, false))

	_, err := env.auth.Login(ctx, "alice", "correct horse battery", testDevice)
	assert.ErrorIs(t, err, ErrAccountDisabled)

	// The pre-deactivation refresh token is dead too.
	_, err = env.auth.Refresh(ctx, res.Pair.RefreshToken, testDevice)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestLogin_SweepsExpiredTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.register(t, "alice", "alice@example.com", "correct horse battery")

	env.clock.Advance(8 * 24 * time.Hour) // past the 7d refresh TTL

	_, err := env.auth.Login(ctx, "alice", "correct horse battery", testDevice)
	require.NoError(t, err)

	// The first token is now marked revoked, not just silently expired.
	hash := cryptox.FingerprintToken(res.Pair.RefreshToken)
	record, err := env.store.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
	require.NoError(t, err)
	assert.NotNil(t, record.RevokedAt)
}

func TestRefresh_RotatesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.register(t, "alice", "alice@example.com", "correct horse battery")

	rotated, err := env.auth.Refresh(ctx, res.Pair.RefreshToken, testDevice)
	require.NoError(t, err)
	assert.NotEmpty(t, rotated.Pair.RefreshToken)
	assert.NotEqual(t, res.Pair.RefreshToken, rotated.Pair.RefreshToken)
	assert.Equal(t, res.UserID, rotated.UserID)

	// The new token works.
	_, err = env.auth.Refresh(ctx, rotated.Pair.RefreshToken, testDevice)
	require.NoError(t, err)
}

func TestRefresh_ReuseOfRotatedTokenFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.register(t, "alice", "alice@example.com", "correct horse battery")

	_, err := env.auth.Refresh(ctx, res.Pair.RefreshToken, testDevice)
	require.NoError(t, err)

	// Replaying the rotated-away token is a hard failure.
	_, err = env.auth.Refresh(ctx, res.Pair.RefreshToken, testDevice)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRefresh_ConcurrentRotationHasOneWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.register(t, "alice", "alice@example.com", "correct horse battery")

	// Race many rotations of the same token. The guarded revoke decides
	// the winner; everyone else must see the token as already revoked.
	const workers = 16
	start := make(chan struct{})
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = env.tokens.Rotate(ctx, res.Pair.RefreshToken, testDevice)
		}(i)
	}
	close(start)
	wg.Wait()

	var wins, revoked int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrTokenRevoked):
			revoked++
		default:
			t.Fatalf("unexpected rotation error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, workers-1, revoked)
}

func TestRefresh_ExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.register(t, "alice", "alice@example.com", "correct horse battery")

	env.clock.Advance(8 * 24 * time.Hour)

	_, err := env.auth.Refresh(ctx, res.Pair.RefreshToken, testDevice)
	assert.ErrorIs(t, err, ErrTokenExpired)

	// Expiry is terminal: the lazy revocation means a second attempt is
	// reported as revoked.
	_, err = env.auth.Refresh(ctx, res.Pair.RefreshToken, testDevice)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRefresh_GarbageToken(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.auth.Refresh(context.Background(), "not-a-real-token", testDevice)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.register(t, "alice", "alice@example.com", "correct horse battery")

	require.NoError(t, env.auth.Logout(ctx, res.Pair.RefreshToken))

	_, err := env.auth.Refresh(ctx, res.Pair.RefreshToken, testDevice)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// Double logout reports the token as already dead.
	assert.ErrorIs(t, env.auth.Logout(ctx, res.Pair.RefreshToken), ErrTokenRevoked)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.register(t, "alice", "alice@example.com", "correct horse battery")

	err := env.auth.ChangePassword(ctx, res.UserID, "wrong current", "a whole new password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = env.auth.ChangePassword(ctx, res.UserID, "correct horse battery", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	require.NoError(t, env.auth.ChangePassword(ctx, res.UserID, "correct horse battery", "a whole new password"))

	// Old password no longer works; new one does.
	_, err = env.auth.Login(ctx, "alice", "correct horse battery", testDevice)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.auth.Login(ctx, "alice", "a whole new password", testDevice)
	require.NoError(t, err)

	// Every pre-change session is revoked.
	_, err = env.auth.Refresh(ctx, res.Pair.RefreshToken, testDevice)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestForgotPassword_UnknownEmailSucceedsQuietly(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.auth.ForgotPassword(context.Background(), "nobody@example.com"))
	assert.Empty(t, env.notifier.messages())
}

func TestForgotPassword_SendsToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.register(t, "alice", "alice@example.com", "correct horse battery")

	require.NoError(t, env.auth.ForgotPassword(ctx, "alice@example.com"))

	msgs := env.notifier.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "alice@example.com", msgs[0].To)
	assert.Contains(t, msgs[0].Subject, "reset")
	assert.NotEmpty(t, msgs[0].Body)
}

func TestForgotPassword_ReplacesPriorToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.register(t, "alice", "alice@example.com", "correct horse battery")

	require.NoError(t, env.auth.ForgotPassword(ctx, "alice@example.com"))
	require.NoError(t, env.auth.ForgotPassword(ctx, "alice@example.com"))

	msgs := env.notifier.messages()
	require.Len(t, msgs, 2)

	first := extractToken(t, msgs[0].Body)
	second := extractToken(t, msgs[1].Body)
	require.NotEqual(t, first, second)

	// The superseded token is gone.
	err := env.auth.ResetPassword(ctx, first, "a whole new password")
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// The latest one works.
	require.NoError(t, env.auth.ResetPassword(ctx, second, "a whole new password"))
}

func TestResetPassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.register(t, "alice", "alice@example.com", "correct horse battery")
	require.NoError(t, env.auth.ForgotPassword(ctx, "alice@example.com"))

	token := extractToken(t, env.notifier.messages()[0].Body)
	require.NoError(t, env.auth.ResetPassword(ctx, token, "a whole new password"))

	// New password active, all sessions revoked.
	_, err := env.auth.Login(ctx, "alice", "a whole new password", testDevice)
	require.NoError(t, err)

	_, err = env.auth.Refresh(ctx, res.Pair.RefreshToken, testDevice)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// Single use: the same token cannot be consumed twice.
	err = env.auth.ResetPassword(ctx, token, "yet another password")
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestResetPassword_ExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.register(t, "alice", "alice@example.com", "correct horse battery")
	require.NoError(t, env.auth.ForgotPassword(ctx, "alice@example.com"))

	token := extractToken(t, env.notifier.messages()[0].Body)

	env.clock.Advance(2 * time.Hour)

	err := env.auth.ResetPassword(ctx, token, "a whole new password")
	assert.ErrorIs(t, err, ErrTokenExpired)

	// Expiry marked the token terminal.
	err = env.auth.ResetPassword(ctx, token, "a whole new password")
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestResetPassword_BadToken(t *testing.T) {
	env := newTestEnv(t)

	err := env.auth.ResetPassword(context.Background(), "bogus", "a whole new password")
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestSetUserEnabled_UnknownUser(t *testing.T) {
	env := newTestEnv(t)

	err := env.auth.SetUserEnabled(context.Background(), "01ZZZZZZZZZZZZZZZZZZZZZZZZ", false)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestHousekeeping_Sweep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res := env.register(t, "alice", "alice@example.com", "correct horse battery")

	// A token that expired an hour ago by wall clock, plus a stale
	// reset token. Both should be purged; the live login token stays.
	expired := domain.RefreshToken{
		ID:        "01EXPIREDEXPIREDEXPIREDXXX",
		UserID:    res.UserID,
		TokenHash: "expired-refresh",
		IssuedAt:  time.Now().Add(-2 * time.Hour).UTC(),
		ExpiresAt: time.Now().Add(-time.Hour).UTC(),
	}
	require.NoError(t, env.store.RefreshTokens().CreateRefreshToken(ctx, expired))

	staleReset := domain.PasswordResetToken{
		ID:        "01STALERESETSTALERESETXXXX",
		UserID:    res.UserID,
		TokenHash: "expired-reset",
		ExpiresAt: time.Now().Add(-time.Hour).UTC(),
		CreatedAt: time.Now().Add(-2 * time.Hour).UTC(),
	}
	require.NoError(t, env.store.PasswordResetTokens().CreatePasswordResetToken(ctx, staleReset))

	hk := NewHousekeepingService(env.store, time.Hour)
	hk.sweep()

	_, err := env.store.RefreshTokens().GetRefreshTokenByHash(ctx, "expired-refresh")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = env.store.PasswordResetTokens().GetPasswordResetTokenByHash(ctx, "expired-reset")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// The fresh login token survives.
	live, err := env.store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(res.Pair.RefreshToken))
	require.NoError(t, err)
	assert.Nil(t, live.RevokedAt)
}

// extractToken pulls the opaque token out of a notification body. The
// token is the only base64url run of its length in the message.
func extractToken(t *testing.T, body string) string {
	t.Helper()

	for _, field := range splitFields(body) {
		if len(field) >= 40 && isTokenChars(field) {
			return field
		}
	}
	t.Fatalf("no token found in body: %q", body)
	return ""
}

func splitFields(s string) []string {
	var fields []string
	start := -1
	for i, r := range s {
		if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
			if start >= 0 {
				fields = append(fields, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		fields = append(fields, s[start:])
	}
	return fields
}

func isTokenChars(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
