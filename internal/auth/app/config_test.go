package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_RequiresStrongSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_JWT_SECRET")

	t.Setenv("AUTH_JWT_SECRET", "too short")
	_, err = LoadConfig()
	require.Error(t, err)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "auth.db", cfg.DatabaseFile)
	assert.Equal(t, "edustack-auth", cfg.JWTIssuer)
	assert.Equal(t, "console", cfg.Notifier)
	assert.Equal(t, 24*time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, time.Hour, cfg.ResetTokenTTL)
	assert.True(t, cfg.EnableSwagger)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("AUTH_ACCESS_TTL", "15m")
	t.Setenv("AUTH_REFRESH_TTL", "48h")
	t.Setenv("AUTH_NOTIFIER", "smtp")
	t.Setenv("AUTH_SMTP_HOST", "mail.example.com")
	t.Setenv("AUTH_SMTP_PORT", "2525")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 48*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, "smtp", cfg.Notifier)
	assert.Equal(t, 2525, cfg.SMTPPort)
}

func TestLoadConfig_RejectsBadNotifier(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("AUTH_NOTIFIER", "carrier-pigeon")

	_, err := LoadConfig()
	require.Error(t, err)

	// SMTP without a host is also a startup error.
	t.Setenv("AUTH_NOTIFIER", "smtp")
	t.Setenv("AUTH_SMTP_HOST", "")
	_, err = LoadConfig()
	require.Error(t, err)
}
