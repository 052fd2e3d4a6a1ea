package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-auth-boilerplate/config"
)

func unset(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func setRequired(t *testing.T) {
	t.Helper()
	unset(t,
		"APP_ENV", "NODE_ENV", "PORT", "SESSION_STORE", "REDIS_URL",
		"EMAIL_SERVICE_PROVIDER", "EMAIL_FROM", "SMTP_HOST", "SMTP_USER", "SMTP_PASS",
		"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET",
	)
	t.Setenv("DATABASE_URL", "sqlite://file::memory:")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
}

func TestParseDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Parse()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, config.SessionStoreDatabase, cfg.Session.Store)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 10, cfg.RateLimit.Max)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, "/", cfg.OAuth.SuccessRedirect)
	assert.Equal(t, "/login", cfg.OAuth.FailureRedirect)
	assert.Equal(t, "us-east-1", cfg.AWS.Region)
	assert.False(t, cfg.OAuth.GoogleEnabled())
	assert.False(t, cfg.Email.Enabled())
}

func TestParseMissingRequired(t *testing.T) {
	setRequired(t)
	unset(t, "DATABASE_URL", "JWT_SECRET")

	_, err := config.Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DatabaseURL")
	assert.Contains(t, err.Error(), "JWTSecret")
}

func TestParseNodeEnvFallback(t *testing.T) {
	setRequired(t)
	t.Setenv("NODE_ENV", "production")

	cfg, err := config.Parse()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestParseEmailProvider(t *testing.T) {
	setRequired(t)
	t.Setenv("EMAIL_FROM", "noreply@example.com")

	t.Run("unsupported", func(t *testing.T) {
		t.Setenv("EMAIL_SERVICE_PROVIDER", "postmark")
		_, err := config.Parse()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported EMAIL_SERVICE_PROVIDER")
	})

	t.Run("mailgun requires smtp", func(t *testing.T) {
		t.Setenv("EMAIL_SERVICE_PROVIDER", "mailgun")
		_, err := config.Parse()
		require.Error(t, err)
	})

	t.Run("ses", func(t *testing.T) {
		t.Setenv("EMAIL_SERVICE_PROVIDER", "ses")
		cfg, err := config.Parse()
		require.NoError(t, err)
		assert.Equal(t, config.EmailProviderSES, cfg.Email.Provider)
	})
}

func TestParseRedisStoreRequiresURL(t *testing.T) {
	setRequired(t)
	t.Setenv("SESSION_STORE", "redis")

	_, err := config.Parse()
	require.Error(t, err)

	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	cfg, err := config.Parse()
	require.NoError(t, err)
	assert.Equal(t, config.SessionStoreRedis, cfg.Session.Store)
}

func TestLoadDotEnv(t *testing.T) {
	setRequired(t)

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("GOOGLE_CLIENT_ID=gid\nGOOGLE_CLIENT_SECRET=gsecret\nPORT=4000\n"), 0o600))
	t.Setenv("PORT", "5000")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.OAuth.GoogleEnabled())
	assert.Equal(t, 5000, cfg.Port, "process env wins over the file")
}

func TestLoadMissingFileIsIgnored(t *testing.T) {
	setRequired(t)

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
}
