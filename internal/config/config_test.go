package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("APP_PORT", "")
	t.Setenv("AUTH_SESSION_TTL_MINUTES", "")
	t.Setenv("SEED_DEMO_DATA", "")
	t.Setenv("AUTH_COOKIE_NAME", "")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "lab-issue-service", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL())
	assert.Equal(t, "LabIssueAuth", cfg.Auth.CookieName)
	assert.True(t, cfg.Seed.DemoData)
	assert.False(t, cfg.Auth.CookieSecure)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "staging")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("AUTH_SESSION_TTL_MINUTES", "90")
	t.Setenv("SEED_DEMO_DATA", "true")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 90*time.Minute, cfg.Auth.SessionTTL())
	assert.True(t, cfg.Seed.DemoData)
	assert.Zero(t, cfg.App.RequestTimeout())
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")

	_, err := Load()

	assert.Error(t, err)
}

func TestLoadRequiresSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("REDIS_DB", "0")
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := Load()

	assert.Error(t, err)
}
