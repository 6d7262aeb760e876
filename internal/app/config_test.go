package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/taskforge/internal/auth"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 5, cfg.AuditRetryMax)
	assert.Equal(t, auth.InsecureDefaultSecret, cfg.JWTSecret)
	assert.True(t, cfg.UsesInsecureSecret())
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRefusesInsecureSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	assert.ErrorIs(t, err, ErrInsecureSecret)

	t.Setenv("JWT_SECRET", auth.InsecureDefaultSecret)
	_, err = LoadConfig()
	assert.ErrorIs(t, err, ErrInsecureSecret)
}

func TestLoadConfigProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "a-long-random-secret")
	t.Setenv("JWT_TTL", "1h")
	t.Setenv("AUDIT_RETRY_MAX", "8")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.UsesInsecureSecret())
	assert.Equal(t, time.Hour, cfg.JWTTTL)
	assert.Equal(t, 8, cfg.AuditRetryMax)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_TTL", "0s")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("JWT_TTL", "not-a-duration")
	_, err = LoadConfig()
	assert.Error(t, err)
}

func TestRefreshTestMode(t *testing.T) {
	t.Setenv(TestModeEnv, "true")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(TestModeEnv, "0")
	RefreshTestMode()
	assert.False(t, InTestMode())
}
