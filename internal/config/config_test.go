package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"SERVER_PORT", "TOKEN_TTL", "STORE_TIMEOUT", "ACT_MAX_ATTEMPTS", "CORS_ALLOW_ORIGINS", "SEED_DEFAULT_USERS", "APP_ENV"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, "8001", cfg.ServerPort)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 3, cfg.ActMaxAttempts)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowOrigins)
	assert.True(t, cfg.SeedDefaultUsers)
	assert.False(t, cfg.Development())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("STORE_TIMEOUT", "250ms")
	t.Setenv("ACT_MAX_ATTEMPTS", "5")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("SEED_DEFAULT_USERS", "false")
	t.Setenv("APP_ENV", "development")

	cfg := Load()

	assert.Equal(t, "9000", cfg.ServerPort)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 250*time.Millisecond, cfg.StoreTimeout)
	assert.Equal(t, 5, cfg.ActMaxAttempts)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigins)
	assert.False(t, cfg.SeedDefaultUsers)
	assert.True(t, cfg.Development())
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("TOKEN_TTL", "forever")
	t.Setenv("ACT_MAX_ATTEMPTS", "many")
	t.Setenv("STORE_TIMEOUT", "-1s")

	cfg := Load()

	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 3, cfg.ActMaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
}
