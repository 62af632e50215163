package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "APP_ENV", "GUEST_SESSION_TTL", "STOCK_POLICY", "CORS_ALLOW_ORIGINS", "RUN_MIGRATIONS", "REDIS_ADDR", "RABBITMQ_URL"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, 7*24*time.Hour, cfg.GuestSessionTTL)
	assert.Equal(t, StockPolicyIgnore, cfg.StockPolicy)
	assert.Empty(t, cfg.CORSAllowOrigins)
	assert.True(t, cfg.RunMigrations)
	assert.False(t, cfg.Production())
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.RabbitURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "Production")
	t.Setenv("GUEST_SESSION_TTL", "48h")
	t.Setenv("STOCK_POLICY", "REJECT")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://shop.example, https://admin.example ,")
	t.Setenv("RUN_MIGRATIONS", "no")

	cfg := Load()

	assert.True(t, cfg.Production())
	assert.Equal(t, 48*time.Hour, cfg.GuestSessionTTL)
	assert.Equal(t, StockPolicyReject, cfg.StockPolicy)
	assert.Equal(t, []string{"https://shop.example", "https://admin.example"}, cfg.CORSAllowOrigins)
	assert.False(t, cfg.RunMigrations)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("GUEST_SESSION_TTL", "a week")
	t.Setenv("STOCK_POLICY", "sometimes")
	t.Setenv("REQUEST_TIMEOUT", "-1s")

	cfg := Load()

	assert.Equal(t, 7*24*time.Hour, cfg.GuestSessionTTL)
	assert.Equal(t, StockPolicyIgnore, cfg.StockPolicy)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
}

func TestValidate(t *testing.T) {
	cfg := Config{DatabaseDSN: "postgres://x"}
	require.Error(t, cfg.Validate())

	cfg.SessionJWTSecret = "s3cret"
	require.NoError(t, cfg.Validate())
}
