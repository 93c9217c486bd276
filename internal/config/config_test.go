package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("ROUTING_ID_RETRY_ATTEMPTS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "general", cfg.Routing.DefaultCategory)
	assert.Equal(t, 5, cfg.Routing.IDRetryAttempts)
	assert.Equal(t, 25*time.Millisecond, cfg.Routing.IDRetryBaseDelay)
	assert.Empty(t, cfg.Postgres.DSN)
	assert.Equal(t, "sms_outbox", cfg.Notification.SMSOutboxTable)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("ROUTING_ID_RETRY_BASE_DELAY", "100ms")
	t.Setenv("NOTIFY_ASYNC", "false")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
	assert.Equal(t, 100*time.Millisecond, cfg.Routing.IDRetryBaseDelay)
	assert.False(t, cfg.Notification.Async)
	assert.Equal(t, 3, cfg.Redis.DB)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("REDIS_DB", "0")
	t.Setenv("ROUTING_ID_RETRY_ATTEMPTS", "0")
	_, err = Load()
	require.Error(t, err)
}

func TestRequestTimeout(t *testing.T) {
	assert.Equal(t, time.Duration(0), AppConfig{}.RequestTimeout())
	assert.Equal(t, 5*time.Second, AppConfig{RequestTimeoutSeconds: 5}.RequestTimeout())
}
