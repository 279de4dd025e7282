package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearSyncEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "ENV", "API_BASE_URL", "API_ACCESS_KEY",
		"API_TIMEOUT_SECONDS", "API_MAX_RETRIES", "API_RETRY_DELAY_MS",
		"DATABASE_URL", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "RUN_LOCK_TTL_MINUTES",
		"KAFKA_BROKERS", "KAFKA_TOPIC_SYNC_EVENTS", "JAEGER_ENDPOINT",
		"INITIAL_SYNC_DATE", "PAGE_SIZE", "MAX_PAGES", "SYNC_INTERVAL_MINUTES",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearSyncEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Empty(t, cfg.API.BaseURL)
	assert.Equal(t, 30, cfg.API.TimeoutSeconds)
	assert.Equal(t, 3, cfg.API.MaxRetries)
	assert.Equal(t, 1000, cfg.API.RetryDelayMS)
	assert.Contains(t, cfg.Database.URL, "postgres://")
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, 30, cfg.Redis.LockTTLMinutes)
	assert.Nil(t, cfg.Kafka.Brokers)
	assert.Equal(t, "sync-events", cfg.Kafka.TopicSyncEvents)
	assert.Empty(t, cfg.Observ.JaegerEndpoint)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), cfg.Sync.InitialSyncDate)
	assert.Equal(t, 50, cfg.Sync.PageSize)
	assert.Equal(t, 1000, cfg.Sync.MaxPages)
	assert.Equal(t, 15, cfg.Sync.IntervalMinutes)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearSyncEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("API_BASE_URL", "https://shop.example.com/onesaas")
	t.Setenv("API_ACCESS_KEY", "secret-key")
	t.Setenv("API_TIMEOUT_SECONDS", "10")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("INITIAL_SYNC_DATE", "2024-06-15T00:00:00")
	t.Setenv("PAGE_SIZE", "100")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "production", cfg.Server.Env)
	assert.Equal(t, "https://shop.example.com/onesaas", cfg.API.BaseURL)
	assert.Equal(t, 10, cfg.API.TimeoutSeconds)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), cfg.Sync.InitialSyncDate)
	assert.Equal(t, 100, cfg.Sync.PageSize)
}

func TestLoadAcceptsBothDateLayouts(t *testing.T) {
	for _, date := range []string{"2024-06-15T08:30:00", "2024-06-15 08:30:00"} {
		clearSyncEnv(t)
		t.Setenv("INITIAL_SYNC_DATE", date)

		cfg, err := Load()
		require.NoError(t, err, "layout %q", date)
		assert.Equal(t, time.Date(2024, 6, 15, 8, 30, 0, 0, time.UTC), cfg.Sync.InitialSyncDate)
	}
}

func TestLoadRejectsBadInitialDate(t *testing.T) {
	clearSyncEnv(t)
	t.Setenv("INITIAL_SYNC_DATE", "15/06/2024")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "INITIAL_SYNC_DATE")
}

func TestRequireAPI(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.RequireAPI())

	cfg.API.BaseURL = "https://shop.example.com/onesaas"
	err := cfg.RequireAPI()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API_ACCESS_KEY")

	cfg.API.AccessKey = "secret-key"
	assert.NoError(t, cfg.RequireAPI())
}

func TestSplitNonEmpty(t *testing.T) {
	assert.Nil(t, splitNonEmpty(""))
	assert.Nil(t, splitNonEmpty(" , ,"))
	assert.Equal(t, []string{"a"}, splitNonEmpty("a"))
	assert.Equal(t, []string{"a", "b"}, splitNonEmpty("a, b,"))
}
