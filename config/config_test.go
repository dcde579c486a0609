package config

import (
	"log/slog"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, vars map[string]string) AppConfig {
	t.Helper()
	var cfg AppConfig
	require.NoError(t, env.ParseWithOptions(&cfg, env.Options{Environment: vars}))
	cfg.Sanitize()
	return cfg
}

func TestAppConfig_Defaults(t *testing.T) {
	cfg := parse(t, map[string]string{})

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 120*time.Second, cfg.HTTP.WriteTimeout)
	assert.Equal(t, int64(1<<20), cfg.HTTP.MaxBodyBytes)
	assert.Empty(t, cfg.HTTP.CORSAllowedOrigins)

	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, StoreBackendMemory, cfg.StoreBackend())
	assert.Equal(t, "verify:job", cfg.Redis.KeyPrefix)
	assert.Equal(t, 24*time.Hour, cfg.Redis.JobTTL)

	assert.Equal(t, 10*time.Minute, cfg.Queue.SweepInterval)
	assert.Equal(t, time.Hour, cfg.Queue.MemoryRetention)
	assert.Equal(t, 0, cfg.Queue.MaxConcurrent)
	assert.Equal(t, 15*time.Second, cfg.Queue.ShutdownGrace)

	assert.Equal(t, 10*time.Second, cfg.Webhook.Timeout)
	assert.Equal(t, "verifyd-webhook/1", cfg.Webhook.UserAgent)

	assert.Equal(t, "openai", cfg.Verifier.PrimaryProvider)
	assert.Equal(t, slog.LevelInfo, cfg.Observability.SlogLevel())
	assert.False(t, cfg.Observability.Metrics.IsEnabled())
}

func TestAppConfig_RedisURLSelectsDurableStore(t *testing.T) {
	cfg := parse(t, map[string]string{
		"REDIS_URL":        " redis://cache:6379/2 ",
		"REDIS_KEY_PREFIX": "jobs:",
		"REDIS_JOB_TTL":    "2h",
	})

	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, StoreBackendRedis, cfg.StoreBackend())
	assert.Equal(t, "redis://cache:6379/2", cfg.Redis.URL)
	assert.Equal(t, "jobs", cfg.Redis.KeyPrefix)
	assert.Equal(t, 2*time.Hour, cfg.Redis.JobTTL)
}

func TestRedisConfig_SentinelAndCluster(t *testing.T) {
	cfg := parse(t, map[string]string{
		"REDIS_USE_SENTINEL":   "true",
		"REDIS_SENTINEL_NODES": "s1:26379, s2:26379",
	})
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, []string{"s1:26379", "s2:26379"}, cfg.Redis.SentinelNodes)

	cfg = parse(t, map[string]string{"REDIS_USE_CLUSTER": "true"})
	assert.False(t, cfg.Redis.UseCluster, "cluster without nodes is disabled")
	assert.False(t, cfg.Redis.Enabled())
}

func TestAppConfig_Overrides(t *testing.T) {
	cfg := parse(t, map[string]string{
		"HTTP_ADDR":                 "127.0.0.1:9000",
		"HTTP_CORS_ALLOWED_ORIGINS": "https://a.example.com, ,https://b.example.com",
		"APP_BASE_URL":              "https://verify.example.com/",
		"QUEUE_SWEEP_INTERVAL":      "30s",
		"QUEUE_MAX_CONCURRENT":      "8",
		"WEBHOOK_TIMEOUT":           "3s",
		"VERIFIER_URL":              "http://engine:9090/",
		"VERIFIER_PRIMARY_PROVIDER": " Anthropic ",
		"LOG_LEVEL":                 "DEBUG",
	})

	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.Addr)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.HTTP.CORSAllowedOrigins)
	assert.Equal(t, "https://verify.example.com", cfg.HTTP.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Queue.SweepInterval)
	assert.Equal(t, 8, cfg.Queue.MaxConcurrent)
	assert.Equal(t, 3*time.Second, cfg.Webhook.Timeout)
	assert.Equal(t, "http://engine:9090", cfg.Verifier.URL)
	assert.Equal(t, "anthropic", cfg.Verifier.PrimaryProvider)
	assert.Equal(t, slog.LevelDebug, cfg.Observability.SlogLevel())
}

func TestSanitize_Guardrails(t *testing.T) {
	cfg := AppConfig{
		HTTP:    HTTPConfig{Addr: " ", MaxBodyBytes: -1},
		Queue:   QueueConfig{SweepInterval: -time.Second, MaxConcurrent: -3, ShutdownGrace: -time.Second},
		Webhook: WebhookConfig{},
		Redis:   RedisConfig{KeyPrefix: ":::", JobTTL: -1},
		Observability: ObservabilityConfig{
			LogLevel: "verbose",
		},
	}

	cfg.Sanitize()

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, int64(1<<20), cfg.HTTP.MaxBodyBytes)
	assert.Equal(t, 10*time.Minute, cfg.Queue.SweepInterval)
	assert.Equal(t, time.Hour, cfg.Queue.MemoryRetention)
	assert.Equal(t, 0, cfg.Queue.MaxConcurrent)
	assert.Equal(t, time.Duration(0), cfg.Queue.ShutdownGrace)
	assert.Equal(t, 10*time.Second, cfg.Webhook.Timeout)
	assert.Equal(t, "verify:job", cfg.Redis.KeyPrefix)
	assert.Equal(t, 24*time.Hour, cfg.Redis.JobTTL)
	assert.Equal(t, "info", cfg.Observability.LogLevel)
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " ",
	}

	cfg.Sanitize()

	if cfg.Enabled {
		t.Fatalf("expected enabled to be false when address is empty")
	}

	cfg = ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " statsd:1234 ",
		FlushInterval: -time.Second,
	}

	cfg.Sanitize()

	if !cfg.IsEnabled() {
		t.Fatalf("expected metrics to remain enabled")
	}
	if cfg.FlushInterval != 0 {
		t.Fatalf("expected negative flush interval to be clamped, got %s", cfg.FlushInterval)
	}
	if cfg.StatsdAddress != "statsd:1234" {
		t.Fatalf("expected address to be trimmed, got %q", cfg.StatsdAddress)
	}
}
