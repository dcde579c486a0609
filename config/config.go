package config

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - http.go: HTTP server configuration
//   - redis.go: Durable job store configuration
//   - queue.go: Job runner, sweeper and webhook configuration
//   - verifier.go: Verification engine and provider credentials
//   - observability.go: Metrics and logging
type AppConfig struct {
	// IsDev switches the logger to text output at debug level.
	IsDev bool `env:"DEV" envDefault:"false"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Redis configuration. An empty URL (and no sentinel/cluster) selects the in-memory store.
	Redis RedisConfig `envPrefix:"REDIS_"`

	// Queue configuration
	Queue QueueConfig

	// Webhook delivery configuration
	Webhook WebhookConfig

	// Verification engine configuration
	Verifier VerifierConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Redis.Sanitize()
	c.Queue.Sanitize()
	c.Webhook.Sanitize()
	c.Verifier.Sanitize()
	c.Observability.Sanitize()
}

// StoreBackend names the job store selected by this configuration.
func (c *AppConfig) StoreBackend() string {
	if c.Redis.Enabled() {
		return StoreBackendRedis
	}
	return StoreBackendMemory
}
