package config

import "time"

// QueueConfig controls background job execution and in-memory expiry.
type QueueConfig struct {
	// SweepInterval is how often the in-memory store is swept for expired jobs.
	SweepInterval time.Duration `env:"QUEUE_SWEEP_INTERVAL" envDefault:"10m"`

	// MemoryRetention is how long a job stays in the in-memory store after creation.
	MemoryRetention time.Duration `env:"QUEUE_MEMORY_RETENTION" envDefault:"1h"`

	// MaxConcurrent caps the number of verifications running at once. 0 means unbounded.
	MaxConcurrent int `env:"QUEUE_MAX_CONCURRENT" envDefault:"0"`

	// ShutdownGrace is how long shutdown waits for in-flight jobs.
	ShutdownGrace time.Duration `env:"QUEUE_SHUTDOWN_GRACE" envDefault:"15s"`
}

// Sanitize applies guardrails to queue configuration values.
func (c *QueueConfig) Sanitize() {
	if c.SweepInterval <= 0 {
		c.SweepInterval = 10 * time.Minute
	}
	if c.MemoryRetention <= 0 {
		c.MemoryRetention = time.Hour
	}
	if c.MaxConcurrent < 0 {
		c.MaxConcurrent = 0
	}
	if c.ShutdownGrace < 0 {
		c.ShutdownGrace = 0
	}
}

// WebhookConfig controls completion webhook delivery.
type WebhookConfig struct {
	// Timeout bounds the single delivery attempt.
	Timeout time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"10s"`

	// UserAgent is sent with every delivery.
	UserAgent string `env:"WEBHOOK_USER_AGENT" envDefault:"verifyd-webhook/1"`
}

// Sanitize applies guardrails to webhook configuration values.
func (c *WebhookConfig) Sanitize() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "verifyd-webhook/1"
	}
}
