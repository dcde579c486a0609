package config

import (
	"strings"
	"time"
)

// VerifierConfig describes the remote verification engine.
type VerifierConfig struct {
	// URL is the base URL of the engine; requests are POSTed to <URL>/verify.
	URL string `env:"VERIFIER_URL" envDefault:"http://localhost:9090"`

	// PrimaryProvider must have an API key before any verification is attempted.
	PrimaryProvider string `env:"VERIFIER_PRIMARY_PROVIDER" envDefault:"openai"`

	// Timeout bounds a single engine call. 0 leaves calls bounded only by their context.
	Timeout time.Duration `env:"VERIFIER_TIMEOUT" envDefault:"0s"`
}

// Sanitize normalises verifier configuration values.
func (c *VerifierConfig) Sanitize() {
	c.URL = strings.TrimRight(strings.TrimSpace(c.URL), "/")
	c.PrimaryProvider = strings.ToLower(strings.TrimSpace(c.PrimaryProvider))
	if c.PrimaryProvider == "" {
		c.PrimaryProvider = "openai"
	}
	if c.Timeout < 0 {
		c.Timeout = 0
	}
}
