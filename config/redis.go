package config

import (
	"strings"
	"time"
)

// Store backend names reported by /healthz and used as metric tags.
const (
	StoreBackendMemory = "memory"
	StoreBackendRedis  = "redis"
)

// RedisConfig contains Redis configuration for the durable job store.
//
// URL accepts either a redis:// URL or a bare host:port.
type RedisConfig struct {
	URL                string        `env:"URL"                  envDefault:""`
	Password           string        `env:"PASSWORD"             envDefault:""`
	SentinelNodes      []string      `env:"SENTINEL_NODES"       envDefault:""`
	SentinelMasterName string        `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string        `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool          `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string      `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool          `env:"USE_CLUSTER"          envDefault:"false"`
	KeyPrefix          string        `env:"KEY_PREFIX"           envDefault:"verify:job"`
	JobTTL             time.Duration `env:"JOB_TTL"              envDefault:"24h"`
	DialTimeout        time.Duration `env:"DIAL_TIMEOUT"         envDefault:"5s"`
}

// Sanitize trims connection settings and restores defaults for invalid durations.
func (c *RedisConfig) Sanitize() {
	c.URL = strings.TrimSpace(c.URL)
	c.KeyPrefix = strings.TrimRight(strings.TrimSpace(c.KeyPrefix), ":")
	if c.KeyPrefix == "" {
		c.KeyPrefix = "verify:job"
	}
	if c.JobTTL <= 0 {
		c.JobTTL = 24 * time.Hour
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	c.SentinelNodes = trimNonEmpty(c.SentinelNodes)
	c.ClusterNodes = trimNonEmpty(c.ClusterNodes)
	if len(c.SentinelNodes) == 0 {
		c.UseSentinel = false
	}
	if len(c.ClusterNodes) == 0 {
		c.UseCluster = false
	}
}

// Enabled reports whether a Redis deployment is configured.
func (c *RedisConfig) Enabled() bool {
	return c.URL != "" || c.UseSentinel || c.UseCluster
}

func trimNonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
