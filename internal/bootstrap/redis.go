package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/target/verifyd/config"
)

// NewRedisClient builds a client for the configured deployment: cluster, sentinel,
// or a single node addressed by URL or host:port.
//
// No connection is attempted here; the job store performs its own readiness handshake.
//
//nolint:ireturn // the concrete client type depends on the deployment mode.
func NewRedisClient(cfg config.RedisConfig, logger *slog.Logger) (redis.UniversalClient, error) {
	opts, desc, err := universalOptions(cfg)
	if err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("redis client configured", "addr", redactAddr(desc))
	}

	return redis.NewUniversalClient(opts), nil
}

// universalOptions maps RedisConfig onto go-redis options and returns a loggable description.
func universalOptions(cfg config.RedisConfig) (*redis.UniversalOptions, string, error) {
	opts := &redis.UniversalOptions{
		Password:    cfg.Password,
		DialTimeout: cfg.DialTimeout,
	}

	switch {
	case cfg.UseCluster:
		opts.IsClusterMode = true
		opts.Addrs = normalizeAddrs(cfg.ClusterNodes)
		if len(opts.Addrs) == 0 {
			if err := applyURL(opts, cfg.URL); err != nil {
				return nil, "", err
			}
		}
		if len(opts.Addrs) == 0 {
			return nil, "", errors.New("redis cluster configuration requires at least one address")
		}
		return opts, "cluster:" + strings.Join(opts.Addrs, ","), nil

	case cfg.UseSentinel:
		opts.Addrs = normalizeAddrs(cfg.SentinelNodes)
		if len(opts.Addrs) == 0 {
			return nil, "", errors.New("redis sentinel configuration requires at least one sentinel node")
		}
		opts.MasterName = cfg.SentinelMasterName
		opts.SentinelPassword = cfg.SentinelPassword
		return opts, "sentinel:" + cfg.SentinelMasterName, nil

	default:
		raw := strings.TrimSpace(cfg.URL)
		if raw == "" {
			return nil, "", errors.New("redis direct configuration requires a URL")
		}
		if err := applyURL(opts, raw); err != nil {
			return nil, "", err
		}
		return opts, raw, nil
	}
}

// applyURL sets the address from a redis:// URL or a bare host:port. Credentials
// in the URL take precedence over REDIS_PASSWORD.
func applyURL(opts *redis.UniversalOptions, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if !isRedisURL(raw) {
		opts.Addrs = []string{raw}
		return nil
	}

	parsed, err := redis.ParseURL(raw)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	opts.Addrs = []string{parsed.Addr}
	opts.DB = parsed.DB
	opts.Username = parsed.Username
	opts.TLSConfig = parsed.TLSConfig
	if parsed.Password != "" {
		opts.Password = parsed.Password
	}
	return nil
}

func normalizeAddrs(raw []string) []string {
	result := make([]string, 0, len(raw))
	for _, addr := range raw {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func isRedisURL(value string) bool {
	return strings.HasPrefix(value, "redis://") || strings.HasPrefix(value, "rediss://")
}

// redactAddr strips credentials from an address before it is logged.
func redactAddr(addr string) string {
	if u, err := url.Parse(addr); err == nil && u.User != nil {
		u.User = url.User("*")
		return u.Redacted()
	}
	if i := strings.LastIndex(addr, "@"); i > -1 {
		return addr[i+1:]
	}
	return addr
}
