package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/target/verifyd/config"
	redisstore "github.com/target/verifyd/internal/adapters/redis"
	"github.com/target/verifyd/internal/core"
	"github.com/target/verifyd/internal/data"
)

// JobStoreDeps groups dependencies for NewJobStore.
type JobStoreDeps struct {
	Config *config.AppConfig
	// Redis is required when the configuration selects the durable backend.
	Redis  redis.UniversalClient
	Logger *slog.Logger
}

// JobStoreBundle is the backend selected at startup.
type JobStoreBundle struct {
	Store   core.JobStore
	Backend string
	// Expiring is set only for backends without native expiry; they need a sweeper.
	Expiring core.ExpiringJobStore
}

// NewJobStore selects the job store once for the process lifetime: Redis when a
// deployment is configured, the in-memory store otherwise.
func NewJobStore(ctx context.Context, deps JobStoreDeps) (JobStoreBundle, error) {
	if deps.Config == nil {
		return JobStoreBundle{}, errors.New("config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if deps.Config.StoreBackend() == config.StoreBackendRedis {
		if deps.Redis == nil {
			return JobStoreBundle{}, errors.New("redis client is required for the redis job store")
		}
		store, err := redisstore.NewJobStore(ctx, redisstore.JobStoreOptions{
			Client: deps.Redis,
			Prefix: deps.Config.Redis.KeyPrefix,
			TTL:    deps.Config.Redis.JobTTL,
			Logger: logger,
		})
		if err != nil {
			return JobStoreBundle{}, fmt.Errorf("redis job store: %w", err)
		}
		logger.InfoContext(ctx, "job store selected",
			"backend", config.StoreBackendRedis,
			"ttl", deps.Config.Redis.JobTTL,
			"prefix", deps.Config.Redis.KeyPrefix)
		return JobStoreBundle{Store: store, Backend: config.StoreBackendRedis}, nil
	}

	store := data.NewMemoryJobStore(data.MemoryJobStoreConfig{Logger: logger})
	logger.InfoContext(ctx, "job store selected",
		"backend", config.StoreBackendMemory,
		"retention", deps.Config.Queue.MemoryRetention,
		"sweep_interval", deps.Config.Queue.SweepInterval)
	return JobStoreBundle{Store: store, Backend: config.StoreBackendMemory, Expiring: store}, nil
}
