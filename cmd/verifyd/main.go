package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/target/verifyd/config"
	"github.com/target/verifyd/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	if err := run(ctx); err != nil {
		slog.Default().ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	logger := bootstrap.InitLogger(bootstrap.LoggerOptions{
		Dev:   cfg.IsDev,
		Level: cfg.Observability.SlogLevel(),
	})
	logStartupInfo(ctx, logger, &cfg)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := initRedis(&cfg, logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close redis failed", "error", cerr)
			}
		}()
	}

	services, err := bootstrap.NewServices(ctx, &bootstrap.ServiceDeps{
		Config:      &cfg,
		RedisClient: redisClient,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	if services.Metrics != nil {
		defer func() {
			if cerr := services.Metrics.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close statsd failed", "error", cerr)
			}
		}()
	}

	return bootstrap.RunServices(ctx, &bootstrap.ServiceOrchestrationConfig{
		Config:   &cfg,
		Services: services,
		Logger:   logger,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting verifyd",
		"addr", cfg.HTTP.Addr,
		"store", cfg.StoreBackend(),
		"verifier_url", cfg.Verifier.URL,
		"primary_provider", cfg.Verifier.PrimaryProvider,
		"max_concurrent", cfg.Queue.MaxConcurrent,
		"metrics_enabled", cfg.Observability.Metrics.IsEnabled())
}

// initRedis returns nil when the in-memory store is selected.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func initRedis(cfg *config.AppConfig, logger *slog.Logger) (redis.UniversalClient, error) {
	if cfg.StoreBackend() != config.StoreBackendRedis {
		return nil, nil
	}
	return bootstrap.NewRedisClient(cfg.Redis, logger)
}
