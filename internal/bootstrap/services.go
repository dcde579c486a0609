package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/verifyd/config"
	"github.com/target/verifyd/internal/adapters/verifier"
	"github.com/target/verifyd/internal/core"
	"github.com/target/verifyd/internal/observability/statsd"
	"github.com/target/verifyd/internal/service"
	"golang.org/x/sync/errgroup"
)

const shutdownWaitTimeout = 10 * time.Second

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Jobs     *service.JobService
	Runner   *service.JobRunner
	Webhooks *service.WebhookDispatcher
	Verifier core.Verifier
	// Sweeper is nil when the selected backend expires jobs natively.
	Sweeper *service.SweeperService
	// Metrics is nil when metrics are disabled.
	Metrics *statsd.Client
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	RedisClient redis.UniversalClient
	// Verifier overrides the HTTP engine client (tests).
	Verifier core.Verifier
	Logger   *slog.Logger
}

// buildMetrics configures the StatsD sink. Failures disable metrics rather than startup.
func buildMetrics(logger *slog.Logger, cfg config.ObservabilityMetricsConfig) *statsd.Client {
	if !cfg.IsEnabled() {
		return nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled:       true,
		Address:       cfg.StatsdAddress,
		Prefix:        cfg.Prefix,
		Logger:        logger,
		FlushInterval: cfg.FlushInterval,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return nil
	}
	return client
}

// metricsSink avoids handing services a typed-nil interface.
//
//nolint:ireturn // the sink is consumed through its interface.
func metricsSink(c *statsd.Client) statsd.Sink {
	if c == nil {
		return nil
	}
	return c
}

// NewServices builds the queue facade, runner, dispatcher and, for the in-memory
// backend, the sweeper. ctx bounds the durable store's connection handshake.
func NewServices(ctx context.Context, deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service config is required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metricsClient := buildMetrics(logger, cfg.Observability.Metrics)
	sink := metricsSink(metricsClient)

	bundle, err := NewJobStore(ctx, JobStoreDeps{Config: cfg, Redis: deps.RedisClient, Logger: logger})
	if err != nil {
		return ServiceContainer{}, err
	}

	jobs, err := service.NewJobService(service.JobServiceOptions{
		Store:   bundle.Store,
		Backend: bundle.Backend,
		Logger:  logger,
		Metrics: sink,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("job service: %w", err)
	}

	engine := deps.Verifier
	if engine == nil {
		client, cerr := verifier.NewClient(verifier.ClientOptions{
			BaseURL: cfg.Verifier.URL,
			Timeout: cfg.Verifier.Timeout,
			Logger:  logger,
		})
		if cerr != nil {
			return ServiceContainer{}, fmt.Errorf("verifier client: %w", cerr)
		}
		engine = client
	}

	webhooks := service.NewWebhookDispatcher(service.WebhookDispatcherOptions{
		Timeout:   cfg.Webhook.Timeout,
		UserAgent: cfg.Webhook.UserAgent,
		Logger:    logger,
		Metrics:   sink,
	})

	runner, err := service.NewJobRunner(service.JobRunnerOptions{
		Jobs:          jobs,
		Verifier:      engine,
		Webhooks:      webhooks,
		MaxConcurrent: cfg.Queue.MaxConcurrent,
		Logger:        logger,
		Metrics:       sink,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("job runner: %w", err)
	}

	var sweeper *service.SweeperService
	if bundle.Expiring != nil {
		sweeper, err = service.NewSweeperService(service.SweeperServiceOptions{
			Store:     bundle.Expiring,
			Interval:  cfg.Queue.SweepInterval,
			Retention: cfg.Queue.MemoryRetention,
			Logger:    logger,
			Metrics:   sink,
		})
		if err != nil {
			return ServiceContainer{}, fmt.Errorf("sweeper: %w", err)
		}
	}

	return ServiceContainer{
		Jobs:     jobs,
		Runner:   runner,
		Webhooks: webhooks,
		Verifier: engine,
		Sweeper:  sweeper,
		Metrics:  metricsClient,
	}, nil
}

// ServiceOrchestrationConfig contains dependencies for running the service.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// RunServices serves HTTP and runs the sweeper until ctx is cancelled or a component
// fails, then drains: the server stops accepting requests and in-flight jobs get
// QUEUE_SHUTDOWN_GRACE to finish.
func RunServices(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("service orchestration config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	server := NewHTTPServer(&HTTPServerConfig{
		Config:   cfg.Config,
		Services: cfg.Services,
		Logger:   logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ServeHTTP(server, logger)
	})

	if cfg.Services.Sweeper != nil {
		g.Go(func() error {
			if err := cfg.Services.Sweeper.Run(gctx); err != nil {
				return fmt.Errorf("sweeper failed: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down services...")
		return gracefulStop(shutdownConfig{
			server: server,
			runner: cfg.Services.Runner,
			grace:  cfg.Config.Queue.ShutdownGrace,
			logger: logger,
		})
	})

	return g.Wait()
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	server *http.Server
	runner *service.JobRunner
	grace  time.Duration
	// httpTimeout bounds the HTTP shutdown; defaults to shutdownWaitTimeout.
	httpTimeout time.Duration
	logger      *slog.Logger
}

// gracefulStop stops the HTTP server, then waits up to grace for detached jobs.
// Jobs are drained even when the HTTP shutdown times out; that error is returned afterwards.
func gracefulStop(cfg shutdownConfig) error {
	httpTimeout := cfg.httpTimeout
	if httpTimeout <= 0 {
		httpTimeout = shutdownWaitTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpTimeout)
	defer cancel()

	httpErr := ShutdownHTTPServer(ShutdownConfig{
		Context: shutdownCtx,
		Server:  cfg.server,
		Logger:  cfg.logger,
	})
	if httpErr != nil {
		cfg.logger.Error("HTTP server shutdown incomplete", "error", httpErr)
	}

	drainRunner(cfg)
	return httpErr
}

func drainRunner(cfg shutdownConfig) {
	if cfg.runner == nil {
		return
	}
	inflight := cfg.runner.InFlight()
	if inflight == 0 {
		return
	}
	if cfg.grace <= 0 {
		cfg.logger.Warn("abandoning in-flight jobs", "remaining", inflight)
		return
	}

	cfg.logger.Info("waiting for in-flight jobs", "remaining", inflight, "grace", cfg.grace)
	waitCtx, cancelWait := context.WithTimeout(context.Background(), cfg.grace)
	defer cancelWait()
	// On timeout the runner logs what is left; those jobs stay non-terminal.
	if err := cfg.runner.Wait(waitCtx); err == nil {
		cfg.logger.Info("in-flight jobs drained")
	}
}
