// Package bootstrap wires configuration, observability, redis and the
// gateway registry into an App shared by the binaries.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fusionbox/dinero/internal/gateway"
	"github.com/fusionbox/dinero/internal/infrastructure/config"
	"github.com/fusionbox/dinero/internal/infrastructure/observability"
	infraRedis "github.com/fusionbox/dinero/internal/infrastructure/redis"
	"github.com/fusionbox/dinero/internal/resource"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// idempotencyClaimTTL bounds how long a crashed request blocks its key.
const idempotencyClaimTTL = time.Minute

type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Metrics  *observability.Metrics
	Registry *gateway.Registry

	Transactions *resource.Transactions
	Customers    *resource.Customers
	Cards        *resource.CreditCards

	// Redis and Idempotency are nil when redis is disabled.
	Redis       *redis.Client
	Idempotency *infraRedis.IdempotencyStore

	tracer *sdktrace.TracerProvider
}

// New builds the App from cfg. Metrics register against reg; nil means the
// prometheus default registerer.
func New(ctx context.Context, cfg *config.Config, serviceName string, reg prometheus.Registerer) (*App, error) {
	if cfg.Observability.ServiceName != "" {
		serviceName = cfg.Observability.ServiceName
	}
	logger := observability.InitLogger(serviceName, cfg.Observability.LogLevel, cfg.Observability.LogFormat, os.Stdout)
	logger.Info().Msg("Starting")

	app := &App{Config: cfg, Logger: logger}

	if cfg.Observability.EnableTracing {
		tp, err := observability.InitTracer(serviceName, cfg.Observability.JaegerEndpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		} else {
			app.tracer = tp
			logger.Info().Msg("Tracing enabled")
		}
	}

	if cfg.Observability.EnableMetrics {
		app.Metrics = observability.NewMetrics("dinero", reg)
		logger.Info().Msg("Metrics initialized")
	}

	registry, err := BuildRegistry(ctx, cfg, logger, app.Metrics)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("build gateways: %w", err)
	}
	app.Registry = registry
	logger.Info().
		Strs("gateways", registry.Names()).
		Str("default", registry.DefaultName()).
		Msg("Gateways configured")

	if cfg.Redis.Enabled {
		client, err := infraRedis.NewClient(ctx, &cfg.Redis, logger)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		app.Redis = client
		logger.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Connected to Redis")

		if cfg.Idempotency.Enabled {
			app.Idempotency = infraRedis.NewIdempotencyStore(client, cfg.Idempotency.TTL, idempotencyClaimTTL)
		}
	}

	app.Transactions = resource.NewTransactions(registry, logger)
	app.Customers = resource.NewCustomers(registry)
	app.Cards = resource.NewCreditCards(registry)

	return app, nil
}

// Close releases redis and flushes pending spans.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close redis")
		}
	}
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := observability.Shutdown(ctx, a.tracer); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to flush traces")
		}
	}
}
