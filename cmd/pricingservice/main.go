package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/atlastravel/pricingservice/internal/cache"
	"github.com/atlastravel/pricingservice/internal/catalog"
	catalogpg "github.com/atlastravel/pricingservice/internal/catalog/postgres"
	"github.com/atlastravel/pricingservice/internal/config"
	"github.com/atlastravel/pricingservice/internal/db"
	"github.com/atlastravel/pricingservice/internal/events"
	"github.com/atlastravel/pricingservice/internal/log"
	"github.com/atlastravel/pricingservice/internal/metrics"
	"github.com/atlastravel/pricingservice/internal/pricing"
	"github.com/atlastravel/pricingservice/internal/quote/sync"
	"github.com/atlastravel/pricingservice/internal/ratelimit"
	"github.com/atlastravel/pricingservice/internal/retry"
	"github.com/atlastravel/pricingservice/internal/server"
	"github.com/atlastravel/pricingservice/internal/tracing"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		stdlog.Fatalf("failed to load configuration: %v", err)
	}

	if err := log.Init(cfg.Log.Level); err != nil {
		stdlog.Fatalf("failed to initialize logger: %v", err)
	}
	logger := log.L(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.Init(tracing.Config{
			ServiceName:    "pricing-service",
			ServiceVersion: "1.0.0",
			Environment:    os.Getenv("ENVIRONMENT"),
			JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
			SamplingRatio:  cfg.Tracing.SamplingRatio,
		}, logger)
		if err != nil {
			logger.Fatal("failed to initialize tracing", zap.Error(err))
		}
		defer shutdown()
	}

	pool, err := db.NewPool(ctx, &db.Config{
		DSN:      cfg.Database.GetDSN(),
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		logger.Fatal("failed to create database pool", zap.Error(err))
	}
	defer pool.Close()

	store, err := catalogpg.NewStore(pool.Pool)
	if err != nil {
		logger.Fatal("failed to create catalog store", zap.Error(err))
	}

	// Redis is an accelerator, not a dependency: without it the catalog
	// reads straight from Postgres and rate limiting is disabled.
	var redisCache *cache.Cache
	if c, err := cache.NewCache(cfg.Redis.GetRedisAddr(), cfg.Redis.Password, cfg.Redis.DB); err != nil {
		logger.Warn("redis unavailable, continuing without cache", zap.Error(err))
	} else {
		redisCache = c
		defer redisCache.Close()
	}

	var packageCatalog catalog.Catalog = catalog.NewRetrying(store, retry.DefaultConfig(), logger)
	packageCatalog = catalog.NewCached(
		packageCatalog, redisCache, cfg.Cache.PackageTTL(), cfg.Cache.NegativeTTL())

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Kafka.Enabled {
		kafkaPublisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			logger.Fatal("failed to create Kafka publisher", zap.Error(err))
		}
		publisher = kafkaPublisher
		defer kafkaPublisher.Close()
	}

	calculator := pricing.NewCalculator(packageCatalog)
	manager := sync.NewManager(calculator, publisher, cfg.Sync.Debounce(), cfg.Sync.SessionIdle())
	go manager.Sweep(ctx)

	var limiter ratelimit.RateLimiter = ratelimit.NoopRateLimiter{}
	if redisCache != nil {
		limiter = ratelimit.NewRedisRateLimiter(redisCache, ratelimit.DefaultConfig(), logger)
	}

	httpServer := server.New(cfg.Server.Port, server.Deps{
		Manager:    manager,
		Calculator: calculator,
		Catalog:    packageCatalog,
		Limiter:    limiter,
		Logger:     logger,
	})
	metricsServer := metrics.NewServer(addr(cfg.Metrics.Port), logger)

	errCh := make(chan error, 2)
	go func() { errCh <- httpServer.Start(ctx) }()
	go func() { errCh <- metricsServer.Start(ctx) }()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop HTTP server", zap.Error(err))
	}
	if err := metricsServer.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop metrics server", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func addr(port int) string {
	return fmt.Sprintf(":%d", port)
}
