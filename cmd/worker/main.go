package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pulselabs/pulse/internal/config"
	"github.com/pulselabs/pulse/internal/infra/postgresql"
	"github.com/pulselabs/pulse/internal/infra/postgresql/migrations"
	infraredis "github.com/pulselabs/pulse/internal/infra/redis"
	"github.com/pulselabs/pulse/internal/observability"
	"github.com/pulselabs/pulse/internal/provider"
	"github.com/pulselabs/pulse/internal/queue"
	"github.com/pulselabs/pulse/internal/repository"
	"github.com/pulselabs/pulse/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("worker exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("postgres initialization failed: %w", err)
	}
	if err := migrations.Migrate(db); err != nil {
		return fmt.Errorf("database migrations failed: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("postgres underlying db init failed: %w", err)
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis initialization failed: %w", err)
	}
	defer rdb.Close()

	limiter, err := infraredis.NewFixedWindowLimiter(rdb, cfg.RateLimitMaxRequests, time.Duration(cfg.RateLimitWindowSec)*time.Second)
	if err != nil {
		return fmt.Errorf("rate limiter initialization failed: %w", err)
	}

	mq, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		return fmt.Errorf("rabbitmq initialization failed: %w", err)
	}
	defer mq.Close()
	publisher := queue.NewRabbitMQPublisher(mq)
	consumer := queue.NewRabbitMQConsumer(mq, cfg.WorkerPrefetch, logger)

	registry, err := buildProviderRegistry(cfg)
	if err != nil {
		return fmt.Errorf("provider registry initialization failed: %w", err)
	}

	notifications := repository.NewGormNotificationRepo(db)
	attempts := repository.NewGormAttemptRepo(db)

	metrics := observability.NewMetrics()

	workerService, err := service.NewWorkerService(
		notifications, attempts, consumer, registry, limiter, cfg.WorkerConcurrency, logger)
	if err != nil {
		return fmt.Errorf("worker service initialization failed: %w", err)
	}
	workerService.SetMetrics(metrics)

	retryScanner, err := service.NewRetryScanner(
		notifications, publisher, time.Duration(cfg.RetryScanIntervalSec)*time.Second, 0, logger)
	if err != nil {
		return fmt.Errorf("retry scanner initialization failed: %w", err)
	}
	scheduleScanner, err := service.NewScheduleScanner(notifications, publisher, 0, 0, logger)
	if err != nil {
		return fmt.Errorf("schedule scanner initialization failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("pulse worker started",
		zap.Int("concurrency", cfg.WorkerConcurrency),
		zap.Int("prefetch", cfg.WorkerPrefetch),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return workerService.Start(gctx) })
	g.Go(func() error { return retryScanner.Start(gctx) })
	g.Go(func() error { return scheduleScanner.Start(gctx) })

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("pulse worker stopped")
	return nil
}

func buildProviderRegistry(cfg *config.Config) (*provider.Registry, error) {
	email, err := provider.NewEmailProvider(cfg.EmailGatewayURL, nil)
	if err != nil {
		return nil, fmt.Errorf("email provider: %w", err)
	}
	sms, err := provider.NewSMSProvider(cfg.SMSGatewayURL, nil)
	if err != nil {
		return nil, fmt.Errorf("sms provider: %w", err)
	}
	push, err := provider.NewPushProvider(cfg.PushGatewayURL, nil)
	if err != nil {
		return nil, fmt.Errorf("push provider: %w", err)
	}
	return provider.NewRegistry(email, sms, push)
}
