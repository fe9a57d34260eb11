package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/pulselabs/pulse/internal/config"
	"github.com/pulselabs/pulse/internal/handler"
	"github.com/pulselabs/pulse/internal/infra/postgresql"
	"github.com/pulselabs/pulse/internal/infra/postgresql/migrations"
	infraredis "github.com/pulselabs/pulse/internal/infra/redis"
	"github.com/pulselabs/pulse/internal/observability"
	"github.com/pulselabs/pulse/internal/queue"
	"github.com/pulselabs/pulse/internal/repository"
	"github.com/pulselabs/pulse/internal/service"
	"github.com/pulselabs/pulse/internal/transport"
)

const shutdownTimeout = 10 * time.Second

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
		logger.Fatal("api exited with error", zap.Error(err))
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

	notifications := repository.NewGormNotificationRepo(db)
	attempts := repository.NewGormAttemptRepo(db)
	templates := repository.NewGormTemplateRepo(db)
	stats := repository.NewGormStatsRepo(db)

	metrics := observability.NewMetrics()

	notificationService, err := service.NewNotificationService(
		notifications, templates, publisher, limiter, metrics, logger, cfg.DefaultMaxAttempts)
	if err != nil {
		return fmt.Errorf("notification service initialization failed: %w", err)
	}
	templateService, err := service.NewTemplateService(templates, logger)
	if err != nil {
		return fmt.Errorf("template service initialization failed: %w", err)
	}

	app := fiber.New(fiber.Config{
		AppName:      "pulse-api",
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(requestid.New())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", metrics.FiberHandler())
	if err := handler.RegisterNotificationRoutes(app, notificationService, attempts); err != nil {
		return fmt.Errorf("notification routes registration failed: %w", err)
	}
	if err := handler.RegisterTemplateRoutes(app, templateService); err != nil {
		return fmt.Errorf("template routes registration failed: %w", err)
	}
	if err := handler.RegisterStatsRoutes(app, stats); err != nil {
		return fmt.Errorf("stats routes registration failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("pulse api started", zap.Int("port", cfg.APIPort))
		errCh <- app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	}
}
