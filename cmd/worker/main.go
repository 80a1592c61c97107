// cmd/worker/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/ammerola/pharmacy-pos/internal/adapters/db"
	redis_a "github.com/ammerola/pharmacy-pos/internal/adapters/redis_adapter"
	"github.com/ammerola/pharmacy-pos/internal/adapters/storage"
	"github.com/ammerola/pharmacy-pos/internal/core/ports"
	"github.com/ammerola/pharmacy-pos/internal/core/services"
	"github.com/ammerola/pharmacy-pos/internal/pkg/config"
	"github.com/ammerola/pharmacy-pos/internal/pkg/logger"
	"github.com/ammerola/pharmacy-pos/internal/workers"
)

func main() {
	slogger := logger.SetupLogger("info", "json")

	cfg, err := config.Load(slogger.Logger)
	if err != nil {
		slogger.Error("failed to load configuration", logger.Err(err))
		os.Exit(1)
	}

	slogger = logger.SetupLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	log := slogger.Logger
	log.Info("starting worker",
		slog.String("environment", cfg.App.Environment),
		slog.String("redis_addr", cfg.Asynq.RedisAddr))

	if cfg.Storage.Driver == "memory" {
		log.Error("the worker needs a shared store, memory storage is not supported")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := initDatabase(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize database", logger.Err(err))
		os.Exit(1)
	}
	defer database.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	cache := redis_a.NewCache(redisClient, cfg.Redis.TTL, log)

	processors, err := buildProcessors(ctx, cfg, database, cache, log)
	if err != nil {
		log.Error("failed to build task processors", logger.Err(err))
		os.Exit(1)
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Asynq.RedisAddr,
		Password: cfg.Asynq.RedisPassword,
		DB:       cfg.Asynq.RedisDB,
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:     cfg.Asynq.Concurrency,
		Queues:          cfg.Asynq.Queues,
		StrictPriority:  cfg.Asynq.StrictPriority,
		ErrorHandler:    asynq.ErrorHandlerFunc(handleError(log)),
		RetryDelayFunc:  workers.RetryDelay,
		ShutdownTimeout: cfg.Asynq.ShutdownTimeout,
		HealthCheckFunc: healthCheck(log),
		Logger:          workers.NewAsynqLogger(log),
	})

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Logger:   workers.NewAsynqLogger(log),
		Location: time.UTC,
	})
	entries, err := workers.RegisterSchedules(scheduler, workers.ScheduleConfig{
		ArchiveSchedule: cfg.Sales.ArchiveSchedule,
		CleanupInterval: cfg.FileProcessing.CleanupInterval,
	})
	if err != nil {
		log.Error("failed to register periodic tasks", logger.Err(err))
		os.Exit(1)
	}

	if err := srv.Start(workers.NewServeMux(processors, log)); err != nil {
		log.Error("failed to start worker server", logger.Err(err))
		os.Exit(1)
	}
	if err := scheduler.Start(); err != nil {
		log.Error("failed to start scheduler", logger.Err(err))
		srv.Shutdown()
		os.Exit(1)
	}

	log.Info("worker started",
		slog.Int("concurrency", cfg.Asynq.Concurrency),
		slog.Any("queues", cfg.Asynq.Queues),
		slog.Int("scheduled_tasks", len(entries)))

	<-ctx.Done()
	log.Info("shutdown signal received")

	scheduler.Shutdown()
	srv.Shutdown()
	log.Info("worker shutdown complete")
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*db.Database, error) {
	return db.NewDatabase(ctx, &db.Config{
		Host:               cfg.Database.Host,
		Port:               cfg.Database.Port,
		User:               cfg.Database.User,
		Password:           cfg.Database.Password,
		Database:           cfg.Database.Name,
		SSLMode:            cfg.Database.SSLMode,
		MaxConnections:     10, // fewer connections for the worker
		MinConnections:     2,
		MaxConnLifetime:    cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:    cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod:  cfg.Database.HealthCheckPeriod,
		ConnectTimeout:     cfg.Database.ConnectTimeout,
		StatementTimeout:   cfg.Database.StatementTimeout,
		LockTimeout:        cfg.Database.LockTimeout,
		EnableQueryLogging: cfg.Database.EnableQueryLogging,
	}, logger)
}

func buildProcessors(ctx context.Context, cfg *config.Config, database *db.Database, cache ports.CacheRepository, log *slog.Logger) (workers.Processors, error) {
	ledger := db.NewSaleLedger(database, log)
	customers := db.NewCustomerRepository(database, log)

	saleService := services.NewSaleCoordinator(ledger, ledger, customers,
		services.SaleDeps{Cache: cache}, services.SaleOptions{}, log)
	inventoryService := services.NewInventoryService(db.NewInventoryStore(database, log), cache, log)

	notifier, err := workers.NewNotifier(cfg, log)
	if err != nil {
		return workers.Processors{}, fmt.Errorf("failed to create notifier: %w", err)
	}

	archive, err := openArchiveStorage(ctx, cfg, log)
	if err != nil {
		return workers.Processors{}, err
	}

	cleanupAge := 2 * cfg.FileProcessing.ProcessingTimeout
	return workers.Processors{
		StockAlert:    workers.NewStockAlertProcessor(notifier, cfg.Sales.LowStockThreshold, log),
		RestockImport: workers.NewRestockImportProcessor(inventoryService, cfg.FileProcessing.TempDir, log),
		SalesExport:   workers.NewSalesExportProcessor(saleService, archive, cfg.AWS.PresignExpiry, log),
		Cleanup:       workers.NewCleanupProcessor(cfg.FileProcessing.TempDir, max(cleanupAge, time.Hour), log),
	}, nil
}

// openArchiveStorage uses S3 when a bucket is configured and a local
// directory otherwise
func openArchiveStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (ports.ObjectStorage, error) {
	if cfg.AWS.S3Bucket == "" {
		dir := filepath.Join(cfg.FileProcessing.TempDir, "archive")
		log.Warn("no S3 bucket configured, archiving sales locally", slog.String("dir", dir))
		return storage.NewLocalStorage(dir, log), nil
	}

	s3, err := storage.NewS3Storage(ctx, &storage.S3Config{
		Region:          cfg.AWS.Region,
		Bucket:          cfg.AWS.S3Bucket,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		Endpoint:        cfg.AWS.S3Endpoint,
		UsePathStyle:    cfg.AWS.UsePathStyle,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
	}
	return s3, nil
}

func handleError(log *slog.Logger) func(ctx context.Context, task *asynq.Task, err error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		log.ErrorContext(ctx, "task processing failed",
			slog.String("type", task.Type()),
			slog.Int("retried", retried),
			slog.Int("max_retry", maxRetry),
			logger.Err(err))
	}
}

func healthCheck(log *slog.Logger) func(error) {
	return func(err error) {
		if err != nil {
			log.Error("worker health check failed", logger.Err(err))
		}
	}
}
