// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/ammerola/pharmacy-pos/internal/adapters/db"
	"github.com/ammerola/pharmacy-pos/internal/adapters/memory"
	redis_a "github.com/ammerola/pharmacy-pos/internal/adapters/redis_adapter"
	"github.com/ammerola/pharmacy-pos/internal/core/ports"
	"github.com/ammerola/pharmacy-pos/internal/core/services"
	"github.com/ammerola/pharmacy-pos/internal/handlers"
	"github.com/ammerola/pharmacy-pos/internal/handlers/middleware"
	"github.com/ammerola/pharmacy-pos/internal/pkg/config"
	"github.com/ammerola/pharmacy-pos/internal/pkg/logger"
	"github.com/ammerola/pharmacy-pos/internal/workers"
)

// Build information injected at compile time
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	slogger := logger.SetupLogger("info", "json")
	slogger.Info("starting pharmacy point of sale",
		slog.String("version", Version),
		slog.String("build_time", BuildTime),
	)

	cfg, err := config.Load(slogger.Logger)
	if err != nil {
		slogger.Error("failed to load configuration", logger.Err(err))
		os.Exit(1)
	}
	if cfg.App.Version == "" {
		cfg.App.Version = Version
	}

	slogger = logger.SetupLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	slogger.Info("configuration loaded",
		slog.String("environment", cfg.App.Environment),
		slog.String("storage_driver", cfg.Storage.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := initializeDependencies(ctx, cfg, slogger.Logger)
	if err != nil {
		slogger.Error("failed to initialize dependencies", logger.Err(err))
		os.Exit(1)
	}
	defer deps.cleanup()

	server := setupHTTPServer(ctx, cfg, deps, slogger.Logger)

	serverErrors := make(chan error, 1)
	go func() {
		slogger.Info("starting HTTP server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogger.Error("server error", logger.Err(err))
			os.Exit(1)
		}
	case <-ctx.Done():
		slogger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slogger.Error("failed to gracefully shutdown server", logger.Err(err))
			_ = server.Close()
		}
		slogger.Info("server shutdown complete")
	}
}

// dependencies holds all application dependencies
type dependencies struct {
	database    ports.Database
	closers     []func()
	redisClient *redis.Client
	inspector   *asynq.Inspector
	routes      handlers.Routes
}

func (d *dependencies) cleanup() {
	for _, c := range d.closers {
		c()
	}
}

// storageBackend is everything the services need from a store
type storageBackend struct {
	database    ports.Database
	inventory   ports.InventoryStore
	customers   ports.CustomerRepository
	ledger      ports.SaleLedger
	transactor  ports.SaleTransactor
	reports     ports.ReportStore
	close       func()
	requireJobs bool
}

func openStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (*storageBackend, error) {
	switch cfg.Storage.Driver {
	case "memory":
		log.Warn("using in-memory storage, data is lost on restart")
		store := memory.NewStore(log)
		return &storageBackend{
			database:   store,
			inventory:  store,
			customers:  store,
			ledger:     store,
			transactor: store,
			reports:    store,
			close:      func() {},
		}, nil

	case "postgres", "":
		log.Info("connecting to database",
			slog.String("host", cfg.Database.Host),
			slog.String("database", cfg.Database.Name),
		)
		database, err := db.NewDatabase(ctx, databaseConfig(cfg), log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}

		if cfg.Database.AutoMigrate {
			if err := runMigrations(ctx, cfg, log); err != nil {
				database.Close()
				return nil, err
			}
		}

		ledger := db.NewSaleLedger(database, log)
		return &storageBackend{
			database:    database,
			inventory:   db.NewInventoryStore(database, log),
			customers:   db.NewCustomerRepository(database, log),
			ledger:      ledger,
			transactor:  ledger,
			reports:     db.NewReportStore(database, log),
			close:       database.Close,
			requireJobs: true,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func initializeDependencies(ctx context.Context, cfg *config.Config, log *slog.Logger) (*dependencies, error) {
	deps := &dependencies{}

	backend, err := openStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	deps.database = backend.database
	deps.closers = append(deps.closers, backend.close)

	var (
		cache       ports.CacheRepository
		idempotency ports.IdempotencyStore
		events      ports.SaleEventPublisher
		jobs        ports.JobQueue
	)

	redisClient, err := connectRedis(ctx, cfg, log)
	switch {
	case err != nil && backend.requireJobs:
		deps.cleanup()
		return nil, err
	case err != nil:
		log.Warn("running without redis, caching and background jobs are disabled", logger.Err(err))
	default:
		deps.redisClient = redisClient
		deps.closers = append(deps.closers, func() { _ = redisClient.Close() })
		cache = redis_a.NewCache(redisClient, cfg.Redis.TTL, log)
		idempotency = redis_a.NewIdempotencyStore(redisClient, log)

		asynqOpt := asynq.RedisClientOpt{
			Addr:     cfg.Asynq.RedisAddr,
			Password: cfg.Asynq.RedisPassword,
			DB:       cfg.Asynq.RedisDB,
		}
		asynqClient := asynq.NewClient(asynqOpt)
		deps.inspector = asynq.NewInspector(asynqOpt)
		deps.closers = append(deps.closers,
			func() { _ = asynqClient.Close() },
			func() { _ = deps.inspector.Close() },
		)

		taskClient := workers.NewTaskClient(asynqClient, deps.inspector, workers.TaskClientOptions{
			MaxRetry:  cfg.Asynq.RetryMax,
			Retention: cfg.Asynq.ResultRetention,
		}, log)
		events, jobs = taskClient, taskClient
	}

	saleService := services.NewSaleCoordinator(
		backend.transactor,
		backend.ledger,
		backend.customers,
		services.SaleDeps{Idempotency: idempotency, Events: events, Cache: cache},
		services.SaleOptions{
			IdempotencyTTL:    cfg.Sales.IdempotencyTTL,
			PendingKeyTTL:     cfg.Sales.PendingKeyTTL,
			PostCommitTimeout: cfg.Sales.PostCommitTimeout,
		},
		log,
	)
	inventoryService := services.NewInventoryService(backend.inventory, cache, log)
	customerService := services.NewCustomerService(backend.customers, cache, log)
	reportService := services.NewReportService(backend.reports, cache, services.ReportOptions{
		LowStockThreshold: cfg.Sales.LowStockThreshold,
		DashboardTTL:      cfg.Sales.DashboardTTL,
	}, log)

	deps.routes = handlers.Routes{
		Sales:     handlers.NewSaleHandler(saleService, log),
		Items:     handlers.NewItemHandler(inventoryService, reportService, cfg.Sales.LowStockThreshold, log),
		Customers: handlers.NewCustomerHandler(customerService, reportService, log),
		Dashboard: handlers.NewDashboardHandler(reportService, log),
		Exports:   handlers.NewExportHandler(saleService, jobs, log),
	}
	if jobs != nil {
		deps.routes.Imports = handlers.NewImportHandler(jobs, cfg.FileProcessing.TempDir, handlers.ImportLimits{
			MaxPDFBytes:  int64(cfg.FileProcessing.PDFMaxSizeMB) << 20,
			MaxXLSXBytes: int64(cfg.FileProcessing.ExcelMaxSizeMB) << 20,
		}, log)
	}

	var redisHealth redis.UniversalClient
	if deps.redisClient != nil {
		redisHealth = deps.redisClient
	}
	var inspector handlers.QueueInspector
	if deps.inspector != nil {
		inspector = deps.inspector
	}
	deps.routes.Health = handlers.NewHealthHandler(deps.database, redisHealth, inspector, cfg, log)

	log.Info("all dependencies initialized")
	return deps, nil
}

func connectRedis(ctx context.Context, cfg *config.Config, log *slog.Logger) (*redis.Client, error) {
	if cfg.Redis.Host == "" {
		return nil, errors.New("redis host is not configured")
	}

	log.Info("connecting to Redis", slog.String("addr", cfg.GetRedisAddr()))
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		PoolTimeout:  cfg.Redis.PoolTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func setupHTTPServer(ctx context.Context, cfg *config.Config, deps *dependencies, log *slog.Logger) *http.Server {
	mux := handlers.NewRouter(deps.routes)

	chain := []middleware.Middleware{
		middleware.RequestID(cfg.Security.RequestIDHeader),
		middleware.Operator(cfg.Security.OperatorHeader),
		middleware.Logger(log, cfg.Security.TrustedProxies),
		middleware.Recovery(log),
	}
	if cfg.Security.RateLimitRequests > 0 {
		limiter := middleware.NewRateLimiter(ctx, cfg.Security.RateLimitRequests, cfg.Security.RateLimitDuration, cfg.Security.TrustedProxies)
		chain = append(chain, limiter.Middleware)
	}
	if len(cfg.Security.AllowedOrigins) > 0 {
		chain = append(chain, middleware.CORS(cfg.Security.AllowedOrigins))
	}
	if cfg.Security.SecureHeaders {
		chain = append(chain, middleware.SecureHeaders)
	}
	chain = append(chain, middleware.Timeout(cfg.Server.RequestTimeout))

	return &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        middleware.Chain(mux, chain...),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(log.Handler(), slog.LevelError),
	}
}

func databaseConfig(cfg *config.Config) *db.Config {
	return &db.Config{
		Host:               cfg.Database.Host,
		Port:               cfg.Database.Port,
		User:               cfg.Database.User,
		Password:           cfg.Database.Password,
		Database:           cfg.Database.Name,
		SSLMode:            cfg.Database.SSLMode,
		MaxConnections:     cfg.Database.MaxConnections,
		MinConnections:     cfg.Database.MinConnections,
		MaxConnLifetime:    cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:    cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod:  cfg.Database.HealthCheckPeriod,
		ConnectTimeout:     cfg.Database.ConnectTimeout,
		StatementTimeout:   cfg.Database.StatementTimeout,
		LockTimeout:        cfg.Database.LockTimeout,
		EnableQueryLogging: cfg.Database.EnableQueryLogging,
	}
}

func runMigrations(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	log.Info("running database migrations")

	return db.RunMigrationsWithRetry(ctx, &db.MigrationConfig{
		DatabaseURL: cfg.GetDatabaseURL(),
		SourcePath:  cfg.Database.MigrationPath,
	}, log, 3)
}
