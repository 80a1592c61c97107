// test/helpers/helpers.go
package helpers

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/pharmacy-pos/internal/adapters/db"
	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/internal/pkg/config"
)

// TestDB represents a test database instance
type TestDB struct {
	PgxPool  *pgxpool.Pool
	Database *db.Database
	Resource *dockertest.Resource
	Pool     *dockertest.Pool
	Config   *db.Config
}

// TestRedis represents a test Redis instance
type TestRedis struct {
	Client *redis.Client
	Server *miniredis.Miniredis
}

// TestLogger returns a test logger
func TestLogger() *slog.Logger {
	level := slog.LevelError
	if testing.Verbose() {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// SetupTestDB starts a PostgreSQL container and applies the embedded migrations
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	pool, err := dockertest.NewPool("")
	require.NoError(t, err, "Could not connect to Docker")

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=test",
			"POSTGRES_PASSWORD=test",
			"POSTGRES_DB=test_pharmacy",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err, "Could not start PostgreSQL container")

	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("Could not purge resource: %s", err)
		}
	})

	dbConfig := &db.Config{
		Host:               "localhost",
		Port:               resource.GetPort("5432/tcp"),
		User:               "test",
		Password:           "test",
		Database:           "test_pharmacy",
		SSLMode:            "disable",
		MaxConnections:     25,
		MinConnections:     1,
		MaxConnLifetime:    time.Hour,
		MaxConnIdleTime:    30 * time.Minute,
		HealthCheckPeriod:  time.Minute,
		ConnectTimeout:     10 * time.Second,
		StatementTimeout:   30 * time.Second,
		LockTimeout:        10 * time.Second,
		EnableQueryLogging: testing.Verbose(),
	}

	var database *db.Database
	err = pool.Retry(func() error {
		ctx := context.Background()
		var err error
		database, err = db.NewDatabase(ctx, dbConfig, TestLogger())
		if err != nil {
			return err
		}
		return database.Ping(ctx)
	})
	require.NoError(t, err, "Could not connect to PostgreSQL")
	t.Cleanup(database.Close)

	err = db.RunMigrationsWithRetry(context.Background(), &db.MigrationConfig{
		DatabaseURL: dbConfig.DatabaseURL(),
		TableName:   "schema_migrations",
		SchemaName:  "public",
	}, TestLogger(), 3)
	require.NoError(t, err, "Could not run migrations")

	return &TestDB{
		PgxPool:  database.Pool(),
		Database: database,
		Resource: resource,
		Pool:     pool,
		Config:   dbConfig,
	}
}

// SetupTestRedis creates an in-process Redis for testing
func SetupTestRedis(t *testing.T) *TestRedis {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() {
		client.Close()
	})

	return &TestRedis{Client: client, Server: mr}
}

// SetupMockDB creates a mock database for unit testing
func SetupMockDB(t *testing.T) (sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create mock DB")

	t.Cleanup(func() {
		sqlDB.Close()
	})

	return mock, sqlDB
}

// LoadTestConfig returns a test configuration
func LoadTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:        "pharmacy-pos-test",
			Environment: "test",
			Version:     "test",
			LogLevel:    "debug",
			LogFormat:   "text",
			Debug:       true,
		},
		Database: config.DatabaseConfig{
			Host:           "localhost",
			Port:           "5432",
			User:           "test",
			Password:       "test",
			Name:           "test_pharmacy",
			SSLMode:        "disable",
			MaxConnections: 10,
			MinConnections: 2,
		},
		Redis: config.RedisConfig{
			Host:     "localhost",
			Port:     "6379",
			TTL:      time.Hour,
			PoolSize: 10,
		},
		Storage: config.StorageConfig{Driver: "memory"},
		Sales: config.SalesConfig{
			LowStockThreshold: domain.DefaultLowStockThreshold,
			DashboardTTL:      30 * time.Second,
			IdempotencyTTL:    time.Hour,
			PendingKeyTTL:     time.Minute,
			PostCommitTimeout: 2 * time.Second,
		},
		FileProcessing: config.FileProcessingConfig{
			PDFMaxSizeMB:      10,
			ExcelMaxSizeMB:    10,
			ProcessingTimeout: time.Minute,
			TempDir:           os.TempDir(),
		},
		Security: config.SecurityConfig{
			RateLimitRequests: 1000,
			RateLimitDuration: time.Minute,
			AllowedOrigins:    []string{"*"},
			RequestIDHeader:   "X-Request-ID",
			OperatorHeader:    "X-Operator-ID",
		},
		Server: config.ServerConfig{
			Host:           "localhost",
			Port:           "8080",
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			RequestTimeout: 10 * time.Second,
			MaxUploadMB:    10,
		},
	}
}

var itemSeq atomic.Int64

// CreateTestItem creates an unsaved item with sensible defaults
func CreateTestItem(overrides ...func(*domain.Item)) *domain.Item {
	n := itemSeq.Add(1)
	expiry := time.Now().UTC().AddDate(1, 0, 0).Truncate(24 * time.Hour)
	item := &domain.Item{
		Name:           fmt.Sprintf("Test Medicine %d", n),
		Description:    "Film-coated tablets",
		UnitPrice:      decimal.RequireFromString("4.99"),
		QuantityOnHand: 100,
		Manufacturer:   "Acme Pharma",
		ExpiryDate:     &expiry,
	}
	for _, override := range overrides {
		override(item)
	}
	return item
}

// CreateTestCustomer creates an unsaved customer with a unique phone number
func CreateTestCustomer(overrides ...func(*domain.Customer)) *domain.Customer {
	n := itemSeq.Add(1)
	customer := &domain.Customer{
		Name:    fmt.Sprintf("Test Customer %d", n),
		Phone:   fmt.Sprintf("555%07d", n),
		Email:   fmt.Sprintf("customer%d@example.com", n),
		Address: "1 Main Street",
	}
	for _, override := range overrides {
		override(customer)
	}
	return customer
}

// AssertEventuallyWithTimeout asserts that a condition is met within a timeout
func AssertEventuallyWithTimeout(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Errorf("Condition not met within %v: %s", timeout, msg)
}

// TruncateAllTables empties every table and resets the id sequences
func TruncateAllTables(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		"TRUNCATE TABLE sale_lines, sales, customers, items RESTART IDENTITY CASCADE")
	require.NoError(t, err, "Failed to truncate tables")
}

// CreateTempFile creates a temporary file for testing
func CreateTempFile(t *testing.T, content []byte, extension string) string {
	t.Helper()

	file, err := os.CreateTemp(t.TempDir(), fmt.Sprintf("test-*%s", extension))
	require.NoError(t, err, "Failed to create temp file")

	_, err = file.Write(content)
	require.NoError(t, err, "Failed to write to temp file")
	require.NoError(t, file.Close())

	return file.Name()
}
