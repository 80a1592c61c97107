// internal/pkg/config/config.go
package config

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App            AppConfig
	Database       DatabaseConfig
	Redis          RedisConfig
	Asynq          AsynqConfig
	AWS            AWSConfig
	Storage        StorageConfig
	Sales          SalesConfig
	FileProcessing FileProcessingConfig
	Notifications  NotificationsConfig
	Security       SecurityConfig
	Server         ServerConfig
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Name        string `required:"true"`
	Environment string // development, staging, production
	Version     string
	LogLevel    string
	LogFormat   string // json, text
	Debug       bool
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host               string `required:"true"`
	Port               string `required:"true"`
	User               string
	Password           string
	Name               string `required:"true"`
	SSLMode            string
	MaxConnections     int32
	MinConnections     int32
	MaxConnLifetime    time.Duration
	MaxConnIdleTime    time.Duration
	HealthCheckPeriod  time.Duration
	ConnectTimeout     time.Duration
	StatementTimeout   time.Duration
	LockTimeout        time.Duration
	EnableQueryLogging bool
	AutoMigrate        bool
	MigrationPath      string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
	PoolTimeout  time.Duration
	TTL          time.Duration
}

// AsynqConfig holds Asynq configuration
type AsynqConfig struct {
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	Concurrency     int
	Queues          map[string]int // queue name -> priority
	StrictPriority  bool
	RetryMax        int
	ShutdownTimeout time.Duration
	ResultRetention time.Duration
}

// AWSConfig holds AWS configuration
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	S3Endpoint      string // For MinIO in development
	UsePathStyle    bool   // For MinIO compatibility
	PresignExpiry   time.Duration
	SecretName      string // Secrets Manager secret overlaying passwords
}

// StorageConfig selects the persistence backend
type StorageConfig struct {
	Driver string // postgres, memory
}

// SalesConfig holds checkout and reporting settings
type SalesConfig struct {
	LowStockThreshold int
	DashboardTTL      time.Duration
	IdempotencyTTL    time.Duration
	PendingKeyTTL     time.Duration // how long an unfinished claim blocks retries
	PostCommitTimeout time.Duration
	ArchiveSchedule   string // cron spec for the S3 sales archive, empty disables it
}

// FileProcessingConfig holds restock import settings
type FileProcessingConfig struct {
	PDFMaxSizeMB      int
	ExcelMaxSizeMB    int
	ProcessingTimeout time.Duration
	TempDir           string
	CleanupInterval   time.Duration
}

// NotificationsConfig holds the low-stock alert mail settings
type NotificationsConfig struct {
	Enabled      bool
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	From         string
	To           []string
}

// SecurityConfig holds HTTP hardening configuration
type SecurityConfig struct {
	RateLimitRequests int
	RateLimitDuration time.Duration
	AllowedOrigins    []string
	TrustedProxies    []string
	SecureHeaders     bool
	RequestIDHeader   string
	OperatorHeader    string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string `required:"true"`
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	MaxHeaderBytes  int
	GracefulTimeout time.Duration
	MaxUploadMB     int
}

// Load loads configuration from the environment, an optional .env file and an
// optional config file named by CONFIG_FILE
func Load(logger *slog.Logger) (*Config, error) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" || env == "local" {
		if err := godotenv.Load(); err != nil {
			logger.Debug("no .env file found, using environment variables",
				slog.String("error", err.Error()))
		} else {
			logger.Info(".env file loaded")
		}
	}

	v := newViper(env)
	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		logger.Info("config file loaded", slog.String("path", path))
	}

	cfg := fromViper(v, env)

	if cfg.AWS.SecretName != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		sm, err := NewAWSSecretsManager(ctx, cfg.AWS.Region, cfg.AWS.SecretName, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create secrets manager: %w", err)
		}
		if err := ApplySecrets(ctx, cfg, sm); err != nil {
			return nil, fmt.Errorf("failed to apply secrets: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func newViper(env string) *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v, env)
	return v
}

func setDefaults(v *viper.Viper, env string) {
	dev := env == "development" || env == "local"

	v.SetDefault("app_name", "pharmacy-pos")
	v.SetDefault("app_version", "dev")
	v.SetDefault("log_level", "debug")
	v.SetDefault("log_format", "json")
	v.SetDefault("app_debug", dev)

	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "pharmacy")
	v.SetDefault("db_password", "pharmacy_dev")
	v.SetDefault("db_name", "pharmacy_pos")
	v.SetDefault("db_ssl_mode", "disable")
	v.SetDefault("db_max_connections", 25)
	v.SetDefault("db_min_connections", 5)
	v.SetDefault("db_connection_lifetime", time.Hour)
	v.SetDefault("db_idle_time", 30*time.Minute)
	v.SetDefault("db_health_check_period", time.Minute)
	v.SetDefault("db_connect_timeout", 10*time.Second)
	v.SetDefault("db_statement_timeout", 15*time.Second)
	v.SetDefault("db_lock_timeout", 5*time.Second)
	v.SetDefault("db_query_logging", false)
	v.SetDefault("db_auto_migrate", true)
	v.SetDefault("db_migration_path", "")

	v.SetDefault("redis_host", "localhost")
	v.SetDefault("redis_port", "6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_max_retries", 3)
	v.SetDefault("redis_dial_timeout", 5*time.Second)
	v.SetDefault("redis_read_timeout", 3*time.Second)
	v.SetDefault("redis_write_timeout", 3*time.Second)
	v.SetDefault("redis_pool_size", 10)
	v.SetDefault("redis_min_idle_conns", 2)
	v.SetDefault("redis_pool_timeout", 4*time.Second)
	v.SetDefault("redis_ttl", time.Hour)

	v.SetDefault("asynq_redis_db", 1)
	v.SetDefault("asynq_concurrency", 10)
	v.SetDefault("asynq_queues", "critical:6,default:3,low:1")
	v.SetDefault("asynq_strict_priority", false)
	v.SetDefault("asynq_retry_max", 3)
	v.SetDefault("asynq_shutdown_timeout", 30*time.Second)
	v.SetDefault("asynq_result_retention", 24*time.Hour)

	v.SetDefault("aws_region", "us-east-1")
	v.SetDefault("aws_access_key_id", "")
	v.SetDefault("aws_secret_access_key", "")
	v.SetDefault("aws_s3_bucket", "pharmacy-exports")
	v.SetDefault("aws_s3_endpoint", "")
	v.SetDefault("aws_s3_path_style", dev)
	v.SetDefault("aws_presign_expiry", 15*time.Minute)
	v.SetDefault("aws_secret_name", "")

	v.SetDefault("storage_driver", "postgres")

	v.SetDefault("low_stock_threshold", 10)
	v.SetDefault("dashboard_cache_ttl", 30*time.Second)
	v.SetDefault("idempotency_ttl", 24*time.Hour)
	v.SetDefault("idempotency_pending_ttl", 2*time.Minute)
	v.SetDefault("post_commit_timeout", 5*time.Second)
	v.SetDefault("sales_archive_schedule", "0 2 * * *")

	v.SetDefault("pdf_max_size_mb", 20)
	v.SetDefault("excel_max_size_mb", 20)
	v.SetDefault("processing_timeout", 5*time.Minute)
	v.SetDefault("temp_dir", os.TempDir())
	v.SetDefault("cleanup_interval", time.Hour)

	v.SetDefault("notifications_enabled", false)
	v.SetDefault("smtp_host", "localhost")
	v.SetDefault("smtp_port", "25")
	v.SetDefault("smtp_username", "")
	v.SetDefault("smtp_password", "")
	v.SetDefault("notify_from", "pos@pharmacy.local")
	v.SetDefault("notify_to", "")

	v.SetDefault("rate_limit_requests", 100)
	v.SetDefault("rate_limit_duration", time.Minute)
	v.SetDefault("allowed_origins", "*")
	v.SetDefault("trusted_proxies", "")
	v.SetDefault("secure_headers", env == "production")
	v.SetDefault("request_id_header", "X-Request-ID")
	v.SetDefault("operator_header", "X-Operator-ID")

	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("server_port", "8080")
	v.SetDefault("server_read_timeout", 15*time.Second)
	v.SetDefault("server_write_timeout", 30*time.Second)
	v.SetDefault("server_idle_timeout", 60*time.Second)
	v.SetDefault("server_request_timeout", 20*time.Second)
	v.SetDefault("server_max_header_bytes", 1<<20)
	v.SetDefault("server_graceful_timeout", 30*time.Second)
	v.SetDefault("server_max_upload_mb", 20)
}

func fromViper(v *viper.Viper, env string) *Config {
	return &Config{
		App: AppConfig{
			Name:        v.GetString("app_name"),
			Environment: env,
			Version:     v.GetString("app_version"),
			LogLevel:    v.GetString("log_level"),
			LogFormat:   v.GetString("log_format"),
			Debug:       v.GetBool("app_debug"),
		},
		Database: DatabaseConfig{
			Host:               v.GetString("db_host"),
			Port:               v.GetString("db_port"),
			User:               v.GetString("db_user"),
			Password:           v.GetString("db_password"),
			Name:               v.GetString("db_name"),
			SSLMode:            v.GetString("db_ssl_mode"),
			MaxConnections:     v.GetInt32("db_max_connections"),
			MinConnections:     v.GetInt32("db_min_connections"),
			MaxConnLifetime:    v.GetDuration("db_connection_lifetime"),
			MaxConnIdleTime:    v.GetDuration("db_idle_time"),
			HealthCheckPeriod:  v.GetDuration("db_health_check_period"),
			ConnectTimeout:     v.GetDuration("db_connect_timeout"),
			StatementTimeout:   v.GetDuration("db_statement_timeout"),
			LockTimeout:        v.GetDuration("db_lock_timeout"),
			EnableQueryLogging: v.GetBool("db_query_logging"),
			AutoMigrate:        v.GetBool("db_auto_migrate"),
			MigrationPath:      v.GetString("db_migration_path"),
		},
		Redis: RedisConfig{
			Host:         v.GetString("redis_host"),
			Port:         v.GetString("redis_port"),
			Password:     v.GetString("redis_password"),
			DB:           v.GetInt("redis_db"),
			MaxRetries:   v.GetInt("redis_max_retries"),
			DialTimeout:  v.GetDuration("redis_dial_timeout"),
			ReadTimeout:  v.GetDuration("redis_read_timeout"),
			WriteTimeout: v.GetDuration("redis_write_timeout"),
			PoolSize:     v.GetInt("redis_pool_size"),
			MinIdleConns: v.GetInt("redis_min_idle_conns"),
			PoolTimeout:  v.GetDuration("redis_pool_timeout"),
			TTL:          v.GetDuration("redis_ttl"),
		},
		Asynq: AsynqConfig{
			RedisAddr:       net.JoinHostPort(v.GetString("redis_host"), v.GetString("redis_port")),
			RedisPassword:   v.GetString("redis_password"),
			RedisDB:         v.GetInt("asynq_redis_db"),
			Concurrency:     v.GetInt("asynq_concurrency"),
			Queues:          parseQueues(v.GetString("asynq_queues")),
			StrictPriority:  v.GetBool("asynq_strict_priority"),
			RetryMax:        v.GetInt("asynq_retry_max"),
			ShutdownTimeout: v.GetDuration("asynq_shutdown_timeout"),
			ResultRetention: v.GetDuration("asynq_result_retention"),
		},
		AWS: AWSConfig{
			Region:          v.GetString("aws_region"),
			AccessKeyID:     v.GetString("aws_access_key_id"),
			SecretAccessKey: v.GetString("aws_secret_access_key"),
			S3Bucket:        v.GetString("aws_s3_bucket"),
			S3Endpoint:      v.GetString("aws_s3_endpoint"),
			UsePathStyle:    v.GetBool("aws_s3_path_style"),
			PresignExpiry:   v.GetDuration("aws_presign_expiry"),
			SecretName:      v.GetString("aws_secret_name"),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(v.GetString("storage_driver")),
		},
		Sales: SalesConfig{
			LowStockThreshold: v.GetInt("low_stock_threshold"),
			DashboardTTL:      v.GetDuration("dashboard_cache_ttl"),
			IdempotencyTTL:    v.GetDuration("idempotency_ttl"),
			PendingKeyTTL:     v.GetDuration("idempotency_pending_ttl"),
			PostCommitTimeout: v.GetDuration("post_commit_timeout"),
			ArchiveSchedule:   v.GetString("sales_archive_schedule"),
		},
		FileProcessing: FileProcessingConfig{
			PDFMaxSizeMB:      v.GetInt("pdf_max_size_mb"),
			ExcelMaxSizeMB:    v.GetInt("excel_max_size_mb"),
			ProcessingTimeout: v.GetDuration("processing_timeout"),
			TempDir:           v.GetString("temp_dir"),
			CleanupInterval:   v.GetDuration("cleanup_interval"),
		},
		Notifications: NotificationsConfig{
			Enabled:      v.GetBool("notifications_enabled"),
			SMTPHost:     v.GetString("smtp_host"),
			SMTPPort:     v.GetString("smtp_port"),
			SMTPUsername: v.GetString("smtp_username"),
			SMTPPassword: v.GetString("smtp_password"),
			From:         v.GetString("notify_from"),
			To:           splitList(v.GetString("notify_to")),
		},
		Security: SecurityConfig{
			RateLimitRequests: v.GetInt("rate_limit_requests"),
			RateLimitDuration: v.GetDuration("rate_limit_duration"),
			AllowedOrigins:    splitList(v.GetString("allowed_origins")),
			TrustedProxies:    splitList(v.GetString("trusted_proxies")),
			SecureHeaders:     v.GetBool("secure_headers"),
			RequestIDHeader:   v.GetString("request_id_header"),
			OperatorHeader:    v.GetString("operator_header"),
		},
		Server: ServerConfig{
			Host:            v.GetString("server_host"),
			Port:            v.GetString("server_port"),
			ReadTimeout:     v.GetDuration("server_read_timeout"),
			WriteTimeout:    v.GetDuration("server_write_timeout"),
			IdleTimeout:     v.GetDuration("server_idle_timeout"),
			RequestTimeout:  v.GetDuration("server_request_timeout"),
			MaxHeaderBytes:  v.GetInt("server_max_header_bytes"),
			GracefulTimeout: v.GetDuration("server_graceful_timeout"),
			MaxUploadMB:     v.GetInt("server_max_upload_mb"),
		},
	}
}

// Validate runs the basic validator and, in production, the strict one
func (c *Config) Validate() error {
	validators := []Validator{&BasicValidator{}}
	if c.IsProduction() {
		validators = append(validators, &ProductionValidator{})
	}
	for _, v := range validators {
		if err := v.Validate(c); err != nil {
			return err
		}
	}
	return nil
}

// GetDatabaseURL returns the formatted database connection string
func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf(
		"postgresql://%s:%s@%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		net.JoinHostPort(c.Database.Host, c.Database.Port),
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis host:port
func (c *Config) GetRedisAddr() string {
	return net.JoinHostPort(c.Redis.Host, c.Redis.Port)
}

// GetServerAddress returns the formatted server address
func (c *Config) GetServerAddress() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "local"
}

func splitList(value string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseQueues(queuesStr string) map[string]int {
	queues := make(map[string]int)
	for _, pair := range strings.Split(queuesStr, ",") {
		name, weight, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		priority, err := strconv.Atoi(strings.TrimSpace(weight))
		if err == nil && priority > 0 {
			queues[strings.TrimSpace(name)] = priority
		}
	}
	if len(queues) == 0 {
		queues["default"] = 1
	}
	return queues
}
