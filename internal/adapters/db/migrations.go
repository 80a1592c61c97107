// internal/adapters/db/migrations.go
package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/url"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var schemaMigrations embed.FS

// MigrationConfig holds migration configuration
type MigrationConfig struct {
	DatabaseURL string
	// SourcePath overrides the embedded schema with a directory of .sql files
	SourcePath       string
	TableName        string
	SchemaName       string
	ForceDirty       bool
	StatementTimeout time.Duration
}

// Migrator applies the schema with golang-migrate
type Migrator struct {
	migrate *migrate.Migrate
	config  *MigrationConfig
	logger  *slog.Logger
	db      *sql.DB
}

// NewMigrator creates a new migrator instance
func NewMigrator(config *MigrationConfig, logger *slog.Logger) (*Migrator, error) {
	if config == nil {
		return nil, errors.New("migration config is required")
	}
	if config.TableName == "" {
		config.TableName = "schema_migrations"
	}
	if config.SchemaName == "" {
		config.SchemaName = "public"
	}
	if config.StatementTimeout == 0 {
		config.StatementTimeout = time.Minute * 10
	}

	db, err := sql.Open("pgx", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable:  config.TableName,
		SchemaName:       config.SchemaName,
		StatementTimeout: config.StatementTimeout,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	var m *migrate.Migrate
	if config.SourcePath != "" {
		m, err = migrate.NewWithDatabaseInstance("file://"+config.SourcePath, "postgres", driver)
	} else {
		var src source.Driver
		src, err = iofs.New(schemaMigrations, "migrations")
		if err == nil {
			m, err = migrate.NewWithInstance("iofs", src, "postgres", driver)
		}
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}

	return &Migrator{
		migrate: m,
		config:  config,
		logger:  logger,
		db:      db,
	}, nil
}

// Up runs all available migrations
func (m *Migrator) Up(ctx context.Context) error {
	m.logger.InfoContext(ctx, "running migrations up")

	version, dirty, err := m.migrate.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	if dirty {
		if !m.config.ForceDirty {
			return fmt.Errorf("database is in dirty state at version %d", version)
		}
		m.logger.WarnContext(ctx, "forcing dirty migration",
			slog.Uint64("version", uint64(version)))
		if err := m.migrate.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.migrate.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.InfoContext(ctx, "no migrations to run")
			return nil
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if newVersion, _, err := m.migrate.Version(); err == nil {
		m.logger.InfoContext(ctx, "migrations completed",
			slog.Uint64("version", uint64(newVersion)))
	}
	return nil
}

// Down rolls back the last migration
func (m *Migrator) Down(ctx context.Context) error {
	version, dirty, err := m.migrate.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d", version)
	}

	if err := m.migrate.Steps(-1); err != nil {
		if errors.Is(err, migrate.ErrNoChange) || errors.Is(err, fs.ErrNotExist) {
			m.logger.InfoContext(ctx, "no migrations to roll back")
			return nil
		}
		return fmt.Errorf("failed to roll back migration: %w", err)
	}

	m.logger.InfoContext(ctx, "migration rolled back",
		slog.Uint64("from_version", uint64(version)))
	return nil
}

// Version returns the current migration version
func (m *Migrator) Version(ctx context.Context) (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get version: %w", err)
	}
	return version, dirty, nil
}

// Status reports the current version and every applied migration row
func (m *Migrator) Status(ctx context.Context) (*MigrationStatus, error) {
	version, dirty, err := m.Version(ctx)
	if err != nil {
		return nil, err
	}

	applied, err := appliedMigrations(ctx, m.db, m.config.SchemaName, m.config.TableName)
	if err != nil {
		return nil, err
	}

	return &MigrationStatus{
		CurrentVersion: version,
		IsDirty:        dirty,
		Applied:        applied,
	}, nil
}

func appliedMigrations(ctx context.Context, db *sql.DB, schema, table string) ([]AppliedMigration, error) {
	query := fmt.Sprintf(`SELECT version, dirty FROM %s.%s ORDER BY version ASC`, schema, table)

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make([]AppliedMigration, 0)
	for rows.Next() {
		var a AppliedMigration
		if err := rows.Scan(&a.Version, &a.Dirty); err != nil {
			return nil, fmt.Errorf("failed to scan migration: %w", err)
		}
		applied = append(applied, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate migrations: %w", err)
	}
	return applied, nil
}

// Close closes the migrator and releases resources
func (m *Migrator) Close() error {
	if m.migrate != nil {
		sourceErr, dbErr := m.migrate.Close()
		if err := errors.Join(sourceErr, dbErr); err != nil {
			return fmt.Errorf("failed to close migrator: %w", err)
		}
	}
	if m.db != nil {
		if err := m.db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}

// MigrationStatus represents the current status of migrations
type MigrationStatus struct {
	CurrentVersion uint               `json:"current_version"`
	IsDirty        bool               `json:"is_dirty"`
	Applied        []AppliedMigration `json:"applied"`
}

// AppliedMigration represents an applied migration
type AppliedMigration struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

// RunMigrationsWithRetry runs migrations, retrying while the database comes up
func RunMigrationsWithRetry(ctx context.Context, config *MigrationConfig, logger *slog.Logger, maxRetries int) error {
	var lastErr error

	for attempt := range max(maxRetries, 1) {
		if attempt > 0 {
			wait := time.Duration(attempt) * 2 * time.Second
			logger.InfoContext(ctx, "retrying migration",
				slog.Int("attempt", attempt+1),
				slog.Duration("wait", wait))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		migrator, err := NewMigrator(config, logger)
		if err != nil {
			lastErr = err
			logger.ErrorContext(ctx, "failed to create migrator",
				slog.String("error", err.Error()),
				slog.Int("attempt", attempt+1))
			continue
		}

		err = migrator.Up(ctx)
		if closeErr := migrator.Close(); closeErr != nil {
			logger.WarnContext(ctx, "failed to close migrator",
				slog.String("error", closeErr.Error()))
		}
		if err == nil {
			return nil
		}

		lastErr = err
		logger.ErrorContext(ctx, "migration failed",
			slog.String("error", err.Error()),
			slog.Int("attempt", attempt+1))
	}

	return fmt.Errorf("migrations failed after %d attempts: %w", maxRetries, lastErr)
}

// DatabaseURL renders the pgx stdlib URL for golang-migrate
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}
