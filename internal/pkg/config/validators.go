// internal/pkg/config/validators.go
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/robfig/cron/v3"
)

// ErrMissingRequiredConfig marks a required setting that is unset
var ErrMissingRequiredConfig = errors.New("missing required configuration")

// Validator checks one aspect of the configuration
type Validator interface {
	Validate(cfg *Config) error
}

// BasicValidator performs basic configuration validation
type BasicValidator struct{}

// Validate performs basic validation
func (v *BasicValidator) Validate(cfg *Config) error {
	if err := validateRequiredFields(cfg); err != nil {
		return err
	}

	switch cfg.Storage.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("storage driver must be postgres or memory, got %q", cfg.Storage.Driver)
	}

	if cfg.Database.MaxConnections < cfg.Database.MinConnections {
		return fmt.Errorf("database max_connections must be >= min_connections")
	}
	if cfg.Redis.PoolSize <= 0 {
		return fmt.Errorf("redis pool_size must be positive")
	}
	if cfg.Security.RateLimitRequests <= 0 {
		return fmt.Errorf("rate_limit_requests must be positive")
	}
	if cfg.Sales.LowStockThreshold <= 0 {
		return fmt.Errorf("low_stock_threshold must be positive")
	}
	if cfg.Sales.IdempotencyTTL <= 0 {
		return fmt.Errorf("idempotency_ttl must be positive")
	}
	if cfg.Sales.PendingKeyTTL <= 0 || cfg.Sales.PendingKeyTTL > cfg.Sales.IdempotencyTTL {
		return fmt.Errorf("idempotency_pending_ttl must be positive and not exceed idempotency_ttl")
	}
	if cfg.Sales.ArchiveSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Sales.ArchiveSchedule); err != nil {
			return fmt.Errorf("invalid sales_archive_schedule: %w", err)
		}
	}
	if cfg.Notifications.Enabled && len(cfg.Notifications.To) == 0 {
		return fmt.Errorf("%w: notify_to is required when notifications are enabled", ErrMissingRequiredConfig)
	}
	return nil
}

// ProductionValidator performs strict validation for production environments
type ProductionValidator struct{}

// Validate performs production-specific validation
func (v *ProductionValidator) Validate(cfg *Config) error {
	if cfg.Database.Password == "" || cfg.Database.Password == "pharmacy_dev" {
		return fmt.Errorf("%w: database password", ErrMissingRequiredConfig)
	}
	if cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("database SSL must be enabled in production")
	}
	if cfg.Storage.Driver == "memory" {
		return fmt.Errorf("memory storage cannot be used in production")
	}
	if !cfg.Security.SecureHeaders {
		return fmt.Errorf("secure headers must be enabled in production")
	}
	for _, origin := range cfg.Security.AllowedOrigins {
		if origin == "*" {
			return fmt.Errorf("wildcard origin (*) not allowed in production")
		}
	}
	return nil
}

// validateRequiredFields checks fields tagged required:"true"
func validateRequiredFields(cfg interface{}) error {
	v := reflect.ValueOf(cfg)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	return validateStruct(v, "")
}

func validateStruct(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := range v.NumField() {
		field := v.Field(i)
		fieldType := t.Field(i)
		fieldName := fieldType.Name
		if prefix != "" {
			fieldName = prefix + "." + fieldName
		}

		if fieldType.Tag.Get("required") == "true" && isZeroValue(field) {
			return fmt.Errorf("%w: %s", ErrMissingRequiredConfig, fieldName)
		}

		if field.Kind() == reflect.Struct {
			if err := validateStruct(field, fieldName); err != nil {
				return err
			}
		}
	}
	return nil
}

func isZeroValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
