// internal/pkg/config/secrets.go
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// Secret keys overlaid onto the loaded configuration
const (
	SecretDatabasePassword = "DB_PASSWORD"
	SecretRedisPassword    = "REDIS_PASSWORD"
	SecretSMTPPassword     = "SMTP_PASSWORD"
	SecretAWSAccessKeyID   = "AWS_ACCESS_KEY_ID"
	SecretAWSSecretKey     = "AWS_SECRET_ACCESS_KEY"
)

// SecretsProvider resolves named secrets
type SecretsProvider interface {
	GetSecrets(ctx context.Context, keys []string) (map[string]string, error)
}

// secretValueGetter is the part of the Secrets Manager client used here
type secretValueGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecretsManager reads a JSON key/value secret from AWS Secrets Manager
type AWSSecretsManager struct {
	client     secretValueGetter
	secretName string
	cache      map[string]string
	cacheMu    sync.RWMutex
	lastFetch  time.Time
	ttl        time.Duration
	logger     *slog.Logger
}

// NewAWSSecretsManager creates a new AWS Secrets Manager client
func NewAWSSecretsManager(ctx context.Context, region, secretName string, logger *slog.Logger) (*AWSSecretsManager, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newAWSSecretsManager(secretsmanager.NewFromConfig(cfg), secretName, logger), nil
}

func newAWSSecretsManager(client secretValueGetter, secretName string, logger *slog.Logger) *AWSSecretsManager {
	return &AWSSecretsManager{
		client:     client,
		secretName: secretName,
		cache:      make(map[string]string),
		ttl:        5 * time.Minute,
		logger:     logger,
	}
}

// GetSecrets returns the requested keys that exist in the secret
func (sm *AWSSecretsManager) GetSecrets(ctx context.Context, keys []string) (map[string]string, error) {
	sm.cacheMu.RLock()
	fresh := time.Since(sm.lastFetch) < sm.ttl && len(sm.cache) > 0
	data := sm.cache
	sm.cacheMu.RUnlock()

	if !fresh {
		sm.logger.InfoContext(ctx, "fetching secrets from AWS Secrets Manager",
			slog.String("secret_name", sm.secretName))

		result, err := sm.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
			SecretId:     aws.String(sm.secretName),
			VersionStage: aws.String("AWSCURRENT"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get secret value: %w", err)
		}
		if result.SecretString == nil {
			return nil, fmt.Errorf("secret %s has no string value", sm.secretName)
		}

		data = make(map[string]string)
		if err := json.Unmarshal([]byte(*result.SecretString), &data); err != nil {
			return nil, fmt.Errorf("failed to parse secret JSON: %w", err)
		}

		sm.cacheMu.Lock()
		sm.cache = data
		sm.lastFetch = time.Now()
		sm.cacheMu.Unlock()
	}

	filtered := make(map[string]string, len(keys))
	for _, key := range keys {
		if val, ok := data[key]; ok {
			filtered[key] = val
		}
	}
	return filtered, nil
}

// EnvSecretsManager resolves secrets from environment variables
type EnvSecretsManager struct{}

// NewEnvSecretsManager creates a new environment-based secrets manager
func NewEnvSecretsManager() *EnvSecretsManager {
	return &EnvSecretsManager{}
}

// GetSecrets retrieves the set variables among keys
func (em *EnvSecretsManager) GetSecrets(ctx context.Context, keys []string) (map[string]string, error) {
	secrets := make(map[string]string)
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			secrets[key] = val
		}
	}
	return secrets, nil
}

// ApplySecrets overwrites credentials in cfg with the values the provider knows
func ApplySecrets(ctx context.Context, cfg *Config, provider SecretsProvider) error {
	targets := map[string]*string{
		SecretDatabasePassword: &cfg.Database.Password,
		SecretRedisPassword:    &cfg.Redis.Password,
		SecretSMTPPassword:     &cfg.Notifications.SMTPPassword,
		SecretAWSAccessKeyID:   &cfg.AWS.AccessKeyID,
		SecretAWSSecretKey:     &cfg.AWS.SecretAccessKey,
	}

	keys := make([]string, 0, len(targets))
	for key := range targets {
		keys = append(keys, key)
	}

	secrets, err := provider.GetSecrets(ctx, keys)
	if err != nil {
		return err
	}
	for key, val := range secrets {
		if dst, ok := targets[key]; ok && val != "" {
			*dst = val
		}
	}
	// asynq shares the Redis credentials
	cfg.Asynq.RedisPassword = cfg.Redis.Password
	return nil
}
