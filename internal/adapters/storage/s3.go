// internal/adapters/storage/s3.go
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/ammerola/pharmacy-pos/internal/core/ports"
)

// S3Storage stores sales archives in an S3 bucket
type S3Storage struct {
	client   *s3.Client
	uploader *manager.Uploader
	presign  *s3.PresignClient
	bucket   string
	region   string
	logger   *slog.Logger
}

var (
	_ ports.ObjectStorage = (*S3Storage)(nil)
	_ ports.ObjectStorage = (*LocalStorage)(nil)
)

// S3Config holds S3 configuration
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // For MinIO/LocalStack
	UsePathStyle    bool   // For MinIO/LocalStack
}

// NewS3Storage creates a new S3 storage client and makes sure the bucket exists
func NewS3Storage(ctx context.Context, cfg *S3Config, logger *slog.Logger) (*S3Storage, error) {
	awsCfg, err := buildAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.EndpointResolver = s3.EndpointResolverFromURL(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	storage := &S3Storage{
		client:   client,
		uploader: manager.NewUploader(client),
		presign:  s3.NewPresignClient(client),
		bucket:   cfg.Bucket,
		region:   cfg.Region,
		logger:   logger.With(slog.String("storage", "s3")),
	}

	if err := storage.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket: %w", err)
	}

	storage.logger.Info("S3 storage initialized",
		slog.String("bucket", cfg.Bucket),
		slog.String("region", cfg.Region))

	return storage, nil
}

func buildAWSConfig(ctx context.Context, cfg *S3Config) (aws.Config, error) {
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		return config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.Region),
			config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
			),
		)
	}
	return config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
}

func (s *S3Storage) ensureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}
	// us-east-1 rejects an explicit location constraint
	if s.region != "" && s.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}
	if _, createErr := s.client.CreateBucket(ctx, input); createErr != nil {
		return fmt.Errorf("bucket %s does not exist and could not be created: %w", s.bucket, createErr)
	}

	s.logger.Info("created S3 bucket", slog.String("bucket", s.bucket))
	return nil
}

// Upload streams body to key and returns the object location
func (s *S3Storage) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	result, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(detectContentType(key, contentType)),
		Metadata: map[string]string{
			"uploaded-at": time.Now().UTC().Format(time.RFC3339),
			"upload-id":   uuid.New().String(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	s.logger.InfoContext(ctx, "file uploaded",
		slog.String("key", key),
		slog.String("location", result.Location))

	return result.Location, nil
}

// PresignedURL returns a time limited download link for key
func (s *S3Storage) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	request, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiry
	})
	if err != nil {
		return "", fmt.Errorf("failed to create presigned URL: %w", err)
	}
	return request.URL, nil
}

func detectContentType(key, contentType string) string {
	if contentType != "" {
		return contentType
	}
	if byExt := mime.TypeByExtension(filepath.Ext(key)); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}

// LocalStorage writes archives below a directory. It backs development
// setups that run without S3.
type LocalStorage struct {
	basePath string
	logger   *slog.Logger
}

// NewLocalStorage creates a new local storage client
func NewLocalStorage(basePath string, logger *slog.Logger) *LocalStorage {
	return &LocalStorage{
		basePath: basePath,
		logger:   logger.With(slog.String("storage", "local")),
	}
}

// Upload copies body to basePath/key
func (l *LocalStorage) Upload(ctx context.Context, key string, body io.Reader, _ string) (string, error) {
	path, err := l.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	n, err := io.Copy(file, body)
	if err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	l.logger.InfoContext(ctx, "file stored",
		slog.String("key", key),
		slog.Int64("bytes", n))

	return path, nil
}

// PresignedURL returns a file URL; local files do not expire
func (l *LocalStorage) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	path, err := l.resolve(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("failed to stat file: %w", err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String(), nil
}

func (l *LocalStorage) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(l.basePath, clean), nil
}
