// internal/workers/cleanup_processor.go
package workers

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"
)

// CleanupProcessor removes stale upload files
type CleanupProcessor struct {
	tempDir string
	maxAge  time.Duration
	logger  *slog.Logger
}

// NewCleanupProcessor creates a new cleanup processor
func NewCleanupProcessor(tempDir string, maxAge time.Duration, logger *slog.Logger) *CleanupProcessor {
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &CleanupProcessor{
		tempDir: tempDir,
		maxAge:  maxAge,
		logger:  logger.With(slog.String("processor", "cleanup")),
	}
}

// CleanupTempFiles removes restock uploads older than maxAge. Only files
// written by the import handler are considered.
func (p *CleanupProcessor) CleanupTempFiles(ctx context.Context, _ *asynq.Task) error {
	p.logger.InfoContext(ctx, "cleaning up temp files")

	cutoff := time.Now().Add(-p.maxAge)
	var deletedCount int
	err := filepath.WalkDir(p.tempDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !IsUploadFile(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			p.logger.WarnContext(ctx, "failed to delete temp file",
				slog.String("file", path),
				slog.String("error", err.Error()))
			return nil
		}
		deletedCount++
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk temp directory: %w", err)
	}

	p.logger.InfoContext(ctx, "temp files cleaned up",
		slog.Int("files_deleted", deletedCount))
	return nil
}
