// internal/workers/server.go
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/pharmacy-pos/internal/pkg/logger"
)

// Processors bundles the task handlers served by the worker
type Processors struct {
	StockAlert    *StockAlertProcessor
	RestockImport *RestockImportProcessor
	SalesExport   *SalesExportProcessor
	Cleanup       *CleanupProcessor
}

// NewServeMux routes task types to their processors
func NewServeMux(p Processors, log *slog.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(loggingMiddleware(log))

	if p.StockAlert != nil {
		mux.HandleFunc(TypeSaleCommitted, p.StockAlert.ProcessSaleCommitted)
	}
	if p.RestockImport != nil {
		mux.HandleFunc(TypeRestockImport, p.RestockImport.ProcessRestockImport)
	}
	if p.SalesExport != nil {
		mux.HandleFunc(TypeSalesExport, p.SalesExport.ProcessSalesExport)
	}
	if p.Cleanup != nil {
		mux.HandleFunc(TypeCleanupTempFiles, p.Cleanup.CleanupTempFiles)
	}
	return mux
}

func loggingMiddleware(log *slog.Logger) asynq.MiddlewareFunc {
	log = log.With(slog.String("component", "worker"))
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
			if id, ok := asynq.GetTaskID(ctx); ok {
				ctx = logger.WithValue(ctx, logger.ContextKeyTaskID, id)
			}
			ctx = logger.WithValue(ctx, logger.ContextKeyTaskType, t.Type())

			start := time.Now()
			err := next.ProcessTask(ctx, t)
			attrs := []any{slog.Duration("duration_ms", time.Since(start))}
			if err != nil {
				log.ErrorContext(ctx, "task failed", append(attrs, logger.Err(err))...)
				return err
			}
			log.InfoContext(ctx, "task processed", attrs...)
			return nil
		})
	}
}

type taskScheduler interface {
	Register(cronspec string, task *asynq.Task, opts ...asynq.Option) (string, error)
}

// ScheduleConfig lists the periodic tasks
type ScheduleConfig struct {
	ArchiveSchedule string
	CleanupInterval time.Duration
}

// RegisterSchedules registers the periodic tasks and returns their entry ids
func RegisterSchedules(s taskScheduler, cfg ScheduleConfig) ([]string, error) {
	var ids []string
	if cfg.ArchiveSchedule != "" {
		id, err := s.Register(cfg.ArchiveSchedule, asynq.NewTask(TypeSalesExport, nil), asynq.Queue(QueueLow))
		if err != nil {
			return nil, fmt.Errorf("failed to schedule sales archive: %w", err)
		}
		ids = append(ids, id)
	}
	if cfg.CleanupInterval > 0 {
		spec := "@every " + cfg.CleanupInterval.String()
		id, err := s.Register(spec, asynq.NewTask(TypeCleanupTempFiles, nil), asynq.Queue(QueueLow))
		if err != nil {
			return nil, fmt.Errorf("failed to schedule temp file cleanup: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// RetryDelay backs off exponentially from one second up to ten minutes
func RetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	const maxDelay = 10 * time.Minute
	if n >= 10 {
		return maxDelay
	}
	return min(time.Second<<uint(n), maxDelay)
}

// AsynqLogger adapts slog for asynq
type AsynqLogger struct {
	logger *slog.Logger
}

// NewAsynqLogger creates an asynq logger writing to logger
func NewAsynqLogger(logger *slog.Logger) *AsynqLogger {
	return &AsynqLogger{logger: logger.With(slog.String("component", "asynq"))}
}

func (l *AsynqLogger) Debug(args ...interface{}) { l.logger.Debug(fmt.Sprint(args...)) }
func (l *AsynqLogger) Info(args ...interface{})  { l.logger.Info(fmt.Sprint(args...)) }
func (l *AsynqLogger) Warn(args ...interface{})  { l.logger.Warn(fmt.Sprint(args...)) }
func (l *AsynqLogger) Error(args ...interface{}) { l.logger.Error(fmt.Sprint(args...)) }

func (l *AsynqLogger) Fatal(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
	os.Exit(1)
}
