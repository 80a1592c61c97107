// internal/workers/tasks.go
package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/internal/core/ports"
)

const (
	TypeSaleCommitted    = "sale:committed"
	TypeRestockImport    = "restock:import"
	TypeSalesExport      = "sales:export"
	TypeCleanupTempFiles = "cleanup:temp_files"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// Queues lists the queues searched when looking up a job, in priority order
var Queues = []string{QueueCritical, QueueDefault, QueueLow}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type taskInspector interface {
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
}

// TaskClient publishes sale events and background jobs onto asynq queues
type TaskClient struct {
	client    enqueuer
	inspector taskInspector
	maxRetry  int
	retention time.Duration
	logger    *slog.Logger
}

var (
	_ ports.SaleEventPublisher = (*TaskClient)(nil)
	_ ports.JobQueue           = (*TaskClient)(nil)
)

// TaskClientOptions tunes enqueued tasks
type TaskClientOptions struct {
	MaxRetry  int
	Retention time.Duration
}

// NewTaskClient creates a task client over an asynq client and inspector
func NewTaskClient(client *asynq.Client, inspector *asynq.Inspector, opts TaskClientOptions, logger *slog.Logger) *TaskClient {
	return newTaskClient(client, inspector, opts, logger)
}

func newTaskClient(client enqueuer, inspector taskInspector, opts TaskClientOptions, logger *slog.Logger) *TaskClient {
	if opts.MaxRetry <= 0 {
		opts.MaxRetry = 3
	}
	if opts.Retention <= 0 {
		opts.Retention = 24 * time.Hour
	}
	return &TaskClient{
		client:    client,
		inspector: inspector,
		maxRetry:  opts.MaxRetry,
		retention: opts.Retention,
		logger:    logger.With(slog.String("component", "task_client")),
	}
}

// PublishSaleCommitted queues the post-commit processing of a sale. The task
// id is derived from the sale id so a sale is processed at most once.
func (c *TaskClient) PublishSaleCommitted(ctx context.Context, event domain.SaleCommitted) error {
	_, err := c.enqueue(ctx, TypeSaleCommitted, event,
		asynq.Queue(QueueCritical),
		asynq.TaskID(fmt.Sprintf("sale-%d", event.SaleID)),
		asynq.MaxRetry(c.maxRetry),
		asynq.Retention(time.Hour))
	if errors.Is(err, domain.ErrDuplicateRequest) {
		return nil
	}
	return err
}

// EnqueueRestockImport queues an uploaded supplier file for processing
func (c *TaskClient) EnqueueRestockImport(ctx context.Context, job ports.RestockImportJob) (*ports.JobInfo, error) {
	return c.enqueue(ctx, TypeRestockImport, job,
		asynq.Queue(QueueDefault),
		asynq.TaskID(job.JobID),
		asynq.MaxRetry(c.maxRetry),
		asynq.Timeout(10*time.Minute),
		asynq.Retention(c.retention))
}

// EnqueueSalesExport queues a sales archive build
func (c *TaskClient) EnqueueSalesExport(ctx context.Context, job ports.SalesExportJob) (*ports.JobInfo, error) {
	return c.enqueue(ctx, TypeSalesExport, job,
		asynq.Queue(QueueLow),
		asynq.TaskID(job.JobID),
		asynq.MaxRetry(c.maxRetry),
		asynq.Timeout(10*time.Minute),
		asynq.Retention(c.retention))
}

// JobStatus looks the job up in every queue
func (c *TaskClient) JobStatus(ctx context.Context, jobID string) (*ports.JobInfo, error) {
	for _, queue := range Queues {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := c.inspector.GetTaskInfo(queue, jobID)
		if err == nil {
			return toJobInfo(info), nil
		}
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			continue
		}
		return nil, domain.StorageUnavailable("job status", err)
	}
	return nil, domain.NewNotFound("job", jobID)
}

func (c *TaskClient) enqueue(ctx context.Context, taskType string, payload any, opts ...asynq.Option) (*ports.JobInfo, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", taskType, err)
	}

	info, err := c.client.EnqueueContext(ctx, asynq.NewTask(taskType, b), opts...)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return nil, fmt.Errorf("%w: %s task already queued", domain.ErrDuplicateRequest, taskType)
		}
		return nil, domain.StorageUnavailable("enqueue "+taskType, err)
	}

	c.logger.InfoContext(ctx, "task enqueued",
		slog.String("task_id", info.ID),
		slog.String("task_type", taskType),
		slog.String("queue", info.Queue))

	return toJobInfo(info), nil
}

func toJobInfo(info *asynq.TaskInfo) *ports.JobInfo {
	job := &ports.JobInfo{
		ID:        info.ID,
		Type:      info.Type,
		Queue:     info.Queue,
		State:     info.State.String(),
		Retried:   info.Retried,
		LastError: info.LastErr,
	}
	if !info.CompletedAt.IsZero() {
		completed := info.CompletedAt
		job.CompletedAt = &completed
	}
	if len(info.Result) > 0 && json.Valid(info.Result) {
		job.Result = json.RawMessage(info.Result)
	}
	return job
}

// writeResult stores a JSON result on the task when it runs under a server.
// Tasks built directly in tests carry no result writer.
func writeResult(t *asynq.Task, result any) error {
	w := t.ResultWriter()
	if w == nil {
		return nil
	}
	b, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal task result: %w", err)
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("failed to write task result: %w", err)
	}
	return nil
}
