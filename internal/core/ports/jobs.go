// internal/core/ports/jobs.go
package ports

import (
	"context"
	"encoding/json"
	"io"
	"time"
)

// RestockImportJob describes an uploaded supplier file waiting to be applied
type RestockImportJob struct {
	JobID      string `json:"job_id"`
	FilePath   string `json:"file_path"`
	FileType   string `json:"file_type"`
	OperatorID string `json:"operator_id"`
}

// SalesExportJob describes a sales archive to build and upload
type SalesExportJob struct {
	JobID      string     `json:"job_id"`
	From       *time.Time `json:"from,omitempty"`
	To         *time.Time `json:"to,omitempty"`
	OperatorID string     `json:"operator_id,omitempty"`
}

// JobInfo reports the state of a queued background job
type JobInfo struct {
	ID          string          `json:"job_id"`
	Type        string          `json:"type"`
	Queue       string          `json:"queue"`
	State       string          `json:"state"`
	Retried     int             `json:"retried"`
	LastError   string          `json:"last_error,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// JobQueue enqueues background jobs and reports their progress
type JobQueue interface {
	EnqueueRestockImport(ctx context.Context, job RestockImportJob) (*JobInfo, error)
	EnqueueSalesExport(ctx context.Context, job SalesExportJob) (*JobInfo, error)
	JobStatus(ctx context.Context, jobID string) (*JobInfo, error)
}

// ObjectStorage stores generated archives
type ObjectStorage interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Notifier delivers operator alerts
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}
