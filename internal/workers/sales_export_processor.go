// internal/workers/sales_export_processor.go
package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/pharmacy-pos/internal/core/ports"
)

// SalesExportResult is stored as the task result
type SalesExportResult struct {
	JobID       string    `json:"job_id"`
	Key         string    `json:"key"`
	Location    string    `json:"location"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
	Sales       int       `json:"sales"`
}

// SalesExportProcessor archives sales workbooks to object storage
type SalesExportProcessor struct {
	sales         ports.SaleService
	storage       ports.ObjectStorage
	presignExpiry time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

// NewSalesExportProcessor creates a new sales export processor
func NewSalesExportProcessor(sales ports.SaleService, storage ports.ObjectStorage, presignExpiry time.Duration, logger *slog.Logger) *SalesExportProcessor {
	if presignExpiry <= 0 {
		presignExpiry = 15 * time.Minute
	}
	return &SalesExportProcessor{
		sales:         sales,
		storage:       storage,
		presignExpiry: presignExpiry,
		now:           time.Now,
		logger:        logger.With(slog.String("processor", "sales_export")),
	}
}

// ProcessSalesExport handles TypeSalesExport tasks. Scheduled runs carry no
// range and archive the previous UTC day.
func (p *SalesExportProcessor) ProcessSalesExport(ctx context.Context, t *asynq.Task) error {
	var job ports.SalesExportJob
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &job); err != nil {
			return fmt.Errorf("failed to unmarshal payload: %w: %w", err, asynq.SkipRetry)
		}
	}

	now := p.now().UTC()
	if job.From == nil && job.To == nil {
		to := now.Truncate(24 * time.Hour)
		from := to.Add(-24 * time.Hour)
		job.From, job.To = &from, &to
	}
	if job.JobID == "" {
		if id, ok := asynq.GetTaskID(ctx); ok {
			job.JobID = id
		} else {
			job.JobID = now.Format("20060102T150405")
		}
	}

	sales, err := p.sales.ListSales(ctx, ports.SaleFilter{From: job.From, To: job.To})
	if err != nil {
		return fmt.Errorf("failed to list sales: %w", err)
	}

	var buf bytes.Buffer
	if err := WriteSalesWorkbook(&buf, sales); err != nil {
		return err
	}

	key := ArchiveKey(job, now)
	location, err := p.storage.Upload(ctx, key, &buf, SalesWorkbookContentType)
	if err != nil {
		return fmt.Errorf("failed to upload sales archive: %w", err)
	}

	url, err := p.storage.PresignedURL(ctx, key, p.presignExpiry)
	if err != nil {
		return fmt.Errorf("failed to sign sales archive: %w", err)
	}

	result := SalesExportResult{
		JobID:       job.JobID,
		Key:         key,
		Location:    location,
		DownloadURL: url,
		ExpiresAt:   now.Add(p.presignExpiry),
		Sales:       len(sales),
	}
	if err := writeResult(t, result); err != nil {
		p.logger.WarnContext(ctx, "failed to store export result",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()))
	}

	p.logger.InfoContext(ctx, "sales archive uploaded",
		slog.String("job_id", job.JobID),
		slog.String("key", key),
		slog.Int("sales", len(sales)))
	return nil
}

// ArchiveKey names the archive object for job
func ArchiveKey(job ports.SalesExportJob, now time.Time) string {
	day := now
	if job.From != nil {
		day = job.From.UTC()
	}
	return fmt.Sprintf("exports/sales/%s/sales_%s_%s.xlsx",
		day.Format("2006/01"), day.Format("20060102"), job.JobID)
}
