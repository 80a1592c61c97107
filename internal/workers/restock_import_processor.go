// internal/workers/restock_import_processor.go
package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/ledongthuc/pdf"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/internal/core/ports"
)

// Supported restock file types
const (
	FileTypeXLSX = "xlsx"
	FileTypePDF  = "pdf"
)

// RestockImportResult is stored as the task result
type RestockImportResult struct {
	JobID          string   `json:"job_id"`
	LinesRead      int      `json:"lines_read"`
	LinesApplied   int      `json:"lines_applied"`
	UnitsAdded     int      `json:"units_added"`
	Errors         []string `json:"errors,omitempty"`
	ProcessingTime string   `json:"processing_time"`
}

// RestockImportProcessor applies supplier deliveries to stock
type RestockImportProcessor struct {
	inventory ports.InventoryService
	tempDir   string
	logger    *slog.Logger
}

// NewRestockImportProcessor creates a new restock import processor. Files
// below tempDir are removed once processed.
func NewRestockImportProcessor(inventory ports.InventoryService, tempDir string, logger *slog.Logger) *RestockImportProcessor {
	return &RestockImportProcessor{
		inventory: inventory,
		tempDir:   tempDir,
		logger:    logger.With(slog.String("processor", "restock_import")),
	}
}

// ProcessRestockImport handles TypeRestockImport tasks. Each line is applied
// as its own restock so one bad line does not block the delivery.
func (p *RestockImportProcessor) ProcessRestockImport(ctx context.Context, t *asynq.Task) error {
	start := time.Now()

	var job ports.RestockImportJob
	if err := json.Unmarshal(t.Payload(), &job); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	p.logger.InfoContext(ctx, "processing restock file",
		slog.String("job_id", job.JobID),
		slog.String("file_type", job.FileType),
		slog.String("operator_id", job.OperatorID))

	lines, problems, err := p.readLines(ctx, job)
	if err != nil {
		return fmt.Errorf("failed to read restock file: %w", err)
	}
	if len(lines) == 0 {
		p.removeFile(ctx, job.FilePath)
		return fmt.Errorf("no restock lines found in %s: %w", filepath.Base(job.FilePath), asynq.SkipRetry)
	}

	result := RestockImportResult{JobID: job.JobID, LinesRead: len(lines), Errors: problems}
	var storageErr error
	for _, line := range lines {
		if _, err := p.inventory.Restock(ctx, line.ItemID, line.Quantity); err != nil {
			if errors.Is(err, domain.ErrStorageUnavailable) {
				storageErr = err
				break
			}
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", line.Source, err))
			continue
		}
		result.LinesApplied++
		result.UnitsAdded += line.Quantity
	}
	result.ProcessingTime = time.Since(start).String()

	if err := writeResult(t, result); err != nil {
		p.logger.WarnContext(ctx, "failed to store import result",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()))
	}

	if storageErr != nil {
		if result.LinesApplied == 0 {
			return fmt.Errorf("restock import could not start: %w", storageErr)
		}
		// applied lines are committed, a retry would add them twice
		return fmt.Errorf("restock import stopped after %d lines: %w: %w", result.LinesApplied, storageErr, asynq.SkipRetry)
	}

	p.removeFile(ctx, job.FilePath)

	p.logger.InfoContext(ctx, "restock import completed",
		slog.String("job_id", job.JobID),
		slog.Int("lines_applied", result.LinesApplied),
		slog.Int("units_added", result.UnitsAdded),
		slog.Int("errors", len(result.Errors)))

	return nil
}

func (p *RestockImportProcessor) readLines(ctx context.Context, job ports.RestockImportJob) ([]RestockLine, []string, error) {
	switch strings.ToLower(job.FileType) {
	case FileTypeXLSX:
		return ReadRestockSheet(job.FilePath)
	case FileTypePDF:
		text, err := p.extractPDFText(ctx, job.FilePath)
		if err != nil {
			return nil, nil, err
		}
		lines, problems := ParseDeliveryNote(text)
		return lines, problems, nil
	default:
		return nil, nil, fmt.Errorf("unsupported file type %q: %w", job.FileType, asynq.SkipRetry)
	}
}

func (p *RestockImportProcessor) extractPDFText(ctx context.Context, path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var text []string
	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		plain, err := page.GetPlainText(nil)
		if err != nil {
			p.logger.WarnContext(ctx, "failed to extract text from page",
				slog.Int("page", pageNum),
				slog.String("error", err.Error()))
			continue
		}
		text = append(text, strings.Split(plain, "\n")...)
	}
	return text, nil
}

func (p *RestockImportProcessor) removeFile(ctx context.Context, path string) {
	if p.tempDir == "" || !strings.HasPrefix(filepath.Clean(path), filepath.Clean(p.tempDir)+string(filepath.Separator)) {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		p.logger.WarnContext(ctx, "failed to remove processed file",
			slog.String("file", path),
			slog.String("error", err.Error()))
	}
}

var (
	noteHeaderRe = regexp.MustCompile(`(?i)item\s*(id|no|#).*(qty|quantity)`)
	noteFooterRe = regexp.MustCompile(`(?i)^(total|subtotal|received by|signature)`)
	noteLineRe   = regexp.MustCompile(`^#?(\d+)\s+(.*?)\s+(\d[\d,]*)\s*(?:units?|pcs|x)?$`)
	spacesRe     = regexp.MustCompile(`\s+`)
)

// ParseDeliveryNote extracts restock lines from the text of a supplier
// delivery note. Lines read "<item id> <name> <quantity>" between the column
// header and the totals footer; without a header every line is considered.
func ParseDeliveryNote(text []string) ([]RestockLine, []string) {
	start := 0
	for i, line := range text {
		if noteHeaderRe.MatchString(line) {
			start = i + 1
			break
		}
	}

	var (
		lines    []RestockLine
		problems []string
	)
	for i := start; i < len(text); i++ {
		line := strings.TrimSpace(spacesRe.ReplaceAllString(text[i], " "))
		if line == "" {
			continue
		}
		if noteFooterRe.MatchString(line) {
			break
		}

		m := noteLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		parsed, err := parseRestockFields(fmt.Sprintf("line %d", i+1), m[1], m[2], m[3])
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		lines = append(lines, parsed)
	}
	return lines, problems
}

const uploadPrefix = "restock_"

// UploadFileName names a stored restock upload for jobID
func UploadFileName(jobID, fileType string) string {
	return uploadPrefix + jobID + "." + strings.ToLower(fileType)
}

// IsUploadFile reports whether name was produced by UploadFileName
func IsUploadFile(name string) bool {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	return strings.HasPrefix(name, uploadPrefix) && (ext == FileTypeXLSX || ext == FileTypePDF)
}
