// internal/handlers/exports.go
package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/internal/core/ports"
	"github.com/ammerola/pharmacy-pos/internal/handlers/middleware"
	"github.com/ammerola/pharmacy-pos/internal/workers"
)

// ExportHandler serves sales workbooks and queues archive jobs
type ExportHandler struct {
	sales  ports.SaleService
	jobs   ports.JobQueue
	logger *slog.Logger
	now    func() time.Time
}

// NewExportHandler creates a new export handler. jobs may be nil when no
// queue is configured; archive requests then fail with 503.
func NewExportHandler(sales ports.SaleService, jobs ports.JobQueue, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		sales:  sales,
		jobs:   jobs,
		logger: logger.With(slog.String("handler", "exports")),
		now:    time.Now,
	}
}

// ExportSalesRequest is the optional body of POST /api/v1/exports/sales
type ExportSalesRequest struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// DownloadSales handles GET /api/v1/exports/sales.xlsx
func (h *ExportHandler) DownloadSales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	from, err := queryTime(r, "from")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	sales, err := h.sales.ListSales(ctx, ports.SaleFilter{From: from, To: to})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var buf bytes.Buffer
	if err := workers.WriteSalesWorkbook(&buf, sales); err != nil {
		respondError(w, r, h.logger, fmt.Errorf("failed to build workbook: %w", err))
		return
	}

	filename := fmt.Sprintf("sales_%s.xlsx", h.now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", workers.SalesWorkbookContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(ctx, "failed to write workbook", slog.String("error", err.Error()))
		return
	}

	h.logger.InfoContext(ctx, "sales workbook exported",
		slog.Int("sales", len(sales)),
		slog.String("filename", filename))
}

// ArchiveSales handles POST /api/v1/exports/sales. The workbook is built by
// a worker and uploaded to object storage.
func (h *ExportHandler) ArchiveSales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ExportSalesRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, r, h.logger, err)
			return
		}
	}

	from, err := parseDateParam("from", req.From)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	to, err := parseDateParam("to", req.To)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if from != nil && to != nil && to.Before(*from) {
		respondError(w, r, h.logger, badRequest("to must not be before from"))
		return
	}

	if h.jobs == nil {
		respondJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error: "background jobs are not configured",
			Code:  "storage_unavailable",
		})
		return
	}

	info, err := h.jobs.EnqueueSalesExport(ctx, ports.SalesExportJob{
		JobID:      uuid.New().String(),
		From:       from,
		To:         to,
		OperatorID: middleware.OperatorID(ctx),
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(ctx, "sales archive queued", slog.String("job_id", info.ID))

	w.Header().Set("Location", "/api/v1/exports/"+info.ID)
	respondJSON(w, http.StatusAccepted, info)
}

// GetExport handles GET /api/v1/exports/{taskId}. A completed job carries the
// download link in its result.
func (h *ExportHandler) GetExport(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(r.PathValue("taskId"))
	if taskID == "" {
		respondError(w, r, h.logger, badRequest("task id is required"))
		return
	}
	if h.jobs == nil {
		respondError(w, r, h.logger, domain.NewNotFound("job", taskID))
		return
	}

	info, err := h.jobs.JobStatus(r.Context(), taskID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}
