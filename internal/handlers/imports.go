// internal/handlers/imports.go
package handlers

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ammerola/pharmacy-pos/internal/core/ports"
	"github.com/ammerola/pharmacy-pos/internal/handlers/middleware"
	"github.com/ammerola/pharmacy-pos/internal/pkg/logger"
	"github.com/ammerola/pharmacy-pos/internal/workers"
)

var (
	pdfMagic  = []byte("%PDF-")
	xlsxMagic = []byte("PK\x03\x04")
)

// ImportLimits bounds uploaded supplier files per type
type ImportLimits struct {
	MaxPDFBytes  int64
	MaxXLSXBytes int64
}

func (l ImportLimits) largest() int64 {
	return max(l.MaxPDFBytes, l.MaxXLSXBytes)
}

// ImportHandler accepts restock files and reports the progress of their jobs
type ImportHandler struct {
	jobs      ports.JobQueue
	uploadDir string
	limits    ImportLimits
	logger    *slog.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(jobs ports.JobQueue, uploadDir string, limits ImportLimits, logger *slog.Logger) *ImportHandler {
	if limits.MaxPDFBytes <= 0 {
		limits.MaxPDFBytes = 50 << 20
	}
	if limits.MaxXLSXBytes <= 0 {
		limits.MaxXLSXBytes = 100 << 20
	}
	return &ImportHandler{
		jobs:      jobs,
		uploadDir: uploadDir,
		limits:    limits,
		logger:    logger.With(slog.String("handler", "imports")),
	}
}

// ImportRestock handles POST /api/v1/imports/restock. The multipart field
// "file" holds an xlsx sheet or a PDF delivery note.
func (h *ImportHandler) ImportRestock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, h.limits.largest()+(1<<20))
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, h.logger, badRequest("file exceeds %d bytes", h.limits.largest()))
			return
		}
		respondError(w, r, h.logger, badRequest("file is required"))
		return
	}
	defer file.Close()

	fileType, err := h.detectFileType(file, header.Filename, header.Size)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0o750); err != nil {
		respondError(w, r, h.logger, fmt.Errorf("failed to prepare upload dir: %w", err))
		return
	}

	jobID := uuid.New().String()
	path := filepath.Join(h.uploadDir, workers.UploadFileName(jobID, fileType))
	if err := saveUpload(path, file); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	info, err := h.jobs.EnqueueRestockImport(ctx, ports.RestockImportJob{
		JobID:      jobID,
		FilePath:   path,
		FileType:   fileType,
		OperatorID: middleware.OperatorID(ctx),
	})
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			h.logger.WarnContext(ctx, "failed to remove orphaned upload",
				slog.String("path", path),
				logger.Err(rmErr))
		}
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(ctx, "restock import queued",
		slog.String("job_id", info.ID),
		slog.String("file_type", fileType),
		slog.String("original_name", header.Filename),
		slog.Int64("size", header.Size))

	w.Header().Set("Location", "/api/v1/imports/"+info.ID)
	respondJSON(w, http.StatusAccepted, info)
}

// GetImport handles GET /api/v1/imports/{taskId}
func (h *ImportHandler) GetImport(w http.ResponseWriter, r *http.Request) {
	taskID := strings.TrimSpace(r.PathValue("taskId"))
	if taskID == "" {
		respondError(w, r, h.logger, badRequest("task id is required"))
		return
	}

	info, err := h.jobs.JobStatus(r.Context(), taskID)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

// detectFileType checks the extension against the file signature and the
// per-type size limit. The reader is rewound afterwards.
func (h *ImportHandler) detectFileType(file io.ReadSeeker, name string, size int64) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")

	var magic []byte
	var limit int64
	switch ext {
	case workers.FileTypeXLSX:
		magic, limit = xlsxMagic, h.limits.MaxXLSXBytes
	case workers.FileTypePDF:
		magic, limit = pdfMagic, h.limits.MaxPDFBytes
	default:
		return "", badRequest("unsupported file type %q, expected .xlsx or .pdf", ext)
	}
	if size > limit {
		return "", badRequest("%s file exceeds %d bytes", ext, limit)
	}

	head := make([]byte, len(magic))
	if _, err := io.ReadFull(file, head); err != nil || !bytes.Equal(head, magic) {
		return "", badRequest("file content does not match .%s", ext)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind upload: %w", err)
	}
	return ext, nil
}

func saveUpload(path string, src io.Reader) (err error) {
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return fmt.Errorf("failed to create upload file: %w", err)
	}
	defer func() {
		if cerr := dst.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close upload file: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	buf := bufio.NewWriter(dst)
	if _, err = io.Copy(buf, src); err != nil {
		return fmt.Errorf("failed to save upload: %w", err)
	}
	if err = buf.Flush(); err != nil {
		return fmt.Errorf("failed to save upload: %w", err)
	}
	return nil
}
