// internal/handlers/jobs_test.go
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/internal/core/ports"
	"github.com/ammerola/pharmacy-pos/internal/workers"
)

func multipartUpload(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/restock", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Operator-ID", "op-3")
	return req
}

func TestImportHandler_ImportRestock(t *testing.T) {
	xlsxContent := append([]byte("PK\x03\x04"), bytes.Repeat([]byte{0}, 32)...)
	pdfContent := []byte("%PDF-1.4\n%fake delivery note")

	tests := []struct {
		name           string
		filename       string
		content        []byte
		expectFileType string
		expectedStatus int
	}{
		{name: "queues_xlsx", filename: "delivery.xlsx", content: xlsxContent, expectFileType: workers.FileTypeXLSX, expectedStatus: http.StatusAccepted},
		{name: "queues_pdf", filename: "Delivery Note.PDF", content: pdfContent, expectFileType: workers.FileTypePDF, expectedStatus: http.StatusAccepted},
		{name: "missing_file", expectedStatus: http.StatusBadRequest},
		{name: "unsupported_extension", filename: "stock.csv", content: []byte("id,qty"), expectedStatus: http.StatusBadRequest},
		{name: "content_mismatch", filename: "fake.pdf", content: xlsxContent, expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)

			var queued ports.RestockImportJob
			if tt.expectedStatus == http.StatusAccepted {
				api.jobs.EXPECT().
					EnqueueRestockImport(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, job ports.RestockImportJob) (*ports.JobInfo, error) {
						queued = job
						return &ports.JobInfo{ID: job.JobID, Type: workers.TypeRestockImport, Queue: workers.QueueDefault, State: "pending"}, nil
					})
			}

			w := api.do(multipartUpload(t, tt.filename, tt.content))
			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())

			if tt.expectedStatus != http.StatusAccepted {
				entries, err := os.ReadDir(api.uploadDir)
				require.NoError(t, err)
				assert.Empty(t, entries)
				return
			}

			assert.Equal(t, tt.expectFileType, queued.FileType)
			assert.Equal(t, "op-3", queued.OperatorID)
			assert.Equal(t, api.uploadDir, filepath.Dir(queued.FilePath))
			assert.True(t, workers.IsUploadFile(filepath.Base(queued.FilePath)))

			saved, err := os.ReadFile(queued.FilePath)
			require.NoError(t, err)
			assert.Equal(t, tt.content, saved)
			assert.Equal(t, "/api/v1/imports/"+queued.JobID, w.Header().Get("Location"))
		})
	}
}

func TestImportHandler_EnqueueFailureRemovesUpload(t *testing.T) {
	api := newTestAPI(t)
	api.jobs.EXPECT().EnqueueRestockImport(gomock.Any(), gomock.Any()).
		Return(nil, domain.StorageUnavailable("enqueue", assert.AnError))

	w := api.do(multipartUpload(t, "note.pdf", []byte("%PDF-1.7")))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	entries, err := os.ReadDir(api.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestImportHandler_GetImport(t *testing.T) {
	api := newTestAPI(t)
	api.jobs.EXPECT().JobStatus(gomock.Any(), "job-1").Return(&ports.JobInfo{
		ID:     "job-1",
		Type:   workers.TypeRestockImport,
		State:  "completed",
		Result: json.RawMessage(`{"lines_applied":3}`),
	}, nil)
	api.jobs.EXPECT().JobStatus(gomock.Any(), "job-2").Return(nil, domain.NewNotFound("job", "job-2"))

	w := api.do(httptest.NewRequest(http.MethodGet, "/api/v1/imports/job-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"lines_applied":3`)

	w = api.do(httptest.NewRequest(http.MethodGet, "/api/v1/imports/job-2", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportHandler_DownloadSales(t *testing.T) {
	api := newTestAPI(t)
	api.sales.EXPECT().ListSales(gomock.Any(), gomock.Any()).Return([]domain.SaleSummary{
		{ID: 1, CustomerPhone: "5550100", CustomerName: "Ana", OperatorID: "op", CreatedAt: time.Now(), Total: decimal.RequireFromString("9.90"), LineCount: 2},
	}, nil)

	w := api.do(httptest.NewRequest(http.MethodGet, "/api/v1/exports/sales.xlsx?from=2026-01-01", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, workers.SalesWorkbookContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment; filename=\"sales_")

	wb, err := xlsx.OpenBinary(w.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, wb.Sheets, 1)
	assert.Equal(t, 2, wb.Sheets[0].MaxRow)
}

func TestExportHandler_ArchiveSales(t *testing.T) {
	t.Run("queues_archive", func(t *testing.T) {
		api := newTestAPI(t)
		api.jobs.EXPECT().
			EnqueueSalesExport(gomock.Any(), gomock.Cond(func(job ports.SalesExportJob) bool {
				return job.From != nil && job.To == nil && job.OperatorID == "op-3" && job.JobID != ""
			})).
			Return(&ports.JobInfo{ID: "exp-1", Type: workers.TypeSalesExport, Queue: workers.QueueLow, State: "pending"}, nil)

		req := jsonRequest(t, http.MethodPost, "/api/v1/exports/sales", map[string]any{"from": "2026-02-01"})
		req.Header.Set("X-Operator-ID", "op-3")
		w := api.do(req)

		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
		assert.Equal(t, "/api/v1/exports/exp-1", w.Header().Get("Location"))
	})

	t.Run("empty_body_defaults_range", func(t *testing.T) {
		api := newTestAPI(t)
		api.jobs.EXPECT().
			EnqueueSalesExport(gomock.Any(), gomock.Cond(func(job ports.SalesExportJob) bool {
				return job.From == nil && job.To == nil
			})).
			Return(&ports.JobInfo{ID: "exp-2"}, nil)

		w := api.do(httptest.NewRequest(http.MethodPost, "/api/v1/exports/sales", nil))
		assert.Equal(t, http.StatusAccepted, w.Code)
	})

	t.Run("inverted_range", func(t *testing.T) {
		api := newTestAPI(t)
		w := api.do(jsonRequest(t, http.MethodPost, "/api/v1/exports/sales", map[string]any{"from": "2026-02-01", "to": "2026-01-01"}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("status_with_download_link", func(t *testing.T) {
		api := newTestAPI(t)
		api.jobs.EXPECT().JobStatus(gomock.Any(), "exp-1").Return(&ports.JobInfo{
			ID:     "exp-1",
			State:  "completed",
			Result: json.RawMessage(`{"download_url":"https://example.test/x"}`),
		}, nil)

		w := api.do(httptest.NewRequest(http.MethodGet, "/api/v1/exports/exp-1", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "download_url")
	})
}
