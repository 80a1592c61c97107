// internal/handlers/handlers_test.go
package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ammerola/pharmacy-pos/internal/handlers"
	"github.com/ammerola/pharmacy-pos/internal/handlers/middleware"
	"github.com/ammerola/pharmacy-pos/test/helpers"
	"github.com/ammerola/pharmacy-pos/test/mocks"
)

type testAPI struct {
	sales     *mocks.MockSaleService
	inventory *mocks.MockInventoryService
	customers *mocks.MockCustomerService
	reports   *mocks.MockReportService
	jobs      *mocks.MockJobQueue
	uploadDir string
	handler   http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctrl := gomock.NewController(t)
	log := helpers.TestLogger()

	api := &testAPI{
		sales:     mocks.NewMockSaleService(ctrl),
		inventory: mocks.NewMockInventoryService(ctrl),
		customers: mocks.NewMockCustomerService(ctrl),
		reports:   mocks.NewMockReportService(ctrl),
		jobs:      mocks.NewMockJobQueue(ctrl),
		uploadDir: t.TempDir(),
	}

	router := handlers.NewRouter(handlers.Routes{
		Sales:     handlers.NewSaleHandler(api.sales, log),
		Items:     handlers.NewItemHandler(api.inventory, api.reports, 10, log),
		Customers: handlers.NewCustomerHandler(api.customers, api.reports, log),
		Dashboard: handlers.NewDashboardHandler(api.reports, log),
		Imports:   handlers.NewImportHandler(api.jobs, api.uploadDir, handlers.ImportLimits{MaxPDFBytes: 1 << 20, MaxXLSXBytes: 1 << 20}, log),
		Exports:   handlers.NewExportHandler(api.sales, api.jobs, log),
	})
	api.handler = middleware.Chain(router,
		middleware.RequestID("X-Request-ID"),
		middleware.Operator("X-Operator-ID"),
	)
	return api
}

func (a *testAPI) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) handlers.ErrorResponse {
	t.Helper()
	var resp handlers.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}
