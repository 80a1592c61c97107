//go:build e2e
// +build e2e

package e2e_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/ammerola/pharmacy-pos/internal/adapters/db"
	redis_a "github.com/ammerola/pharmacy-pos/internal/adapters/redis_adapter"
	"github.com/ammerola/pharmacy-pos/internal/core/services"
	"github.com/ammerola/pharmacy-pos/internal/handlers"
	"github.com/ammerola/pharmacy-pos/internal/handlers/middleware"
	"github.com/ammerola/pharmacy-pos/test/helpers"
)

type SaleE2ESuite struct {
	suite.Suite
	server    *httptest.Server
	client    *http.Client
	baseURL   string
	testDB    *helpers.TestDB
	testRedis *helpers.TestRedis
}

func TestSaleE2E(t *testing.T) {
	suite.Run(t, new(SaleE2ESuite))
}

func (s *SaleE2ESuite) SetupSuite() {
	s.testDB = helpers.SetupTestDB(s.T())
	s.testRedis = helpers.SetupTestRedis(s.T())

	s.server = s.startTestServer()
	s.client = &http.Client{Timeout: 10 * time.Second}
	s.baseURL = s.server.URL + handlers.APIPrefix
}

func (s *SaleE2ESuite) TearDownSuite() {
	s.server.Close()
}

func (s *SaleE2ESuite) SetupTest() {
	helpers.TruncateAllTables(s.T(), s.testDB.PgxPool)
	s.Require().NoError(s.testRedis.Client.FlushAll(s.T().Context()).Err())
}

func (s *SaleE2ESuite) startTestServer() *httptest.Server {
	cfg := helpers.LoadTestConfig()
	log := helpers.TestLogger()
	database := s.testDB.Database

	cache := redis_a.NewCache(s.testRedis.Client, time.Minute, log)
	ledger := db.NewSaleLedger(database, log)
	customers := db.NewCustomerRepository(database, log)

	sales := services.NewSaleCoordinator(ledger, ledger, customers, services.SaleDeps{
		Idempotency: redis_a.NewIdempotencyStore(s.testRedis.Client, log),
		Cache:       cache,
	}, services.SaleOptions{}, log)
	inventory := services.NewInventoryService(db.NewInventoryStore(database, log), cache, log)
	customerService := services.NewCustomerService(customers, cache, log)
	reports := services.NewReportService(db.NewReportStore(database, log), cache, services.ReportOptions{
		LowStockThreshold: cfg.Sales.LowStockThreshold,
		DashboardTTL:      time.Second,
	}, log)

	router := handlers.NewRouter(handlers.Routes{
		Health:    handlers.NewHealthHandler(database, s.testRedis.Client, nil, cfg, log),
		Sales:     handlers.NewSaleHandler(sales, log),
		Items:     handlers.NewItemHandler(inventory, reports, cfg.Sales.LowStockThreshold, log),
		Customers: handlers.NewCustomerHandler(customerService, reports, log),
		Dashboard: handlers.NewDashboardHandler(reports, log),
		Exports:   handlers.NewExportHandler(sales, nil, log),
	})

	return httptest.NewServer(middleware.Chain(router,
		middleware.RequestID(cfg.Security.RequestIDHeader),
		middleware.Operator(cfg.Security.OperatorHeader),
		middleware.Recovery(log),
	))
}

func (s *SaleE2ESuite) TestCompleteSaleWorkflow() {
	customer := s.createCustomer("Ana Lopez", "5550100")
	paracetamol := s.createItem("Paracetamol 500mg", "3.49", 20)
	syrup := s.createItem("Cough Syrup", "7.40", 12)

	// Submit a sale; prices come from the stored items
	resp := s.request(http.MethodPost, "/sales", map[string]any{
		"customer_phone": "5550100",
		"lines": []map[string]any{
			{"item_id": paracetamol, "quantity": 2},
			{"item_id": syrup, "quantity": 3},
		},
	}, map[string]string{"X-Operator-ID": "op-1"})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var sale map[string]any
	s.decode(resp, &sale)
	saleID := int64(sale["sale_id"].(float64))
	s.Equal("29.18", sale["total_amount"])
	s.Equal("op-1", sale["operator_id"])
	s.Len(sale["lines"], 2)

	// Stock was deducted
	s.Equal(18, s.stockOf(paracetamol))
	s.Equal(9, s.stockOf(syrup))

	// Invoice carries the customer
	resp = s.request(http.MethodGet, fmt.Sprintf("/sales/%d/invoice", saleID), nil, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var invoice map[string]any
	s.decode(resp, &invoice)
	s.Equal("Ana Lopez", invoice["customer"].(map[string]any)["name"])

	// Purchase history lists the sale
	resp = s.request(http.MethodGet, fmt.Sprintf("/customers/%d/history", customer), nil, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var history map[string]any
	s.decode(resp, &history)
	s.Equal(float64(1), history["sale_count"])

	// Streaming listing by phone
	resp = s.request(http.MethodGet, "/sales?phone=5550100", nil, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var listed []map[string]any
	s.decode(resp, &listed)
	s.Require().Len(listed, 1)
	s.Equal(float64(saleID), listed[0]["sale_id"])

	// Dashboard counts
	resp = s.request(http.MethodGet, "/dashboard", nil, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var dashboard map[string]any
	s.decode(resp, &dashboard)
	s.Equal(float64(2), dashboard["item_count"])
	s.Equal(float64(1), dashboard["customer_count"])
	s.Len(dashboard["recent_sales"], 1)

	// Items referenced by a sale cannot be deleted
	resp = s.request(http.MethodDelete, fmt.Sprintf("/items/%d", paracetamol), nil, nil)
	s.Equal(http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Workbook download
	resp = s.request(http.MethodGet, "/exports/sales.xlsx", nil, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header.Get("Content-Type"))
	resp.Body.Close()
}

func (s *SaleE2ESuite) TestInsufficientStockLeavesNoTrace() {
	s.createCustomer("Ben Okafor", "5550101")
	vitamin := s.createItem("Vitamin D3", "9.95", 10)
	bandage := s.createItem("Bandages", "2.99", 1)

	resp := s.request(http.MethodPost, "/sales", map[string]any{
		"customer_phone": "5550101",
		"lines": []map[string]any{
			{"item_id": vitamin, "quantity": 4},
			{"item_id": bandage, "quantity": 2},
		},
	}, map[string]string{"X-Operator-ID": "op-1"})
	s.Require().Equal(http.StatusConflict, resp.StatusCode)

	var body map[string]any
	s.decode(resp, &body)
	s.Equal(float64(bandage), body["item_id"])
	s.Equal(float64(2), body["requested"])
	s.Equal(float64(1), body["available"])

	s.Equal(10, s.stockOf(vitamin))
	s.Equal(1, s.stockOf(bandage))

	resp = s.request(http.MethodGet, "/sales", nil, nil)
	var page map[string]any
	s.decode(resp, &page)
	s.Equal(float64(0), page["count"])
}

func (s *SaleE2ESuite) TestIdempotentResubmission() {
	s.createCustomer("Chen Wei", "5550102")
	item := s.createItem("Ibuprofen 400mg", "4.99", 10)

	submit := func() map[string]any {
		resp := s.request(http.MethodPost, "/sales", map[string]any{
			"customer_phone": "5550102",
			"lines":          []map[string]any{{"item_id": item, "quantity": 1}},
		}, map[string]string{"X-Operator-ID": "op-1", handlers.IdempotencyKeyHeader: "till-7-0001"})
		s.Require().Equal(http.StatusCreated, resp.StatusCode)
		var sale map[string]any
		s.decode(resp, &sale)
		return sale
	}

	first := submit()
	second := submit()
	s.Equal(first["sale_id"], second["sale_id"])
	s.Equal(9, s.stockOf(item))
}

func (s *SaleE2ESuite) TestConcurrentSalesNeverOversell() {
	s.createCustomer("Walk-in", "0000000")
	item := s.createItem("Saline Spray", "4.25", 5)

	body, err := json.Marshal(map[string]any{
		"customer_phone": "0000000",
		"lines":          []map[string]any{{"item_id": item, "quantity": 1}},
	})
	s.Require().NoError(err)

	const buyers = 12
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = map[int]int{}
	)
	for range buyers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status := 0
			req, err := http.NewRequest(http.MethodPost, s.baseURL+"/sales", bytes.NewReader(body))
			if err == nil {
				req.Header.Set("Content-Type", "application/json")
				req.Header.Set("X-Operator-ID", "op-2")
				if resp, err := s.client.Do(req); err == nil {
					status = resp.StatusCode
					resp.Body.Close()
				}
			}
			mu.Lock()
			results[status]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	s.Equal(5, results[http.StatusCreated])
	s.Equal(buyers-5, results[http.StatusConflict])
	s.Equal(0, s.stockOf(item))
}

func (s *SaleE2ESuite) TestHealthAndReadiness() {
	resp, err := s.client.Get(s.server.URL + "/health")
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = s.client.Get(s.server.URL + "/ready")
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func (s *SaleE2ESuite) createCustomer(name, phone string) int64 {
	resp := s.request(http.MethodPost, "/customers", map[string]any{"name": name, "phone": phone}, nil)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var customer map[string]any
	s.decode(resp, &customer)
	return int64(customer["customer_id"].(float64))
}

func (s *SaleE2ESuite) createItem(name, price string, qty int) int64 {
	resp := s.request(http.MethodPost, "/items", map[string]any{
		"name":             name,
		"unit_price":       price,
		"quantity_on_hand": qty,
		"manufacturer":     "E2E Labs",
		"expiry_date":      time.Now().AddDate(1, 0, 0).Format(time.DateOnly),
	}, nil)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var item map[string]any
	s.decode(resp, &item)
	return int64(item["item_id"].(float64))
}

func (s *SaleE2ESuite) stockOf(itemID int64) int {
	resp := s.request(http.MethodGet, fmt.Sprintf("/items/%d/stock", itemID), nil, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var level map[string]any
	s.decode(resp, &level)
	return int(level["quantity_on_hand"].(float64))
}

func (s *SaleE2ESuite) request(method, path string, body any, headers map[string]string) *http.Response {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, s.baseURL+path, reader)
	s.Require().NoError(err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *SaleE2ESuite) decode(resp *http.Response, v any) {
	defer resp.Body.Close()
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(v))
}
