// internal/handlers/router.go
package handlers

import (
	"net/http"
)

// APIPrefix is the path prefix of the versioned API
const APIPrefix = "/api/v1"

// Routes groups the handlers served by the API. Routes of a nil handler are
// not registered.
type Routes struct {
	Health    *HealthHandler
	Sales     *SaleHandler
	Items     *ItemHandler
	Customers *CustomerHandler
	Dashboard *DashboardHandler
	Imports   *ImportHandler
	Exports   *ExportHandler
}

// NewRouter registers every route on a new ServeMux
func NewRouter(h Routes) *http.ServeMux {
	mux := http.NewServeMux()
	api := func(method, path string, fn http.HandlerFunc) {
		mux.HandleFunc(method+" "+APIPrefix+path, fn)
	}

	if h.Health != nil {
		mux.HandleFunc("GET /health", h.Health.Health)
		mux.HandleFunc("GET /ready", h.Health.Readiness)
	}

	if h.Sales != nil {
		api("POST", "/sales", h.Sales.SubmitSale)
		api("GET", "/sales", h.Sales.ListSales)
		api("GET", "/sales/{id}", h.Sales.GetSale)
		api("GET", "/sales/{id}/invoice", h.Sales.GetInvoice)
	}

	if h.Items != nil {
		api("GET", "/items", h.Items.ListItems)
		api("POST", "/items", h.Items.CreateItem)
		api("GET", "/items/saleable", h.Items.SaleableItems)
		api("GET", "/items/low-stock", h.Items.LowStockItems)
		api("GET", "/items/{id}", h.Items.GetItem)
		api("PUT", "/items/{id}", h.Items.UpdateItem)
		api("DELETE", "/items/{id}", h.Items.DeleteItem)
		api("GET", "/items/{id}/stock", h.Items.GetStock)
		api("POST", "/items/{id}/restock", h.Items.Restock)
	}

	if h.Customers != nil {
		api("GET", "/customers", h.Customers.ListCustomers)
		api("POST", "/customers", h.Customers.CreateCustomer)
		api("GET", "/customers/{id}", h.Customers.GetCustomer)
		api("PUT", "/customers/{id}", h.Customers.UpdateCustomer)
		api("DELETE", "/customers/{id}", h.Customers.DeleteCustomer)
		api("GET", "/customers/{id}/history", h.Customers.PurchaseHistory)
	}

	if h.Dashboard != nil {
		api("GET", "/dashboard", h.Dashboard.GetDashboard)
	}

	if h.Imports != nil {
		api("POST", "/imports/restock", h.Imports.ImportRestock)
		api("GET", "/imports/{taskId}", h.Imports.GetImport)
	}
	if h.Exports != nil {
		api("GET", "/exports/sales.xlsx", h.Exports.DownloadSales)
		api("POST", "/exports/sales", h.Exports.ArchiveSales)
		api("GET", "/exports/{taskId}", h.Exports.GetExport)
	}

	return mux
}
