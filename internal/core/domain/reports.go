// internal/core/domain/reports.go
package domain

import "time"

// Dashboard holds the aggregated counts shown on the landing page
type Dashboard struct {
	ItemCount         int64         `json:"item_count"`
	CustomerCount     int64         `json:"customer_count"`
	RecentSales       []SaleSummary `json:"recent_sales"`
	LowStock          []Item        `json:"low_stock"`
	LowStockThreshold int           `json:"low_stock_threshold"`
	GeneratedAt       time.Time     `json:"generated_at"`
}

// PurchaseHistory is the full sale history of one customer
type PurchaseHistory struct {
	Customer  *Customer     `json:"customer"`
	SaleCount int           `json:"sale_count"`
	Sales     []SaleSummary `json:"sales"`
}
