// internal/core/domain/sale.go
package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// LineRequest is one requested line of a candidate sale. The price is never
// accepted from the caller.
type LineRequest struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}

// MaxLineQuantity bounds the units of one item in a single sale
const MaxLineQuantity = 1_000_000

// SaleRequest is a candidate sale submitted by an operator
type SaleRequest struct {
	CustomerPhone  string        `json:"customer_phone"`
	OperatorID     string        `json:"operator_id"`
	Lines          []LineRequest `json:"lines"`
	IdempotencyKey string        `json:"idempotency_key,omitempty"`
}

// Validate checks the request shape before any storage is touched
func (r *SaleRequest) Validate() error {
	if len(r.Lines) == 0 {
		return ErrEmptySale
	}
	perItem := make(map[int64]int, len(r.Lines))
	for i, line := range r.Lines {
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: line %d has quantity %d", ErrInvalidQuantity, i+1, line.Quantity)
		}
		if line.ItemID <= 0 {
			return fmt.Errorf("%w: line %d has no item", ErrValidation, i+1)
		}
		// each operand is bounded before adding, so the sum cannot overflow
		if line.Quantity > MaxLineQuantity || perItem[line.ItemID] > MaxLineQuantity-line.Quantity {
			return fmt.Errorf("%w: item %d exceeds %d units", ErrInvalidQuantity, line.ItemID, MaxLineQuantity)
		}
		perItem[line.ItemID] += line.Quantity
	}
	r.CustomerPhone = NormalizePhone(r.CustomerPhone)
	if r.CustomerPhone == "" {
		return fmt.Errorf("%w: customer_phone is required", ErrValidation)
	}
	r.OperatorID = strings.TrimSpace(r.OperatorID)
	if r.OperatorID == "" {
		return fmt.Errorf("%w: operator_id is required", ErrValidation)
	}
	return nil
}

// Demand sums the requested quantity per item
func (r *SaleRequest) Demand() map[int64]int {
	demand := make(map[int64]int, len(r.Lines))
	for _, line := range r.Lines {
		demand[line.ItemID] += line.Quantity
	}
	return demand
}

// ItemIDs returns the distinct item ids of the request in ascending order
func (r *SaleRequest) ItemIDs() []int64 {
	ids := make([]int64, 0, len(r.Lines))
	for _, line := range r.Lines {
		ids = append(ids, line.ItemID)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// SaleLine is a priced line of a sale. ItemName and Manufacturer are read-side
// details joined from the item record.
type SaleLine struct {
	LineNo       int             `json:"line_no"`
	ItemID       int64           `json:"item_id"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	ItemName     string          `json:"item_name,omitempty"`
	Manufacturer string          `json:"manufacturer,omitempty"`
}

// LineTotal returns unit price times quantity
func (l SaleLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ComputeTotal returns the exact sum of the line totals at currency precision
func ComputeTotal(lines []SaleLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.LineTotal())
	}
	return total.Round(CurrencyPlaces)
}

// SaleDraft is a fully priced sale that has not been persisted yet
type SaleDraft struct {
	CustomerPhone string
	OperatorID    string
	Lines         []SaleLine
}

// Validate checks the draft lines
func (d *SaleDraft) Validate() error {
	if len(d.Lines) == 0 {
		return ErrEmptySale
	}
	for i, line := range d.Lines {
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: line %d has quantity %d", ErrInvalidQuantity, i+1, line.Quantity)
		}
		if line.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: line %d has a negative price", ErrValidation, i+1)
		}
	}
	if NormalizePhone(d.CustomerPhone) == "" {
		return fmt.Errorf("%w: customer_phone is required", ErrValidation)
	}
	return nil
}

// Total returns the exact total of the draft
func (d *SaleDraft) Total() decimal.Decimal {
	return ComputeTotal(d.Lines)
}

// Sale is an immutable, committed sale
type Sale struct {
	ID            int64           `json:"sale_id"`
	CustomerPhone string          `json:"customer_phone"`
	CustomerName  string          `json:"customer_name,omitempty"`
	OperatorID    string          `json:"operator_id"`
	CreatedAt     time.Time       `json:"created_at"`
	Total         decimal.Decimal `json:"total_amount"`
	Lines         []SaleLine      `json:"lines"`
}

// Summary returns the list view of the sale
func (s *Sale) Summary() SaleSummary {
	return SaleSummary{
		ID:            s.ID,
		CustomerPhone: s.CustomerPhone,
		CustomerName:  s.CustomerName,
		OperatorID:    s.OperatorID,
		CreatedAt:     s.CreatedAt,
		Total:         s.Total,
		LineCount:     len(s.Lines),
	}
}

// SaleSummary is the list view of a sale
type SaleSummary struct {
	ID            int64           `json:"sale_id"`
	CustomerPhone string          `json:"customer_phone"`
	CustomerName  string          `json:"customer_name,omitempty"`
	OperatorID    string          `json:"operator_id"`
	CreatedAt     time.Time       `json:"created_at"`
	Total         decimal.Decimal `json:"total_amount"`
	LineCount     int             `json:"line_count"`
}

// Invoice bundles a sale with the contact details of its customer
type Invoice struct {
	Sale     *Sale     `json:"sale"`
	Customer *Customer `json:"customer"`
}

// StockChange records the stock left after a committed deduction
type StockChange struct {
	ItemID    int64  `json:"item_id"`
	Name      string `json:"name"`
	Deducted  int    `json:"deducted"`
	Remaining int    `json:"remaining"`
}

// SaleCommitted is emitted after a sale transaction commits
type SaleCommitted struct {
	SaleID        int64           `json:"sale_id"`
	CustomerPhone string          `json:"customer_phone"`
	OperatorID    string          `json:"operator_id"`
	Total         decimal.Decimal `json:"total_amount"`
	CommittedAt   time.Time       `json:"committed_at"`
	StockChanges  []StockChange   `json:"stock_changes"`
}
