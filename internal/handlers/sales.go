// internal/handlers/sales.go
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/internal/core/ports"
	"github.com/ammerola/pharmacy-pos/internal/handlers/middleware"
	"github.com/ammerola/pharmacy-pos/internal/pkg/logger"
)

// IdempotencyKeyHeader carries the client key that deduplicates sale submissions
const IdempotencyKeyHeader = "Idempotency-Key"

// SaleHandler handles sale submission and sale reads
type SaleHandler struct {
	service ports.SaleService
	logger  *slog.Logger
}

// NewSaleHandler creates a new sale handler
func NewSaleHandler(service ports.SaleService, logger *slog.Logger) *SaleHandler {
	return &SaleHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "sales")),
	}
}

// SaleLineRequest is one line of a submitted sale. Quantity is decoded as a
// raw number so fractional values are reported as invalid quantities.
type SaleLineRequest struct {
	ItemID   int64       `json:"item_id"`
	Quantity json.Number `json:"quantity"`
}

// SubmitSaleRequest is the body of POST /api/v1/sales. Prices are resolved
// from the store, so lines carry only item and quantity. The operator comes
// from the verified X-Operator-ID header, never from the body.
type SubmitSaleRequest struct {
	CustomerPhone  string            `json:"customer_phone"`
	Lines          []SaleLineRequest `json:"lines"`
	IdempotencyKey string            `json:"idempotency_key,omitempty"`
}

// ToDomain builds the sale request. The idempotency header takes precedence
// over the body field.
func (req *SubmitSaleRequest) ToDomain(r *http.Request) (domain.SaleRequest, error) {
	sale := domain.SaleRequest{
		CustomerPhone:  req.CustomerPhone,
		OperatorID:     middleware.OperatorID(r.Context()),
		Lines:          make([]domain.LineRequest, 0, len(req.Lines)),
		IdempotencyKey: strings.TrimSpace(req.IdempotencyKey),
	}
	for i, line := range req.Lines {
		qty, err := parseQuantity(line.Quantity)
		if err != nil {
			return domain.SaleRequest{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		sale.Lines = append(sale.Lines, domain.LineRequest{ItemID: line.ItemID, Quantity: qty})
	}
	if key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader)); key != "" {
		sale.IdempotencyKey = key
	}
	return sale, nil
}

// parseQuantity accepts whole numbers only. A missing quantity reads as zero
// and is rejected by domain validation.
func parseQuantity(n json.Number) (int, error) {
	if n == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return 0, badRequest("quantity %q is not a number", n)
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("%w: quantity %s is not a whole number", domain.ErrInvalidQuantity, n)
	}
	if d.LessThan(decimal.NewFromInt(math.MinInt32)) || d.GreaterThan(decimal.NewFromInt(math.MaxInt32)) {
		return 0, fmt.Errorf("%w: quantity %s is out of range", domain.ErrInvalidQuantity, n)
	}
	return int(d.IntPart()), nil
}

// SubmitSale handles POST /api/v1/sales
func (h *SaleHandler) SubmitSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SubmitSaleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	saleReq, err := req.ToDomain(r)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	sale, err := h.service.SubmitSale(ctx, saleReq)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Location", "/api/v1/sales/"+formatID(sale.ID))
	respondJSON(w, http.StatusCreated, sale)
}

// GetSale handles GET /api/v1/sales/{id}
func (h *SaleHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	sale, err := h.service.GetSale(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, sale)
}

// GetInvoice handles GET /api/v1/sales/{id}/invoice
func (h *SaleHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	invoice, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, invoice)
}

// ListSales handles GET /api/v1/sales. With ?phone= the customer's sales are
// streamed most recent first; otherwise from, to and limit filter all sales.
func (h *SaleHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	if phone := r.URL.Query().Get("phone"); phone != "" {
		h.streamCustomerSales(w, r, phone)
		return
	}

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
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	sales, err := h.service.ListSales(r.Context(), ports.SaleFilter{From: from, To: to, Limit: limit})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if sales == nil {
		sales = []domain.SaleSummary{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"sales": sales, "count": len(sales)})
}

// streamCustomerSales writes a JSON array while rows are read. Once the
// array has started a failure can only end the response early.
func (h *SaleHandler) streamCustomerSales(w http.ResponseWriter, r *http.Request, phone string) {
	ctx := r.Context()
	enc := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)

	started := false
	count := 0
	for summary, err := range h.service.ListSalesByCustomer(ctx, phone) {
		if err != nil {
			if !started {
				respondError(w, r, h.logger, err)
				return
			}
			h.logger.ErrorContext(ctx, "sales stream interrupted",
				slog.Int("written", count),
				logger.Err(err))
			return
		}

		if !started {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("["))
			started = true
		} else {
			_, _ = w.Write([]byte(","))
		}
		if err := enc.Encode(summary); err != nil {
			h.logger.WarnContext(ctx, "client went away during sales stream", logger.Err(err))
			return
		}
		count++
		if flusher != nil && count%100 == 0 {
			flusher.Flush()
		}
	}

	if !started {
		respondJSON(w, http.StatusOK, []domain.SaleSummary{})
		return
	}
	_, _ = w.Write([]byte("]"))
}
