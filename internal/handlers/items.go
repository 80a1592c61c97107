// internal/handlers/items.go
package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/internal/core/ports"
)

// ItemHandler handles item records and stock adjustments
type ItemHandler struct {
	service           ports.InventoryService
	reports           ports.ReportService
	lowStockThreshold int
	logger            *slog.Logger
}

// NewItemHandler creates a new item handler
func NewItemHandler(service ports.InventoryService, reports ports.ReportService, lowStockThreshold int, logger *slog.Logger) *ItemHandler {
	if lowStockThreshold <= 0 {
		lowStockThreshold = domain.DefaultLowStockThreshold
	}
	return &ItemHandler{
		service:           service,
		reports:           reports,
		lowStockThreshold: lowStockThreshold,
		logger:            logger.With(slog.String("handler", "items")),
	}
}

// ItemRequest is the body of item create and update requests
type ItemRequest struct {
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	QuantityOnHand int             `json:"quantity_on_hand"`
	Manufacturer   string          `json:"manufacturer,omitempty"`
	ExpiryDate     string          `json:"expiry_date,omitempty"`
}

// Validate checks fields the domain cannot check after conversion
func (req *ItemRequest) Validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return badRequest("name is required")
	}
	if req.ExpiryDate != "" {
		if _, err := time.Parse(time.DateOnly, req.ExpiryDate); err != nil {
			return badRequest("expiry_date must be YYYY-MM-DD")
		}
	}
	return nil
}

// ToDomain converts the request to an item
func (req *ItemRequest) ToDomain() *domain.Item {
	item := &domain.Item{
		Name:           req.Name,
		Description:    req.Description,
		UnitPrice:      req.UnitPrice,
		QuantityOnHand: req.QuantityOnHand,
		Manufacturer:   req.Manufacturer,
	}
	if req.ExpiryDate != "" {
		if t, err := time.Parse(time.DateOnly, req.ExpiryDate); err == nil {
			item.ExpiryDate = &t
		}
	}
	return item
}

// RestockRequest is the body of POST /api/v1/items/{id}/restock
type RestockRequest struct {
	Quantity int `json:"quantity"`
}

// ListItems handles GET /api/v1/items
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := queryInt(r, "page", 1)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	pageSize, err := queryInt(r, "page_size", 50)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	filter := ports.ItemFilter{
		Search:      q.Get("search"),
		InStockOnly: q.Get("in_stock") == "true",
		SortBy:      q.Get("sort_by"),
		SortOrder:   q.Get("sort_order"),
		Page:        page,
		PageSize:    pageSize,
	}

	result, err := h.service.ListItems(r.Context(), filter)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// CreateItem handles POST /api/v1/items
func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	item := req.ToDomain()
	if err := h.service.CreateItem(ctx, item); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(ctx, "item created",
		slog.Int64("item_id", item.ID),
		slog.String("name", item.Name))

	w.Header().Set("Location", "/api/v1/items/"+formatID(item.ID))
	respondJSON(w, http.StatusCreated, item)
}

// GetItem handles GET /api/v1/items/{id}
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// UpdateItem handles PUT /api/v1/items/{id}
func (h *ItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req ItemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	item := req.ToDomain()
	if err := h.service.UpdateItem(ctx, id, item); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// DeleteItem handles DELETE /api/v1/items/{id}
func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if err := h.service.DeleteItem(ctx, id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(ctx, "item deleted", slog.Int64("item_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// SaleableItems handles GET /api/v1/items/saleable
func (h *ItemHandler) SaleableItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.SaleableItems(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if items == nil {
		items = []domain.Item{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

// LowStockItems handles GET /api/v1/items/low-stock
func (h *ItemHandler) LowStockItems(w http.ResponseWriter, r *http.Request) {
	threshold, err := queryInt(r, "threshold", h.lowStockThreshold)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	items, err := h.reports.LowStockItems(r.Context(), threshold, limit)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	if items == nil {
		items = []domain.Item{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"items":     items,
		"count":     len(items),
		"threshold": threshold,
	})
}

// GetStock handles GET /api/v1/items/{id}/stock
func (h *ItemHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	stock, err := h.service.GetStock(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, stock)
}

// Restock handles POST /api/v1/items/{id}/restock
func (h *ItemHandler) Restock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req RestockRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	remaining, err := h.service.Restock(ctx, id, req.Quantity)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(ctx, "item restocked",
		slog.Int64("item_id", id),
		slog.Int("added", req.Quantity),
		slog.Int("quantity_on_hand", remaining))

	respondJSON(w, http.StatusOK, map[string]any{
		"item_id":          id,
		"added":            req.Quantity,
		"quantity_on_hand": remaining,
	})
}
