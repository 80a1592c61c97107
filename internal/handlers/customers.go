// internal/handlers/customers.go
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/internal/core/ports"
)

// CustomerHandler handles customer records and purchase history
type CustomerHandler struct {
	service ports.CustomerService
	reports ports.ReportService
	logger  *slog.Logger
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(service ports.CustomerService, reports ports.ReportService, logger *slog.Logger) *CustomerHandler {
	return &CustomerHandler{
		service: service,
		reports: reports,
		logger:  logger.With(slog.String("handler", "customers")),
	}
}

// CustomerRequest is the body of customer create and update requests
type CustomerRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

// ToDomain converts the request to a customer
func (req *CustomerRequest) ToDomain() *domain.Customer {
	return &domain.Customer{
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
	}
}

// ListCustomers handles GET /api/v1/customers
func (h *CustomerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.service.ListCustomers(r.Context(), ports.CustomerFilter{
		Search:   r.URL.Query().Get("search"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// CreateCustomer handles POST /api/v1/customers
func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	customer := req.ToDomain()
	if err := h.service.CreateCustomer(ctx, customer); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(ctx, "customer created", slog.Int64("customer_id", customer.ID))

	w.Header().Set("Location", "/api/v1/customers/"+formatID(customer.ID))
	respondJSON(w, http.StatusCreated, customer)
}

// GetCustomer handles GET /api/v1/customers/{id}
func (h *CustomerHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	customer, err := h.service.GetCustomer(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, customer)
}

// UpdateCustomer handles PUT /api/v1/customers/{id}
func (h *CustomerHandler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	var req CustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	customer := req.ToDomain()
	if err := h.service.UpdateCustomer(r.Context(), id, customer); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, customer)
}

// DeleteCustomer handles DELETE /api/v1/customers/{id}. Customers referenced
// by a sale cannot be deleted.
func (h *CustomerHandler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	if err := h.service.DeleteCustomer(ctx, id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	h.logger.InfoContext(ctx, "customer deleted", slog.Int64("customer_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// PurchaseHistory handles GET /api/v1/customers/{id}/history
func (h *CustomerHandler) PurchaseHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	history, err := h.reports.PurchaseHistory(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}
