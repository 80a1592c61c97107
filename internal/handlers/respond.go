// internal/handlers/respond.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/internal/pkg/logger"
)

const maxJSONBody = 1 << 20

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
	ItemID    int64  `json:"item_id,omitempty"`
	Requested int    `json:"requested,omitempty"`
	Available *int   `json:"available,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// respondError maps domain errors onto HTTP statuses. Unexpected errors are
// logged and reported without detail.
func respondError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	ctx := r.Context()
	resp := ErrorResponse{
		Error:     err.Error(),
		RequestID: logger.StringFromContext(ctx, logger.ContextKeyRequestID),
	}

	var status int
	var stockErr *domain.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		status, resp.Code = http.StatusConflict, "insufficient_stock"
		resp.ItemID = stockErr.ItemID
		resp.Requested = stockErr.Requested
		available := stockErr.Available
		resp.Available = &available
	case errors.Is(err, domain.ErrEmptySale):
		status, resp.Code = http.StatusBadRequest, "empty_sale"
	case errors.Is(err, domain.ErrInvalidQuantity):
		status, resp.Code = http.StatusBadRequest, "invalid_quantity"
	case errors.Is(err, domain.ErrValidation):
		status, resp.Code = http.StatusBadRequest, "validation_failed"
	case errors.Is(err, domain.ErrNotFound):
		status, resp.Code = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrReferentialConflict):
		status, resp.Code = http.StatusConflict, "referential_conflict"
	case errors.Is(err, domain.ErrAlreadyExists):
		status, resp.Code = http.StatusConflict, "already_exists"
	case errors.Is(err, domain.ErrDuplicateRequest):
		status, resp.Code = http.StatusConflict, "duplicate_request"
	case errors.Is(err, domain.ErrStorageUnavailable):
		status, resp.Code = http.StatusServiceUnavailable, "storage_unavailable"
		resp.Error = "storage temporarily unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		status, resp.Code = http.StatusGatewayTimeout, "timeout"
		resp.Error = "request timed out"
	default:
		status, resp.Code = http.StatusInternalServerError, "internal_error"
		resp.Error = "internal server error"
	}

	if status >= 500 {
		log.ErrorContext(ctx, "request failed",
			slog.Int("status", status),
			logger.Err(err))
	} else {
		log.DebugContext(ctx, "request rejected",
			slog.Int("status", status),
			logger.Err(err))
	}

	respondJSON(w, status, resp)
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrValidation, fmt.Sprintf(format, args...))
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return id, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return v, nil
}

// queryTime accepts RFC 3339 timestamps or plain dates
func queryTime(r *http.Request, name string) (*time.Time, error) {
	return parseDateParam(name, r.URL.Query().Get(name))
}

func parseDateParam(name, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, badRequest("invalid %s %q", name, raw)
}
