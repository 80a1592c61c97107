package handlers

import (
	"log/slog"
	"net/http"

	"github.com/ammerola/pharmacy-pos/internal/core/ports"
)

// DashboardHandler handles dashboard operations
type DashboardHandler struct {
	reports ports.ReportService
	logger  *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(reports ports.ReportService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		reports: reports,
		logger:  logger.With(slog.String("handler", "dashboard")),
	}
}

// GetDashboard handles GET /api/v1/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.reports.Dashboard(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	respondJSON(w, http.StatusOK, dashboard)
}
