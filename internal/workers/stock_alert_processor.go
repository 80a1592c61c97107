// internal/workers/stock_alert_processor.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/internal/core/ports"
)

// StockAlertProcessor handles committed sales and alerts operators when a
// sale drops an item below the low-stock threshold
type StockAlertProcessor struct {
	notifier  ports.Notifier
	threshold int
	logger    *slog.Logger
}

// NewStockAlertProcessor creates a new stock alert processor
func NewStockAlertProcessor(notifier ports.Notifier, threshold int, logger *slog.Logger) *StockAlertProcessor {
	if threshold <= 0 {
		threshold = domain.DefaultLowStockThreshold
	}
	return &StockAlertProcessor{
		notifier:  notifier,
		threshold: threshold,
		logger:    logger.With(slog.String("processor", "stock_alert")),
	}
}

// ProcessSaleCommitted handles TypeSaleCommitted tasks
func (p *StockAlertProcessor) ProcessSaleCommitted(ctx context.Context, t *asynq.Task) error {
	var event domain.SaleCommitted
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	crossed := CrossedThreshold(event.StockChanges, p.threshold)
	if len(crossed) == 0 {
		p.logger.DebugContext(ctx, "sale left stock above threshold",
			slog.Int64("sale_id", event.SaleID))
		return nil
	}

	subject := fmt.Sprintf("Low stock after sale #%d", event.SaleID)
	if err := p.notifier.Notify(ctx, subject, alertBody(event, crossed, p.threshold)); err != nil {
		return fmt.Errorf("failed to send low stock alert: %w", err)
	}

	p.logger.InfoContext(ctx, "low stock alert sent",
		slog.Int64("sale_id", event.SaleID),
		slog.Int("items", len(crossed)))
	return nil
}

// CrossedThreshold returns the changes whose deduction moved the item from at
// or above threshold to below it
func CrossedThreshold(changes []domain.StockChange, threshold int) []domain.StockChange {
	var crossed []domain.StockChange
	for _, c := range changes {
		if c.Remaining < threshold && c.Remaining+c.Deducted >= threshold {
			crossed = append(crossed, c)
		}
	}
	return crossed
}

func alertBody(event domain.SaleCommitted, crossed []domain.StockChange, threshold int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sale #%d by operator %s left these items below %d units:\n\n",
		event.SaleID, event.OperatorID, threshold)
	for _, c := range crossed {
		fmt.Fprintf(&b, "  item %d  %-40s %d left\n", c.ItemID, c.Name, c.Remaining)
	}
	return b.String()
}
