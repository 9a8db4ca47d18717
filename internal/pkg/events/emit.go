package events

import (
	"context"
	"log/slog"

	"github.com/cmlabs-hris/shopfloor-backend-go/internal/pkg/metrics"
)

// Emit publishes event after commit. Failures are logged and counted, never returned.
func Emit(ctx context.Context, p Publisher, event Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, event); err != nil {
		metrics.EventPublishFailures.Inc()
		slog.Warn("failed to publish event", "type", event.Type, "shop_id", event.ShopID, "error", err)
	}
}
