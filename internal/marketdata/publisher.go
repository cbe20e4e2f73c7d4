package marketdata

import (
	"context"
	"log/slog"
	"time"

	"shibau-trading/internal/metrics"
	"shibau-trading/internal/types"
)

// StartPublisher refreshes prices and broadcasts the full market data
// snapshot to every WebSocket subscriber on a fixed interval. It runs
// until the context is cancelled.
func StartPublisher(ctx context.Context, adapter *Adapter, bus *Bus, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		slog.Info("market data publisher started",
			"mode", adapter.Mode(), "interval", interval)

		for {
			select {
			case <-ctx.Done():
				slog.Info("market data publisher stopped")
				return
			case <-ticker.C:
				if adapter.Status() == types.SourceConnected {
					metrics.PriceSourceConnected.Set(1)
				} else {
					metrics.PriceSourceConnected.Set(0)
				}
				if err := adapter.Refresh(ctx); err != nil {
					slog.Warn("market data refresh failed", "error", err)
					continue
				}
				snapshot, err := adapter.Snapshot(ctx)
				if err != nil {
					slog.Warn("market data snapshot failed", "error", err)
					continue
				}
				bus.Publish(Event{Type: "market_data", Data: snapshot})
			}
		}
	}()
}
