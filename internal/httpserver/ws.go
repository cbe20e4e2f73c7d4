package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"shibau-trading/internal/marketdata"
	"shibau-trading/internal/metrics"
)

// WSHandler streams market data to browser clients. No authentication:
// market data is public. Each client gets an immediate snapshot on
// connect, then the periodic broadcasts from the publisher.
type WSHandler struct {
	bus      *marketdata.Bus
	adapter  *marketdata.Adapter
	upgrader websocket.Upgrader
}

func NewWSHandler(bus *marketdata.Bus, adapter *marketdata.Adapter, origin string) *WSHandler {
	return &WSHandler{
		bus:     bus,
		adapter: adapter,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return allowOrigin(r, origin) },
		},
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	metrics.WSClients.Inc()
	defer metrics.WSClients.Dec()

	sub := h.bus.Subscribe()
	defer h.bus.Unsubscribe(sub)

	// Initial snapshot so the client is not blank until the next tick.
	if snapshot, err := h.adapter.Snapshot(r.Context()); err == nil {
		if err := conn.WriteJSON(marketdata.Event{Type: "market_data", Data: snapshot}); err != nil {
			return
		}
	}

	// Read pump: we ignore client messages, reading only to detect close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case evt, ok := <-sub:
			if !ok {
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				slog.Debug("ws write failed", "error", err)
				return
			}
		case <-done:
			return
		}
	}
}
