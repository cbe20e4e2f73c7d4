package marketdata

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"shibau-trading/internal/httputil"
	"shibau-trading/internal/store"
)

type Handler struct {
	adapter *Adapter
	sim     *Simulator
}

func NewHandler(adapter *Adapter, sim *Simulator) *Handler {
	return &Handler{adapter: adapter, sim: sim}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	markets, err := h.adapter.Snapshot(r.Context())
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "internal error"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, markets)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	symbol := normalizeSymbol(chi.URLParam(r, "symbol"))
	md, err := h.adapter.store.GetMarketData(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "Market not found"})
			return
		}
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "internal error"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, md)
}

// Chart serves generated OHLC history. Interval and limit come from
// query params, defaulting to 100 hourly bars.
func (h *Handler) Chart(w http.ResponseWriter, r *http.Request) {
	symbol := normalizeSymbol(chi.URLParam(r, "symbol"))

	interval := time.Hour
	if raw := r.URL.Query().Get("interval"); raw != "" {
		d, err := parseInterval(raw)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid interval"})
			return
		}
		interval = d
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}

	candles, err := h.sim.Candles(CandleParams{
		Symbol:   symbol,
		Interval: interval,
		Limit:    limit,
	})
	if err != nil {
		if errors.Is(err, ErrUnknownSymbol) {
			httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "Market not found"})
			return
		}
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, candles)
}

// Status exposes the price source connectivity.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"source": h.adapter.Mode(),
		"status": h.adapter.Status(),
	})
}

var intervals = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
}

func parseInterval(raw string) (time.Duration, error) {
	if d, ok := intervals[strings.ToLower(raw)]; ok {
		return d, nil
	}
	return 0, errors.New("unsupported interval")
}

// normalizeSymbol accepts both "BTC-USD" (path friendly) and "BTC/USD".
func normalizeSymbol(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "-", "/")
	if !strings.Contains(s, "/") {
		s += "/USD"
	}
	return s
}
