package orders

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"shibau-trading/internal/httputil"
	"shibau-trading/internal/model"
	"shibau-trading/internal/store"
	"shibau-trading/internal/types"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type createOrderRequest struct {
	UserID       string `json:"userId"`
	Symbol       string `json:"symbol"`
	Side         string `json:"side"`
	Type         string `json:"type"`
	Size         string `json:"size"`
	Price        string `json:"price"`
	TriggerPrice string `json:"triggerPrice"`
	Leverage     string `json:"leverage"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	side, err := types.ParseOrderSide(strings.ToUpper(strings.TrimSpace(req.Side)))
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	orderType, err := types.ParseOrderType(strings.ToUpper(strings.TrimSpace(req.Type)))
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	size, err := decimal.NewFromString(req.Size)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid size"})
		return
	}
	var price *decimal.Decimal
	if req.Price != "" {
		p, err := decimal.NewFromString(req.Price)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid price"})
			return
		}
		price = &p
	}
	var trigger *decimal.Decimal
	if req.TriggerPrice != "" {
		tp, err := decimal.NewFromString(req.TriggerPrice)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid trigger price"})
			return
		}
		trigger = &tp
	}
	leverage := decimal.NewFromInt(1)
	if req.Leverage != "" {
		lv, err := decimal.NewFromString(req.Leverage)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid leverage"})
			return
		}
		leverage = lv
	}
	o, err := h.svc.Create(r.Context(), CreateRequest{
		UserID:       req.UserID,
		Symbol:       strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Side:         side,
		Type:         orderType,
		Size:         size,
		Price:        price,
		TriggerPrice: trigger,
		Leverage:     leverage,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, o)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	orders, err := h.svc.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	httputil.WriteJSON(w, http.StatusOK, orders)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Cancel(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) Trades(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	trades, err := h.svc.Trades(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if trades == nil {
		trades = []model.Trade{}
	}
	httputil.WriteJSON(w, http.StatusOK, trades)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "Order not found"})
	case errors.Is(err, ErrInvalidSize), errors.Is(err, ErrInvalidPrice),
		errors.Is(err, ErrInvalidTrigger), errors.Is(err, ErrNotCancelable):
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
	default:
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "internal error"})
	}
}
