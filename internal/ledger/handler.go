package ledger

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"shibau-trading/internal/httputil"
	"shibau-trading/internal/model"
	"shibau-trading/internal/store"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	balances, err := h.svc.Balances(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	// The response is the bare token map, clients index it directly.
	httputil.WriteJSON(w, http.StatusOK, balances)
}

type swapRequest struct {
	UserID     string `json:"userId"`
	FromToken  string `json:"fromToken"`
	ToToken    string `json:"toToken"`
	FromAmount string `json:"fromAmount"`
	Amount     string `json:"amount"`
}

func (h *Handler) Swap(w http.ResponseWriter, r *http.Request) {
	var req swapRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	// Clients send fromAmount; amount is accepted as an alias.
	raw := req.FromAmount
	if raw == "" {
		raw = req.Amount
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid amount"})
		return
	}
	res, err := h.svc.Swap(r.Context(), SwapRequest{
		UserID:    req.UserID,
		FromToken: strings.ToUpper(strings.TrimSpace(req.FromToken)),
		ToToken:   strings.ToUpper(strings.TrimSpace(req.ToToken)),
		Amount:    amount,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"amountOut":  res.AmountOut,
		"fee":        res.Fee,
		"newBalance": res.NewBalances,
	})
}

type stakeRequest struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
	Amount string `json:"amount"`
	PoolID string `json:"poolId"`
}

func (h *Handler) Stake(w http.ResponseWriter, r *http.Request) {
	var req stakeRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid amount"})
		return
	}
	res, err := h.svc.Stake(r.Context(), StakeRequest{
		UserID: req.UserID,
		Token:  strings.ToUpper(strings.TrimSpace(req.Token)),
		Amount: amount,
		PoolID: strings.TrimSpace(req.PoolID),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"stakingPosition": res.Position,
		"newBalance":      res.NewBalances,
	})
}

func (h *Handler) ListStaking(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	positions, err := h.svc.StakingPositions(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if positions == nil {
		positions = []model.StakingPosition{}
	}
	httputil.WriteJSON(w, http.StatusOK, positions)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrInsufficientBalance):
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "Insufficient balance"})
	case errors.Is(err, store.ErrNotFound):
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "Not found"})
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidToken), errors.Is(err, ErrSameToken):
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
	default:
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "internal error"})
	}
}
