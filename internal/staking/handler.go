package staking

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

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

func (h *Handler) ListPools(w http.ResponseWriter, r *http.Request) {
	pools, err := h.svc.Pools(r.Context())
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "internal error"})
		return
	}
	if pools == nil {
		pools = []model.LiquidityPool{}
	}
	httputil.WriteJSON(w, http.StatusOK, pools)
}

func (h *Handler) GetPool(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pool, err := h.svc.Pool(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "Pool not found"})
			return
		}
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "internal error"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pool)
}

func (h *Handler) UserLiquidity(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	liquidity, err := h.svc.UserLiquidity(r.Context(), userID)
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "internal error"})
		return
	}
	if liquidity == nil {
		liquidity = []model.UserLiquidity{}
	}
	httputil.WriteJSON(w, http.StatusOK, liquidity)
}
