package users

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

type createUserRequest struct {
	Address      string `json:"address"`
	ReferralCode string `json:"referralCode"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	u, err := h.svc.Create(r.Context(), req.Address, req.ReferralCode)
	if err != nil {
		if errors.Is(err, ErrInvalidAddress) {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
			return
		}
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "internal error"})
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, u)
}

func (h *Handler) GetByAddress(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	u, err := h.svc.GetByAddress(r.Context(), address)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "User not found"})
			return
		}
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "internal error"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) Referrals(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	referrals, err := h.svc.Referrals(r.Context(), userID)
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: "internal error"})
		return
	}
	if referrals == nil {
		referrals = []model.Referral{}
	}
	httputil.WriteJSON(w, http.StatusOK, referrals)
}
