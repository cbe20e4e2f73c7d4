package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shibau-trading/internal/model"
	"shibau-trading/internal/store"
	"shibau-trading/internal/types"
)

var (
	ErrInvalidSize    = errors.New("size must be positive")
	ErrInvalidPrice   = errors.New("limit orders require a positive price")
	ErrInvalidTrigger = errors.New("stop and take-profit orders require a positive trigger price")
	ErrNotCancelable  = errors.New("only pending orders can be cancelled")
)

// Service manages resting orders and the trade log. There is no
// matching engine in this simulation: orders stay PENDING until the
// user cancels them, and never produce trades.
type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

type CreateRequest struct {
	UserID       string
	Symbol       string
	Side         types.OrderSide
	Type         types.OrderType
	Size         decimal.Decimal
	Price        *decimal.Decimal
	TriggerPrice *decimal.Decimal
	Leverage     decimal.Decimal
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*model.Order, error) {
	if req.Size.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidSize
	}
	if req.Type == types.OrderTypeLimit {
		if req.Price == nil || req.Price.LessThanOrEqual(decimal.Zero) {
			return nil, ErrInvalidPrice
		}
	}
	if req.Type == types.OrderTypeStopLoss || req.Type == types.OrderTypeTakeProfit {
		if req.TriggerPrice == nil || req.TriggerPrice.LessThanOrEqual(decimal.Zero) {
			return nil, ErrInvalidTrigger
		}
	}
	if req.Leverage.LessThanOrEqual(decimal.Zero) {
		req.Leverage = decimal.NewFromInt(1)
	}

	// The user must exist; orders for unknown users are rejected.
	if _, err := s.store.GetUser(ctx, req.UserID); err != nil {
		return nil, err
	}

	o := model.Order{
		ID:           uuid.NewString(),
		UserID:       req.UserID,
		Symbol:       req.Symbol,
		Side:         req.Side,
		Type:         req.Type,
		Size:         req.Size,
		Price:        req.Price,
		TriggerPrice: req.TriggerPrice,
		Leverage:     req.Leverage,
		Status:       types.OrderStatusPending,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateOrder(ctx, &o); err != nil {
		return nil, err
	}

	slog.Info("order created",
		"order_id", o.ID,
		"user_id", req.UserID,
		"symbol", req.Symbol,
		"side", req.Side,
		"type", req.Type)

	return &o, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]model.Order, error) {
	return s.store.ListOrders(ctx, userID)
}

// Cancel moves a PENDING order to CANCELLED. That is the only legal
// transition; cancelling twice fails.
func (s *Service) Cancel(ctx context.Context, id string) error {
	o, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	if o.Status != types.OrderStatusPending {
		return fmt.Errorf("order %s is %s: %w", id, o.Status, ErrNotCancelable)
	}
	if err := s.store.UpdateOrderStatus(ctx, id, types.OrderStatusCancelled); err != nil {
		return err
	}
	slog.Info("order cancelled", "order_id", id, "user_id", o.UserID)
	return nil
}

func (s *Service) Trades(ctx context.Context, userID string) ([]model.Trade, error) {
	return s.store.ListTrades(ctx, userID)
}
