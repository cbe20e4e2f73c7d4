package positions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"shibau-trading/internal/metrics"
	"shibau-trading/internal/model"
	"shibau-trading/internal/store"
	"shibau-trading/internal/types"
)

var (
	ErrInvalidSize     = errors.New("size must be positive")
	ErrInvalidLeverage = errors.New("leverage must be between 1 and 100")
	ErrUnknownSymbol   = errors.New("unknown symbol")
)

var maxLeverage = decimal.NewFromInt(100)

// collateralToken is the token debited for margin and credited on close.
const collateralToken = "USDC"

// Quoter resolves a trading pair symbol to its current price.
type Quoter interface {
	Quote(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Service is the position book. The mutex serializes the multi-step
// open and close flows so a quote, debit and insert always land against
// a consistent ledger view.
type Service struct {
	mu     sync.Mutex
	store  store.Store
	quoter Quoter
}

func NewService(st store.Store, quoter Quoter) *Service {
	return &Service{store: st, quoter: quoter}
}

type OpenRequest struct {
	UserID   string
	Symbol   string
	Side     types.PositionSide
	Size     decimal.Decimal
	Leverage decimal.Decimal
}

// Open validates the request, debits collateral plus the open fee from
// the user's USDC balance and records the position and its trade. A
// validation or balance failure mutates nothing.
func (s *Service) Open(ctx context.Context, req OpenRequest) (*model.Position, error) {
	if req.Size.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidSize
	}
	// Fractional leverage below 1x is rejected too, the UI only offers
	// 1x through 100x.
	if req.Leverage.LessThan(one) || req.Leverage.GreaterThan(maxLeverage) {
		return nil, ErrInvalidLeverage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.quoter.Quote(ctx, req.Symbol)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.Symbol, ErrUnknownSymbol)
	}

	collateral := Collateral(req.Size, req.Leverage)
	fee := OpenFee(req.Size)

	if _, err := s.store.ApplyBalanceDeltas(ctx, req.UserID, map[string]decimal.Decimal{
		collateralToken: collateral.Add(fee).Neg(),
	}); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := model.Position{
		ID:               uuid.NewString(),
		UserID:           req.UserID,
		Symbol:           req.Symbol,
		Side:             req.Side,
		Size:             req.Size,
		Leverage:         req.Leverage,
		Collateral:       collateral,
		EntryPrice:       entry,
		LiquidationPrice: LiquidationPrice(req.Side, entry, req.Leverage),
		IsOpen:           true,
		CreatedAt:        now,
	}
	if err := s.store.CreatePosition(ctx, &p); err != nil {
		return nil, err
	}

	trade := model.Trade{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Symbol:    req.Symbol,
		Type:      types.TradeTypeOpen,
		Side:      string(req.Side),
		Size:      req.Size,
		Price:     entry,
		Fee:       fee,
		CreatedAt: now,
	}
	if err := s.store.InsertTrade(ctx, &trade); err != nil {
		return nil, err
	}
	metrics.TradesTotal.WithLabelValues(string(types.TradeTypeOpen)).Inc()

	slog.Info("position opened",
		"position_id", p.ID,
		"user_id", req.UserID,
		"symbol", req.Symbol,
		"side", req.Side,
		"size", req.Size,
		"leverage", req.Leverage,
		"entry", entry)

	return &p, nil
}

// List returns the user's open positions with unrealized PnL marked
// against current prices. A missing quote leaves the PnL at zero
// rather than failing the whole listing.
func (s *Service) List(ctx context.Context, userID string) ([]model.Position, error) {
	positions, err := s.store.ListOpenPositions(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range positions {
		current, err := s.quoter.Quote(ctx, positions[i].Symbol)
		if err != nil {
			continue
		}
		positions[i].UnrealizedPnL = UnrealizedPnL(
			positions[i].Side, positions[i].EntryPrice, current, positions[i].Size)
	}
	return positions, nil
}

type CloseResult struct {
	Position    *model.Position            `json:"position"`
	RealizedPnL decimal.Decimal            `json:"realizedPnl"`
	Payout      decimal.Decimal            `json:"payout"`
	NewBalances map[string]decimal.Decimal `json:"newBalance"`
}

// Close settles a position at the current price. The user is credited
// collateral plus PnL, floored at zero: losses beyond the margin are
// absorbed, a balance never goes negative. Closing an already closed
// position reports not found.
func (s *Service) Close(ctx context.Context, id string) (*CloseResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.store.GetPosition(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsOpen {
		return nil, fmt.Errorf("position %s already closed: %w", id, store.ErrNotFound)
	}

	current, err := s.quoter.Quote(ctx, p.Symbol)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Symbol, ErrUnknownSymbol)
	}
	pnl := UnrealizedPnL(p.Side, p.EntryPrice, current, p.Size)

	payout := p.Collateral.Add(pnl)
	if payout.IsNegative() {
		payout = decimal.Zero
	}

	now := time.Now().UTC()
	if err := s.store.ClosePosition(ctx, id, now); err != nil {
		return nil, err
	}

	balances, err := s.store.GetBalances(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if payout.IsPositive() {
		balances, err = s.store.ApplyBalanceDeltas(ctx, p.UserID, map[string]decimal.Decimal{
			collateralToken: payout,
		})
		if err != nil {
			return nil, err
		}
	}

	p.IsOpen = false
	p.ClosedAt = &now
	p.UnrealizedPnL = pnl

	slog.Info("position closed",
		"position_id", p.ID,
		"user_id", p.UserID,
		"symbol", p.Symbol,
		"pnl", pnl,
		"payout", payout)

	return &CloseResult{
		Position:    p,
		RealizedPnL: pnl,
		Payout:      payout,
		NewBalances: balances,
	}, nil
}
