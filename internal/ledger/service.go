package ledger

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
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrInvalidToken  = errors.New("unknown token")
	ErrSameToken     = errors.New("cannot swap a token for itself")
)

// swapFeeRate is the flat 10 bps fee taken on the USD value of a swap.
var swapFeeRate = decimal.RequireFromString("0.001")

// stakingAPR is fixed for every staking position.
var stakingAPR = decimal.RequireFromString("12.5")

// Pricer resolves a token to its current USD price.
type Pricer interface {
	PriceUSD(ctx context.Context, token string) (decimal.Decimal, error)
}

// Service owns all balance movements. Every mutation goes through the
// store's atomic delta batch, so a failed validation never leaves a
// partial write behind.
type Service struct {
	mu     sync.Mutex
	store  store.Store
	pricer Pricer
}

func NewService(st store.Store, pricer Pricer) *Service {
	return &Service{store: st, pricer: pricer}
}

func (s *Service) Balances(ctx context.Context, userID string) (map[string]decimal.Decimal, error) {
	return s.store.GetBalances(ctx, userID)
}

// SetBalance overwrites a single token balance. Kept for seeding and
// test setup, regular flows use Debit and Credit.
func (s *Service) SetBalance(ctx context.Context, userID, token string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("set %s: %w", token, ErrInvalidAmount)
	}
	return s.store.SetBalance(ctx, userID, token, amount)
}

func (s *Service) Debit(ctx context.Context, userID, token string, amount decimal.Decimal) (map[string]decimal.Decimal, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("debit %s: %w", token, ErrInvalidAmount)
	}
	return s.store.ApplyBalanceDeltas(ctx, userID, map[string]decimal.Decimal{token: amount.Neg()})
}

func (s *Service) Credit(ctx context.Context, userID, token string, amount decimal.Decimal) (map[string]decimal.Decimal, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("credit %s: %w", token, ErrInvalidAmount)
	}
	return s.store.ApplyBalanceDeltas(ctx, userID, map[string]decimal.Decimal{token: amount})
}

type SwapRequest struct {
	UserID    string
	FromToken string
	ToToken   string
	Amount    decimal.Decimal
}

type SwapResult struct {
	AmountOut   decimal.Decimal            `json:"amountOut"`
	Fee         decimal.Decimal            `json:"fee"`
	NewBalances map[string]decimal.Decimal `json:"newBalance"`
}

// Swap exchanges one token for another at current USD prices. The debit
// and credit land in a single atomic batch, so the swap either happens
// in full or not at all. A 10 bps fee is taken on the USD value.
func (s *Service) Swap(ctx context.Context, req SwapRequest) (*SwapResult, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}
	if req.FromToken == req.ToToken {
		return nil, ErrSameToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	priceFrom, err := s.pricer.PriceUSD(ctx, req.FromToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.FromToken, ErrInvalidToken)
	}
	priceTo, err := s.pricer.PriceUSD(ctx, req.ToToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.ToToken, ErrInvalidToken)
	}

	usdValue := req.Amount.Mul(priceFrom)
	fee := usdValue.Mul(swapFeeRate)
	amountOut := usdValue.Sub(fee).Div(priceTo)

	balances, err := s.store.ApplyBalanceDeltas(ctx, req.UserID, map[string]decimal.Decimal{
		req.FromToken: req.Amount.Neg(),
		req.ToToken:   amountOut,
	})
	if err != nil {
		return nil, err
	}

	trade := model.Trade{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Symbol:    req.FromToken + "/" + req.ToToken,
		Type:      types.TradeTypeSwap,
		Size:      usdValue,
		Price:     priceFrom,
		Fee:       fee,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.InsertTrade(ctx, &trade); err != nil {
		return nil, err
	}
	metrics.TradesTotal.WithLabelValues(string(types.TradeTypeSwap)).Inc()

	slog.Info("swap executed",
		"user_id", req.UserID,
		"from", req.FromToken,
		"to", req.ToToken,
		"amount_in", req.Amount,
		"amount_out", amountOut)

	return &SwapResult{AmountOut: amountOut, Fee: fee, NewBalances: balances}, nil
}

type StakeRequest struct {
	UserID string
	Token  string
	Amount decimal.Decimal
	PoolID string
}

type StakeResult struct {
	Position    *model.StakingPosition     `json:"stakingPosition"`
	NewBalances map[string]decimal.Decimal `json:"newBalance"`
}

// Stake locks a token amount into a staking position at the fixed APR.
func (s *Service) Stake(ctx context.Context, req StakeRequest) (*StakeResult, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	balances, err := s.store.ApplyBalanceDeltas(ctx, req.UserID, map[string]decimal.Decimal{
		req.Token: req.Amount.Neg(),
	})
	if err != nil {
		return nil, err
	}

	sp := model.StakingPosition{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		PoolID:    req.PoolID,
		Token:     req.Token,
		Amount:    req.Amount,
		APR:       stakingAPR,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateStakingPosition(ctx, &sp); err != nil {
		return nil, err
	}

	slog.Info("staking position created",
		"user_id", req.UserID, "token", req.Token, "amount", req.Amount)

	return &StakeResult{Position: &sp, NewBalances: balances}, nil
}

func (s *Service) StakingPositions(ctx context.Context, userID string) ([]model.StakingPosition, error) {
	return s.store.ListStakingPositions(ctx, userID)
}
