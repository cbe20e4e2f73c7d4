// Package store defines the persistence interface for the trading
// simulator. Implementations include an in-memory store (the default),
// PostgreSQL, and a Redis read-through cache layered over a primary.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"shibau-trading/internal/model"
	"shibau-trading/internal/types"
)

// Store is the persistence interface. The in-memory implementation is
// the default; PostgreSQL is used when DATABASE_URL is configured.
type Store interface {
	// --- Users ---

	// CreateUser persists a new user with its starting balances.
	CreateUser(ctx context.Context, u *model.User) error

	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, id string) (*model.User, error)

	// GetUserByAddress retrieves a user by wallet address.
	GetUserByAddress(ctx context.Context, address string) (*model.User, error)

	// GetUserByReferralCode retrieves the user owning a referral code.
	GetUserByReferralCode(ctx context.Context, code string) (*model.User, error)

	// --- Balances ---

	// GetBalances returns the full token balance map for a user.
	GetBalances(ctx context.Context, userID string) (map[string]decimal.Decimal, error)

	// SetBalance overwrites a single token balance.
	SetBalance(ctx context.Context, userID, token string, amount decimal.Decimal) error

	// ApplyBalanceDeltas applies a batch of signed balance changes
	// atomically. If any resulting balance would be negative the whole
	// batch is rejected with ErrInsufficientBalance and nothing changes.
	ApplyBalanceDeltas(ctx context.Context, userID string, deltas map[string]decimal.Decimal) (map[string]decimal.Decimal, error)

	// --- Positions ---

	CreatePosition(ctx context.Context, p *model.Position) error
	GetPosition(ctx context.Context, id string) (*model.Position, error)
	ListOpenPositions(ctx context.Context, userID string) ([]model.Position, error)

	// ClosePosition marks an open position closed. Closing a position
	// that is already closed or missing returns ErrNotFound.
	ClosePosition(ctx context.Context, id string, closedAt time.Time) error

	// --- Orders ---

	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	ListOrders(ctx context.Context, userID string) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status types.OrderStatus) error

	// --- Trades (append-only) ---

	InsertTrade(ctx context.Context, t *model.Trade) error
	ListTrades(ctx context.Context, userID string) ([]model.Trade, error)

	// --- Market data ---

	UpsertMarketData(ctx context.Context, md *model.MarketData) error
	GetMarketData(ctx context.Context, symbol string) (*model.MarketData, error)
	ListMarketData(ctx context.Context) ([]model.MarketData, error)

	// --- Pools, liquidity, staking ---

	CreatePool(ctx context.Context, p *model.LiquidityPool) error
	ListPools(ctx context.Context) ([]model.LiquidityPool, error)
	GetPool(ctx context.Context, id string) (*model.LiquidityPool, error)
	ListUserLiquidity(ctx context.Context, userID string) ([]model.UserLiquidity, error)
	CreateStakingPosition(ctx context.Context, sp *model.StakingPosition) error
	ListStakingPositions(ctx context.Context, userID string) ([]model.StakingPosition, error)

	// --- Referrals ---

	CreateReferral(ctx context.Context, r *model.Referral) error
	ListReferrals(ctx context.Context, referrerID string) ([]model.Referral, error)
}
