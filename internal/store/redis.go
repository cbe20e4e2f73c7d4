package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"shibau-trading/internal/model"
	"shibau-trading/internal/types"
)

// CachedStore wraps a primary Store with a Redis read-through cache for
// the hot paths (market data and balances). Writes go to the primary
// store and invalidate the cache; reads check Redis first then fall
// back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{primary: primary, rdb: rdb, ttl: ttl}
}

var _ Store = (*CachedStore)(nil)

// --- Read-through (check cache first) ---

func (s *CachedStore) GetMarketData(ctx context.Context, symbol string) (*model.MarketData, error) {
	data, err := s.rdb.Get(ctx, marketKey(symbol)).Bytes()
	if err == nil {
		var md model.MarketData
		if json.Unmarshal(data, &md) == nil {
			return &md, nil
		}
	}

	md, err := s.primary.GetMarketData(ctx, symbol)
	if err != nil {
		return nil, err
	}
	s.cacheMarket(ctx, md)
	return md, nil
}

func (s *CachedStore) ListMarketData(ctx context.Context) ([]model.MarketData, error) {
	data, err := s.rdb.Get(ctx, marketsListKey).Bytes()
	if err == nil {
		var markets []model.MarketData
		if json.Unmarshal(data, &markets) == nil {
			return markets, nil
		}
	}

	markets, err := s.primary.ListMarketData(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(markets); err == nil {
		s.rdb.Set(ctx, marketsListKey, data, s.ttl)
	}
	return markets, nil
}

func (s *CachedStore) GetBalances(ctx context.Context, userID string) (map[string]decimal.Decimal, error) {
	data, err := s.rdb.Get(ctx, balancesKey(userID)).Bytes()
	if err == nil {
		var balances map[string]decimal.Decimal
		if json.Unmarshal(data, &balances) == nil {
			return balances, nil
		}
	}

	balances, err := s.primary.GetBalances(ctx, userID)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(balances); err == nil {
		s.rdb.Set(ctx, balancesKey(userID), data, s.ttl)
	}
	return balances, nil
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) UpsertMarketData(ctx context.Context, md *model.MarketData) error {
	if err := s.primary.UpsertMarketData(ctx, md); err != nil {
		return err
	}
	s.cacheMarket(ctx, md)
	s.rdb.Del(ctx, marketsListKey)
	return nil
}

func (s *CachedStore) SetBalance(ctx context.Context, userID, token string, amount decimal.Decimal) error {
	if err := s.primary.SetBalance(ctx, userID, token, amount); err != nil {
		return err
	}
	s.rdb.Del(ctx, balancesKey(userID))
	return nil
}

func (s *CachedStore) ApplyBalanceDeltas(ctx context.Context, userID string, deltas map[string]decimal.Decimal) (map[string]decimal.Decimal, error) {
	balances, err := s.primary.ApplyBalanceDeltas(ctx, userID, deltas)
	if err != nil {
		return nil, err
	}
	s.rdb.Del(ctx, balancesKey(userID))
	return balances, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) CreateUser(ctx context.Context, u *model.User) error {
	return s.primary.CreateUser(ctx, u)
}

func (s *CachedStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.primary.GetUser(ctx, id)
}

func (s *CachedStore) GetUserByAddress(ctx context.Context, address string) (*model.User, error) {
	return s.primary.GetUserByAddress(ctx, address)
}

func (s *CachedStore) GetUserByReferralCode(ctx context.Context, code string) (*model.User, error) {
	return s.primary.GetUserByReferralCode(ctx, code)
}

func (s *CachedStore) CreatePosition(ctx context.Context, p *model.Position) error {
	return s.primary.CreatePosition(ctx, p)
}

func (s *CachedStore) GetPosition(ctx context.Context, id string) (*model.Position, error) {
	return s.primary.GetPosition(ctx, id)
}

func (s *CachedStore) ListOpenPositions(ctx context.Context, userID string) ([]model.Position, error) {
	return s.primary.ListOpenPositions(ctx, userID)
}

func (s *CachedStore) ClosePosition(ctx context.Context, id string, closedAt time.Time) error {
	return s.primary.ClosePosition(ctx, id, closedAt)
}

func (s *CachedStore) CreateOrder(ctx context.Context, o *model.Order) error {
	return s.primary.CreateOrder(ctx, o)
}

func (s *CachedStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	return s.primary.GetOrder(ctx, id)
}

func (s *CachedStore) ListOrders(ctx context.Context, userID string) ([]model.Order, error) {
	return s.primary.ListOrders(ctx, userID)
}

func (s *CachedStore) UpdateOrderStatus(ctx context.Context, id string, status types.OrderStatus) error {
	return s.primary.UpdateOrderStatus(ctx, id, status)
}

func (s *CachedStore) InsertTrade(ctx context.Context, t *model.Trade) error {
	return s.primary.InsertTrade(ctx, t)
}

func (s *CachedStore) ListTrades(ctx context.Context, userID string) ([]model.Trade, error) {
	return s.primary.ListTrades(ctx, userID)
}

func (s *CachedStore) CreatePool(ctx context.Context, p *model.LiquidityPool) error {
	return s.primary.CreatePool(ctx, p)
}

func (s *CachedStore) ListPools(ctx context.Context) ([]model.LiquidityPool, error) {
	return s.primary.ListPools(ctx)
}

func (s *CachedStore) GetPool(ctx context.Context, id string) (*model.LiquidityPool, error) {
	return s.primary.GetPool(ctx, id)
}

func (s *CachedStore) ListUserLiquidity(ctx context.Context, userID string) ([]model.UserLiquidity, error) {
	return s.primary.ListUserLiquidity(ctx, userID)
}

func (s *CachedStore) CreateStakingPosition(ctx context.Context, sp *model.StakingPosition) error {
	return s.primary.CreateStakingPosition(ctx, sp)
}

func (s *CachedStore) ListStakingPositions(ctx context.Context, userID string) ([]model.StakingPosition, error) {
	return s.primary.ListStakingPositions(ctx, userID)
}

func (s *CachedStore) CreateReferral(ctx context.Context, r *model.Referral) error {
	return s.primary.CreateReferral(ctx, r)
}

func (s *CachedStore) ListReferrals(ctx context.Context, referrerID string) ([]model.Referral, error) {
	return s.primary.ListReferrals(ctx, referrerID)
}

// --- Cache helpers ---

func (s *CachedStore) cacheMarket(ctx context.Context, md *model.MarketData) {
	if data, err := json.Marshal(md); err == nil {
		s.rdb.Set(ctx, marketKey(md.Symbol), data, s.ttl)
	}
}

const marketsListKey = "markets:all"

func marketKey(symbol string) string   { return fmt.Sprintf("market:%s", symbol) }
func balancesKey(userID string) string { return fmt.Sprintf("balances:%s", userID) }
