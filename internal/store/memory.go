package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"shibau-trading/internal/model"
	"shibau-trading/internal/types"
)

// MemoryStore implements Store with in-memory maps. It is the default
// backend; nothing survives a restart, which is the point of the
// simulation.
type MemoryStore struct {
	mu        sync.RWMutex
	seq       uint64
	users     map[string]*model.User
	byAddress map[string]string
	positions map[string]*model.Position
	posSeq    map[string]uint64
	orders    map[string]*model.Order
	orderSeq  map[string]uint64
	trades    []model.Trade
	markets   map[string]*model.MarketData
	pools     map[string]*model.LiquidityPool
	liquidity []model.UserLiquidity
	staking   []model.StakingPosition
	referrals []model.Referral
}

// NewMemoryStore creates an empty in-memory store. Call Seed to load
// the default market rows and liquidity pools.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]*model.User),
		byAddress: make(map[string]string),
		positions: make(map[string]*model.Position),
		posSeq:    make(map[string]uint64),
		orders:    make(map[string]*model.Order),
		orderSeq:  make(map[string]uint64),
		markets:   make(map[string]*model.MarketData),
		pools:     make(map[string]*model.LiquidityPool),
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := strings.ToLower(u.Address)
	if _, ok := s.byAddress[addr]; ok {
		return fmt.Errorf("user for address %s: %w", u.Address, ErrAlreadyExists)
	}

	cp := *u
	cp.Balances = copyBalances(u.Balances)
	s.users[u.ID] = &cp
	s.byAddress[addr] = u.ID
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userLocked(id)
}

func (s *MemoryStore) GetUserByAddress(_ context.Context, address string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byAddress[strings.ToLower(address)]
	if !ok {
		return nil, fmt.Errorf("user for address %s: %w", address, ErrNotFound)
	}
	return s.userLocked(id)
}

func (s *MemoryStore) GetUserByReferralCode(_ context.Context, code string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, u := range s.users {
		if u.ReferralCode == code {
			return s.userLocked(id)
		}
	}
	return nil, fmt.Errorf("referral code %s: %w", code, ErrNotFound)
}

func (s *MemoryStore) userLocked(id string) (*model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	cp := *u
	cp.Balances = copyBalances(u.Balances)
	return &cp, nil
}

func (s *MemoryStore) GetBalances(_ context.Context, userID string) (map[string]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return copyBalances(u.Balances), nil
}

func (s *MemoryStore) SetBalance(_ context.Context, userID, token string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	u.Balances[token] = amount
	return nil
}

// ApplyBalanceDeltas validates every resulting balance before writing
// anything, so a failed batch leaves the user untouched.
func (s *MemoryStore) ApplyBalanceDeltas(_ context.Context, userID string, deltas map[string]decimal.Decimal) (map[string]decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	next := copyBalances(u.Balances)
	for token, delta := range deltas {
		after := next[token].Add(delta)
		if after.IsNegative() {
			return nil, fmt.Errorf("%s balance would go negative: %w", token, ErrInsufficientBalance)
		}
		next[token] = after
	}

	u.Balances = next
	return copyBalances(next), nil
}

func (s *MemoryStore) CreatePosition(_ context.Context, p *model.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	s.seq++
	s.positions[p.ID] = &cp
	s.posSeq[p.ID] = s.seq
	return nil
}

func (s *MemoryStore) GetPosition(_ context.Context, id string) (*model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.positions[id]
	if !ok {
		return nil, fmt.Errorf("position %s: %w", id, ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) ListOpenPositions(_ context.Context, userID string) ([]model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Position
	for _, p := range s.positions {
		if p.UserID == userID && p.IsOpen {
			result = append(result, *p)
		}
	}
	// Newest first, with the insertion sequence breaking timestamp
	// ties so listings stay deterministic.
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return s.posSeq[result[i].ID] > s.posSeq[result[j].ID]
	})
	return result, nil
}

func (s *MemoryStore) ClosePosition(_ context.Context, id string, closedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.positions[id]
	if !ok || !p.IsOpen {
		return fmt.Errorf("open position %s: %w", id, ErrNotFound)
	}
	p.IsOpen = false
	t := closedAt
	p.ClosedAt = &t
	return nil
}

func (s *MemoryStore) CreateOrder(_ context.Context, o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *o
	s.seq++
	s.orders[o.ID] = &cp
	s.orderSeq[o.ID] = s.seq
	return nil
}

func (s *MemoryStore) GetOrder(_ context.Context, id string) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	cp := *o
	return &cp, nil
}

func (s *MemoryStore) ListOrders(_ context.Context, userID string) ([]model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			result = append(result, *o)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return s.orderSeq[result[i].ID] > s.orderSeq[result[j].ID]
	})
	return result, nil
}

func (s *MemoryStore) UpdateOrderStatus(_ context.Context, id string, status types.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	o.Status = status
	return nil
}

func (s *MemoryStore) InsertTrade(_ context.Context, t *model.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades = append(s.trades, *t)
	return nil
}

func (s *MemoryStore) ListTrades(_ context.Context, userID string) ([]model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Trade
	for _, t := range s.trades {
		if t.UserID == userID {
			result = append(result, t)
		}
	}
	// The trade log is append-only, so a stable sort keeps insertion
	// order among equal timestamps.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) UpsertMarketData(_ context.Context, md *model.MarketData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *md
	s.markets[md.Symbol] = &cp
	return nil
}

func (s *MemoryStore) GetMarketData(_ context.Context, symbol string) (*model.MarketData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	md, ok := s.markets[symbol]
	if !ok {
		return nil, fmt.Errorf("market data %s: %w", symbol, ErrNotFound)
	}
	cp := *md
	return &cp, nil
}

func (s *MemoryStore) ListMarketData(_ context.Context) ([]model.MarketData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.MarketData, 0, len(s.markets))
	for _, md := range s.markets {
		result = append(result, *md)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Symbol < result[j].Symbol
	})
	return result, nil
}

func (s *MemoryStore) ListPools(_ context.Context) ([]model.LiquidityPool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.LiquidityPool, 0, len(s.pools))
	for _, p := range s.pools {
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *MemoryStore) GetPool(_ context.Context, id string) (*model.LiquidityPool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pools[id]
	if !ok {
		return nil, fmt.Errorf("pool %s: %w", id, ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) ListUserLiquidity(_ context.Context, userID string) ([]model.UserLiquidity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.UserLiquidity
	for _, ul := range s.liquidity {
		if ul.UserID == userID {
			result = append(result, ul)
		}
	}
	return result, nil
}

func (s *MemoryStore) CreateStakingPosition(_ context.Context, sp *model.StakingPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.staking = append(s.staking, *sp)
	return nil
}

func (s *MemoryStore) ListStakingPositions(_ context.Context, userID string) ([]model.StakingPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.StakingPosition
	for _, sp := range s.staking {
		if sp.UserID == userID {
			result = append(result, sp)
		}
	}
	return result, nil
}

func (s *MemoryStore) CreateReferral(_ context.Context, r *model.Referral) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.referrals = append(s.referrals, *r)
	return nil
}

func (s *MemoryStore) ListReferrals(_ context.Context, referrerID string) ([]model.Referral, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Referral
	for _, r := range s.referrals {
		if r.ReferrerID == referrerID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (s *MemoryStore) CreatePool(_ context.Context, p *model.LiquidityPool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	s.pools[p.ID] = &cp
	return nil
}

func copyBalances(in map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
