package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"shibau-trading/internal/model"
	"shibau-trading/internal/types"
)

// PostgresStore implements Store using PostgreSQL. All monetary values
// are stored as NUMERIC for exact decimal precision and scanned back
// through ::TEXT.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var _ Store = (*PostgresStore)(nil)

// Pool exposes the underlying pool for health checks.
func (s *PostgresStore) Pool() *pgxpool.Pool { return s.pool }

func (s *PostgresStore) CreateUser(ctx context.Context, u *model.User) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE lower(address) = lower($1))`,
		u.Address).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("user for address %s: %w", u.Address, ErrAlreadyExists)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO users (id, address, referral_code, created_at)
		 VALUES ($1, $2, $3, $4)`,
		u.ID, u.Address, u.ReferralCode, u.CreatedAt); err != nil {
		return err
	}
	for token, amount := range u.Balances {
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_balances (user_id, token, amount)
			 VALUES ($1, $2, $3::NUMERIC)`,
			u.ID, token, amount.String()); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, `WHERE id = $1`, id)
}

func (s *PostgresStore) GetUserByAddress(ctx context.Context, address string) (*model.User, error) {
	return s.getUser(ctx, `WHERE lower(address) = lower($1)`, address)
}

func (s *PostgresStore) GetUserByReferralCode(ctx context.Context, code string) (*model.User, error) {
	return s.getUser(ctx, `WHERE referral_code = $1`, code)
}

func (s *PostgresStore) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, address, referral_code, created_at FROM users `+where, arg).
		Scan(&u.ID, &u.Address, &u.ReferralCode, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %v: %w", arg, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	balances, err := s.GetBalances(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.Balances = balances
	return &u, nil
}

func (s *PostgresStore) GetBalances(ctx context.Context, userID string) (map[string]decimal.Decimal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT token, amount::TEXT FROM user_balances WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	balances := make(map[string]decimal.Decimal)
	for rows.Next() {
		var token, amountS string
		if err := rows.Scan(&token, &amountS); err != nil {
			return nil, err
		}
		balances[token], _ = decimal.NewFromString(amountS)
	}
	return balances, rows.Err()
}

func (s *PostgresStore) SetBalance(ctx context.Context, userID, token string, amount decimal.Decimal) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_balances (user_id, token, amount)
		 VALUES ($1, $2, $3::NUMERIC)
		 ON CONFLICT (user_id, token) DO UPDATE SET amount = $3::NUMERIC`,
		userID, token, amount.String())
	return err
}

func (s *PostgresStore) ApplyBalanceDeltas(ctx context.Context, userID string, deltas map[string]decimal.Decimal) (map[string]decimal.Decimal, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx,
		`SELECT token, amount::TEXT FROM user_balances WHERE user_id = $1 FOR UPDATE`, userID)
	if err != nil {
		return nil, err
	}
	current := make(map[string]decimal.Decimal)
	for rows.Next() {
		var token, amountS string
		if err := rows.Scan(&token, &amountS); err != nil {
			rows.Close()
			return nil, err
		}
		current[token], _ = decimal.NewFromString(amountS)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(current) == 0 {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	for token, delta := range deltas {
		after := current[token].Add(delta)
		if after.IsNegative() {
			return nil, fmt.Errorf("%s balance would go negative: %w", token, ErrInsufficientBalance)
		}
		current[token] = after
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_balances (user_id, token, amount)
			 VALUES ($1, $2, $3::NUMERIC)
			 ON CONFLICT (user_id, token) DO UPDATE SET amount = $3::NUMERIC`,
			userID, token, after.String()); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return current, nil
}

func (s *PostgresStore) CreatePosition(ctx context.Context, p *model.Position) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO positions (id, user_id, symbol, side, size, leverage, collateral,
		                        entry_price, liquidation_price, is_open, created_at)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC,
		         $8::NUMERIC, $9::NUMERIC, $10, $11)`,
		p.ID, p.UserID, p.Symbol, p.Side,
		p.Size.String(), p.Leverage.String(), p.Collateral.String(),
		p.EntryPrice.String(), p.LiquidationPrice.String(),
		p.IsOpen, p.CreatedAt)
	return err
}

const positionCols = `id, user_id, symbol, side,
	size::TEXT, leverage::TEXT, collateral::TEXT,
	entry_price::TEXT, liquidation_price::TEXT,
	is_open, created_at, closed_at`

func (s *PostgresStore) GetPosition(ctx context.Context, id string) (*model.Position, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+positionCols+` FROM positions WHERE id = $1`, id)
	p, err := scanPosition(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("position %s: %w", id, ErrNotFound)
	}
	return p, err
}

func (s *PostgresStore) ListOpenPositions(ctx context.Context, userID string) ([]model.Position, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+positionCols+` FROM positions
		 WHERE user_id = $1 AND is_open ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []model.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, *p)
	}
	return positions, rows.Err()
}

func (s *PostgresStore) ClosePosition(ctx context.Context, id string, closedAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE positions SET is_open = FALSE, closed_at = $2
		 WHERE id = $1 AND is_open`, id, closedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("open position %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) CreateOrder(ctx context.Context, o *model.Order) error {
	var price, trigger *string
	if o.Price != nil {
		v := o.Price.String()
		price = &v
	}
	if o.TriggerPrice != nil {
		v := o.TriggerPrice.String()
		trigger = &v
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO orders (id, user_id, symbol, side, type, size, price, trigger_price, leverage, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7::NUMERIC, $8::NUMERIC, $9::NUMERIC, $10, $11)`,
		o.ID, o.UserID, o.Symbol, o.Side, o.Type,
		o.Size.String(), price, trigger, o.Leverage.String(), o.Status, o.CreatedAt)
	return err
}

const orderCols = `id, user_id, symbol, side, type,
	size::TEXT, price::TEXT, trigger_price::TEXT, leverage::TEXT, status, created_at`

func (s *PostgresStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+orderCols+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return o, err
}

func (s *PostgresStore) ListOrders(ctx context.Context, userID string) ([]model.Order, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+orderCols+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (s *PostgresStore) UpdateOrderStatus(ctx context.Context, id string, status types.OrderStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) InsertTrade(ctx context.Context, t *model.Trade) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO trades (id, user_id, symbol, type, side, size, price, fee, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7::NUMERIC, $8::NUMERIC, $9)`,
		t.ID, t.UserID, t.Symbol, t.Type, t.Side,
		t.Size.String(), t.Price.String(), t.Fee.String(), t.CreatedAt)
	return err
}

func (s *PostgresStore) ListTrades(ctx context.Context, userID string) ([]model.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, symbol, type, side,
		        size::TEXT, price::TEXT, fee::TEXT, created_at
		 FROM trades WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []model.Trade
	for rows.Next() {
		var t model.Trade
		var sizeS, priceS, feeS string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Symbol, &t.Type, &t.Side,
			&sizeS, &priceS, &feeS, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Size, _ = decimal.NewFromString(sizeS)
		t.Price, _ = decimal.NewFromString(priceS)
		t.Fee, _ = decimal.NewFromString(feeS)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (s *PostgresStore) UpsertMarketData(ctx context.Context, md *model.MarketData) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO market_data (symbol, price, change_24h, volume_24h, high_24h, low_24h,
		                          open_interest, available_liquidity, funding_rate, updated_at)
		 VALUES ($1, $2::NUMERIC, $3::NUMERIC, $4::NUMERIC, $5::NUMERIC, $6::NUMERIC,
		         $7::NUMERIC, $8::NUMERIC, $9::NUMERIC, $10)
		 ON CONFLICT (symbol) DO UPDATE SET
		   price = EXCLUDED.price, change_24h = EXCLUDED.change_24h,
		   volume_24h = EXCLUDED.volume_24h, high_24h = EXCLUDED.high_24h,
		   low_24h = EXCLUDED.low_24h, open_interest = EXCLUDED.open_interest,
		   available_liquidity = EXCLUDED.available_liquidity,
		   funding_rate = EXCLUDED.funding_rate, updated_at = EXCLUDED.updated_at`,
		md.Symbol, md.Price.String(), md.Change24h.String(),
		md.Volume24h.String(), md.High24h.String(), md.Low24h.String(),
		md.OpenInterest.String(), md.AvailableLiquidity.String(),
		md.FundingRate.String(), md.UpdatedAt)
	return err
}

const marketCols = `symbol, price::TEXT, change_24h::TEXT, volume_24h::TEXT,
	high_24h::TEXT, low_24h::TEXT, open_interest::TEXT,
	available_liquidity::TEXT, funding_rate::TEXT, updated_at`

func (s *PostgresStore) GetMarketData(ctx context.Context, symbol string) (*model.MarketData, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM market_data WHERE symbol = $1`, symbol)
	md, err := scanMarketData(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("market data %s: %w", symbol, ErrNotFound)
	}
	return md, err
}

func (s *PostgresStore) ListMarketData(ctx context.Context) ([]model.MarketData, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+marketCols+` FROM market_data ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var markets []model.MarketData
	for rows.Next() {
		md, err := scanMarketData(rows)
		if err != nil {
			return nil, err
		}
		markets = append(markets, *md)
	}
	return markets, rows.Err()
}

func (s *PostgresStore) CreatePool(ctx context.Context, p *model.LiquidityPool) error {
	comp := make(map[string]string, len(p.Composition))
	for token, pct := range p.Composition {
		comp[token] = pct.String()
	}
	data, err := json.Marshal(comp)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO liquidity_pools (id, name, tvl, apr, composition)
		 VALUES ($1, $2, $3::NUMERIC, $4::NUMERIC, $5)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name, tvl = EXCLUDED.tvl,
		   apr = EXCLUDED.apr, composition = EXCLUDED.composition`,
		p.ID, p.Name, p.TVL.String(), p.APR.String(), data)
	return err
}

func (s *PostgresStore) ListPools(ctx context.Context) ([]model.LiquidityPool, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, tvl::TEXT, apr::TEXT, composition FROM liquidity_pools ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pools []model.LiquidityPool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, err
		}
		pools = append(pools, *p)
	}
	return pools, rows.Err()
}

func (s *PostgresStore) GetPool(ctx context.Context, id string) (*model.LiquidityPool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, tvl::TEXT, apr::TEXT, composition FROM liquidity_pools WHERE id = $1`, id)
	p, err := scanPool(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("pool %s: %w", id, ErrNotFound)
	}
	return p, err
}

func (s *PostgresStore) ListUserLiquidity(ctx context.Context, userID string) ([]model.UserLiquidity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, pool_id, amount::TEXT, created_at
		 FROM user_liquidity WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.UserLiquidity
	for rows.Next() {
		var ul model.UserLiquidity
		var amountS string
		if err := rows.Scan(&ul.ID, &ul.UserID, &ul.PoolID, &amountS, &ul.CreatedAt); err != nil {
			return nil, err
		}
		ul.Amount, _ = decimal.NewFromString(amountS)
		result = append(result, ul)
	}
	return result, rows.Err()
}

func (s *PostgresStore) CreateStakingPosition(ctx context.Context, sp *model.StakingPosition) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO staking_positions (id, user_id, pool_id, token, amount, apr, created_at)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7)`,
		sp.ID, sp.UserID, sp.PoolID, sp.Token, sp.Amount.String(), sp.APR.String(), sp.CreatedAt)
	return err
}

func (s *PostgresStore) ListStakingPositions(ctx context.Context, userID string) ([]model.StakingPosition, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, pool_id, token, amount::TEXT, apr::TEXT, created_at
		 FROM staking_positions WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.StakingPosition
	for rows.Next() {
		var sp model.StakingPosition
		var amountS, aprS string
		if err := rows.Scan(&sp.ID, &sp.UserID, &sp.PoolID, &sp.Token, &amountS, &aprS, &sp.CreatedAt); err != nil {
			return nil, err
		}
		sp.Amount, _ = decimal.NewFromString(amountS)
		sp.APR, _ = decimal.NewFromString(aprS)
		result = append(result, sp)
	}
	return result, rows.Err()
}

func (s *PostgresStore) CreateReferral(ctx context.Context, r *model.Referral) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO referrals (id, referrer_id, referred_id, reward, created_at)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5)`,
		r.ID, r.ReferrerID, r.ReferredID, r.Reward.String(), r.CreatedAt)
	return err
}

func (s *PostgresStore) ListReferrals(ctx context.Context, referrerID string) ([]model.Referral, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, referrer_id, referred_id, reward::TEXT, created_at
		 FROM referrals WHERE referrer_id = $1 ORDER BY created_at`, referrerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Referral
	for rows.Next() {
		var r model.Referral
		var rewardS string
		if err := rows.Scan(&r.ID, &r.ReferrerID, &r.ReferredID, &rewardS, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Reward, _ = decimal.NewFromString(rewardS)
		result = append(result, r)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosition(row rowScanner) (*model.Position, error) {
	var p model.Position
	var sizeS, levS, collS, entryS, liqS string
	if err := row.Scan(&p.ID, &p.UserID, &p.Symbol, &p.Side,
		&sizeS, &levS, &collS, &entryS, &liqS,
		&p.IsOpen, &p.CreatedAt, &p.ClosedAt); err != nil {
		return nil, err
	}
	p.Size, _ = decimal.NewFromString(sizeS)
	p.Leverage, _ = decimal.NewFromString(levS)
	p.Collateral, _ = decimal.NewFromString(collS)
	p.EntryPrice, _ = decimal.NewFromString(entryS)
	p.LiquidationPrice, _ = decimal.NewFromString(liqS)
	return &p, nil
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var o model.Order
	var sizeS, levS string
	var priceS, triggerS *string
	if err := row.Scan(&o.ID, &o.UserID, &o.Symbol, &o.Side, &o.Type,
		&sizeS, &priceS, &triggerS, &levS, &o.Status, &o.CreatedAt); err != nil {
		return nil, err
	}
	o.Size, _ = decimal.NewFromString(sizeS)
	o.Leverage, _ = decimal.NewFromString(levS)
	if priceS != nil {
		p, _ := decimal.NewFromString(*priceS)
		o.Price = &p
	}
	if triggerS != nil {
		tp, _ := decimal.NewFromString(*triggerS)
		o.TriggerPrice = &tp
	}
	return &o, nil
}

func scanMarketData(row rowScanner) (*model.MarketData, error) {
	var md model.MarketData
	var priceS, changeS, volS, highS, lowS, oiS, liqS, frS string
	if err := row.Scan(&md.Symbol, &priceS, &changeS, &volS, &highS, &lowS,
		&oiS, &liqS, &frS, &md.UpdatedAt); err != nil {
		return nil, err
	}
	md.Price, _ = decimal.NewFromString(priceS)
	md.Change24h, _ = decimal.NewFromString(changeS)
	md.Volume24h, _ = decimal.NewFromString(volS)
	md.High24h, _ = decimal.NewFromString(highS)
	md.Low24h, _ = decimal.NewFromString(lowS)
	md.OpenInterest, _ = decimal.NewFromString(oiS)
	md.AvailableLiquidity, _ = decimal.NewFromString(liqS)
	md.FundingRate, _ = decimal.NewFromString(frS)
	return &md, nil
}

func scanPool(row rowScanner) (*model.LiquidityPool, error) {
	var p model.LiquidityPool
	var tvlS, aprS string
	var compData []byte
	if err := row.Scan(&p.ID, &p.Name, &tvlS, &aprS, &compData); err != nil {
		return nil, err
	}
	p.TVL, _ = decimal.NewFromString(tvlS)
	p.APR, _ = decimal.NewFromString(aprS)
	comp := make(map[string]string)
	if err := json.Unmarshal(compData, &comp); err == nil {
		p.Composition = make(map[string]decimal.Decimal, len(comp))
		for token, pct := range comp {
			p.Composition[token], _ = decimal.NewFromString(strings.TrimSpace(pct))
		}
	}
	return &p, nil
}
