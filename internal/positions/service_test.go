package positions_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"shibau-trading/internal/model"
	"shibau-trading/internal/positions"
	"shibau-trading/internal/store"
	"shibau-trading/internal/types"
)

// fakeQuoter serves prices from a mutable map so a test can move the
// market between open and close.
type fakeQuoter struct {
	prices map[string]decimal.Decimal
}

func (q *fakeQuoter) Quote(_ context.Context, symbol string) (decimal.Decimal, error) {
	p, ok := q.prices[symbol]
	if !ok {
		return decimal.Zero, errors.New("no quote")
	}
	return p, nil
}

func newTestEnv(t *testing.T) (*positions.Service, *store.MemoryStore, *fakeQuoter) {
	t.Helper()
	ms := store.NewMemoryStore()
	quoter := &fakeQuoter{prices: map[string]decimal.Decimal{
		"BTC/USD": d("100"),
	}}
	return positions.NewService(ms, quoter), ms, quoter
}

func seedUser(t *testing.T, ms *store.MemoryStore, id string) {
	t.Helper()
	u := &model.User{
		ID:        id,
		Address:   "0x" + id,
		Balances:  store.DefaultBalances(),
		CreatedAt: time.Now().UTC(),
	}
	if err := ms.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func usdc(t *testing.T, ms *store.MemoryStore, userID string) decimal.Decimal {
	t.Helper()
	balances, err := ms.GetBalances(context.Background(), userID)
	if err != nil {
		t.Fatalf("get balances: %v", err)
	}
	return balances["USDC"]
}

func TestOpen_DebitsCollateralAndFee(t *testing.T) {
	svc, ms, _ := newTestEnv(t)
	seedUser(t, ms, "user1")

	p, err := svc.Open(context.Background(), positions.OpenRequest{
		UserID:   "user1",
		Symbol:   "BTC/USD",
		Side:     types.PositionSideLong,
		Size:     d("1000"),
		Leverage: d("10"),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if !p.Collateral.Equal(d("100")) {
		t.Errorf("collateral should be 100, got %s", p.Collateral)
	}
	if !p.EntryPrice.Equal(d("100")) {
		t.Errorf("entry should be 100, got %s", p.EntryPrice)
	}
	if !p.LiquidationPrice.Equal(d("91")) {
		t.Errorf("liquidation should be 91, got %s", p.LiquidationPrice)
	}
	if !p.IsOpen {
		t.Error("position should be open")
	}

	// 10000 - 100 collateral - 1 fee.
	if got := usdc(t, ms, "user1"); !got.Equal(d("9899")) {
		t.Errorf("USDC should be 9899 after open, got %s", got)
	}
}

func TestOpen_RecordsTrade(t *testing.T) {
	svc, ms, _ := newTestEnv(t)
	seedUser(t, ms, "user1")

	_, err := svc.Open(context.Background(), positions.OpenRequest{
		UserID:   "user1",
		Symbol:   "BTC/USD",
		Side:     types.PositionSideShort,
		Size:     d("500"),
		Leverage: d("5"),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	trades, err := ms.ListTrades(context.Background(), "user1")
	if err != nil {
		t.Fatalf("list trades: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	tr := trades[0]
	if tr.Type != types.TradeTypeOpen {
		t.Errorf("trade type should be OPEN, got %s", tr.Type)
	}
	if tr.Side != "SHORT" {
		t.Errorf("trade side should be SHORT, got %s", tr.Side)
	}
	if !tr.Fee.Equal(d("0.5")) {
		t.Errorf("fee should be 0.5, got %s", tr.Fee)
	}
}

func TestOpen_InsufficientBalanceMutatesNothing(t *testing.T) {
	svc, ms, _ := newTestEnv(t)
	seedUser(t, ms, "user1")

	_, err := svc.Open(context.Background(), positions.OpenRequest{
		UserID:   "user1",
		Symbol:   "BTC/USD",
		Side:     types.PositionSideLong,
		Size:     d("1000000"),
		Leverage: d("2"),
	})
	if !errors.Is(err, store.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}

	if got := usdc(t, ms, "user1"); !got.Equal(d("10000")) {
		t.Errorf("USDC should be untouched, got %s", got)
	}
	open, _ := ms.ListOpenPositions(context.Background(), "user1")
	if len(open) != 0 {
		t.Errorf("expected no positions, got %d", len(open))
	}
	trades, _ := ms.ListTrades(context.Background(), "user1")
	if len(trades) != 0 {
		t.Errorf("expected no trades, got %d", len(trades))
	}
}

func TestOpen_Validation(t *testing.T) {
	svc, ms, _ := newTestEnv(t)
	seedUser(t, ms, "user1")

	_, err := svc.Open(context.Background(), positions.OpenRequest{
		UserID: "user1", Symbol: "BTC/USD", Side: types.PositionSideLong,
		Size: decimal.Zero, Leverage: d("10"),
	})
	if !errors.Is(err, positions.ErrInvalidSize) {
		t.Errorf("expected invalid size, got %v", err)
	}

	_, err = svc.Open(context.Background(), positions.OpenRequest{
		UserID: "user1", Symbol: "BTC/USD", Side: types.PositionSideLong,
		Size: d("100"), Leverage: d("101"),
	})
	if !errors.Is(err, positions.ErrInvalidLeverage) {
		t.Errorf("expected invalid leverage, got %v", err)
	}

	_, err = svc.Open(context.Background(), positions.OpenRequest{
		UserID: "user1", Symbol: "DOGE/USD", Side: types.PositionSideLong,
		Size: d("100"), Leverage: d("10"),
	})
	if !errors.Is(err, positions.ErrUnknownSymbol) {
		t.Errorf("expected unknown symbol, got %v", err)
	}
}

func TestClose_FlatRoundTrip(t *testing.T) {
	svc, ms, _ := newTestEnv(t)
	seedUser(t, ms, "user1")

	p, err := svc.Open(context.Background(), positions.OpenRequest{
		UserID: "user1", Symbol: "BTC/USD", Side: types.PositionSideLong,
		Size: d("1000"), Leverage: d("10"),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	// Price unchanged: only the open fee is lost.
	res, err := svc.Close(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !res.RealizedPnL.IsZero() {
		t.Errorf("pnl should be zero, got %s", res.RealizedPnL)
	}
	if !res.Payout.Equal(d("100")) {
		t.Errorf("payout should equal collateral, got %s", res.Payout)
	}
	if got := usdc(t, ms, "user1"); !got.Equal(d("9999")) {
		t.Errorf("USDC should be 9999 after round trip, got %s", got)
	}
}

func TestClose_Profit(t *testing.T) {
	svc, ms, quoter := newTestEnv(t)
	seedUser(t, ms, "user1")

	p, err := svc.Open(context.Background(), positions.OpenRequest{
		UserID: "user1", Symbol: "BTC/USD", Side: types.PositionSideLong,
		Size: d("1000"), Leverage: d("10"),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	quoter.prices["BTC/USD"] = d("110")

	res, err := svc.Close(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !res.RealizedPnL.Equal(d("100")) {
		t.Errorf("pnl should be +100, got %s", res.RealizedPnL)
	}
	if !res.Payout.Equal(d("200")) {
		t.Errorf("payout should be 200, got %s", res.Payout)
	}
	if got := usdc(t, ms, "user1"); !got.Equal(d("10099")) {
		t.Errorf("USDC should be 10099, got %s", got)
	}
}

func TestClose_LossBeyondMarginPaysNothing(t *testing.T) {
	svc, ms, quoter := newTestEnv(t)
	seedUser(t, ms, "user1")

	p, err := svc.Open(context.Background(), positions.OpenRequest{
		UserID: "user1", Symbol: "BTC/USD", Side: types.PositionSideLong,
		Size: d("1000"), Leverage: d("10"),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	// -50% on 1000 notional wipes the 100 collateral several times over.
	quoter.prices["BTC/USD"] = d("50")

	res, err := svc.Close(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if !res.Payout.IsZero() {
		t.Errorf("payout should be floored at zero, got %s", res.Payout)
	}
	if !res.RealizedPnL.Equal(d("-500")) {
		t.Errorf("pnl should be -500, got %s", res.RealizedPnL)
	}
	// The balance never goes below the post-open level.
	if got := usdc(t, ms, "user1"); !got.Equal(d("9899")) {
		t.Errorf("USDC should stay at 9899, got %s", got)
	}
}

func TestClose_TwiceFails(t *testing.T) {
	svc, ms, _ := newTestEnv(t)
	seedUser(t, ms, "user1")

	p, err := svc.Open(context.Background(), positions.OpenRequest{
		UserID: "user1", Symbol: "BTC/USD", Side: types.PositionSideLong,
		Size: d("1000"), Leverage: d("10"),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := svc.Close(context.Background(), p.ID); err != nil {
		t.Fatalf("first close: %v", err)
	}

	_, err = svc.Close(context.Background(), p.ID)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second close should report not found, got %v", err)
	}

	// No double credit.
	if got := usdc(t, ms, "user1"); !got.Equal(d("9999")) {
		t.Errorf("USDC should be 9999, got %s", got)
	}
}

func TestList_MarksUnrealizedPnL(t *testing.T) {
	svc, ms, quoter := newTestEnv(t)
	seedUser(t, ms, "user1")

	if _, err := svc.Open(context.Background(), positions.OpenRequest{
		UserID: "user1", Symbol: "BTC/USD", Side: types.PositionSideShort,
		Size: d("1000"), Leverage: d("4"),
	}); err != nil {
		t.Fatalf("open: %v", err)
	}

	quoter.prices["BTC/USD"] = d("110")

	list, err := svc.List(context.Background(), "user1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 position, got %d", len(list))
	}
	if !list[0].UnrealizedPnL.Equal(d("-100")) {
		t.Errorf("short pnl should be -100 after +10%% move, got %s", list[0].UnrealizedPnL)
	}
}
