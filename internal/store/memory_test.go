package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"shibau-trading/internal/model"
	"shibau-trading/internal/store"
	"shibau-trading/internal/types"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedUser(t *testing.T, ms *store.MemoryStore) *model.User {
	t.Helper()
	u := &model.User{
		ID:        "user1",
		Address:   "0xUser1",
		Balances:  store.DefaultBalances(),
		CreatedAt: time.Now().UTC(),
	}
	if err := ms.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func TestCreateUser_DuplicateAddress(t *testing.T) {
	ms := store.NewMemoryStore()
	seedUser(t, ms)

	dup := &model.User{ID: "user2", Address: "0xUSER1", Balances: store.DefaultBalances()}
	err := ms.CreateUser(context.Background(), dup)
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("address match should be case-insensitive, got %v", err)
	}
}

func TestApplyBalanceDeltas_AllOrNothing(t *testing.T) {
	ms := store.NewMemoryStore()
	seedUser(t, ms)

	// The USDC credit is fine, the ETH debit is not. Neither may land.
	_, err := ms.ApplyBalanceDeltas(context.Background(), "user1", map[string]decimal.Decimal{
		"USDC": d("5000"),
		"ETH":  d("-10"),
	})
	if !errors.Is(err, store.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}

	balances, _ := ms.GetBalances(context.Background(), "user1")
	if !balances["USDC"].Equal(d("10000")) {
		t.Errorf("USDC should be untouched, got %s", balances["USDC"])
	}
	if !balances["ETH"].Equal(d("2.5")) {
		t.Errorf("ETH should be untouched, got %s", balances["ETH"])
	}
}

func TestApplyBalanceDeltas_ExactlyToZero(t *testing.T) {
	ms := store.NewMemoryStore()
	seedUser(t, ms)

	balances, err := ms.ApplyBalanceDeltas(context.Background(), "user1", map[string]decimal.Decimal{
		"USDC": d("-10000"),
	})
	if err != nil {
		t.Fatalf("draining to exactly zero should succeed: %v", err)
	}
	if !balances["USDC"].IsZero() {
		t.Errorf("USDC should be 0, got %s", balances["USDC"])
	}
}

func TestApplyBalanceDeltas_UnknownUser(t *testing.T) {
	ms := store.NewMemoryStore()

	_, err := ms.ApplyBalanceDeltas(context.Background(), "nobody", map[string]decimal.Decimal{
		"USDC": d("1"),
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestGetBalances_ReturnsCopy(t *testing.T) {
	ms := store.NewMemoryStore()
	seedUser(t, ms)

	balances, _ := ms.GetBalances(context.Background(), "user1")
	balances["USDC"] = d("0")

	again, _ := ms.GetBalances(context.Background(), "user1")
	if !again["USDC"].Equal(d("10000")) {
		t.Errorf("mutating the returned map must not leak into the store, got %s", again["USDC"])
	}
}

func TestClosePosition_OnlyOnce(t *testing.T) {
	ms := store.NewMemoryStore()

	p := &model.Position{
		ID:     "pos1",
		UserID: "user1",
		Symbol: "BTC/USD",
		Side:   types.PositionSideLong,
		IsOpen: true,
	}
	if err := ms.CreatePosition(context.Background(), p); err != nil {
		t.Fatalf("create position: %v", err)
	}

	now := time.Now().UTC()
	if err := ms.ClosePosition(context.Background(), "pos1", now); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := ms.ClosePosition(context.Background(), "pos1", now); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second close should report not found, got %v", err)
	}

	got, _ := ms.GetPosition(context.Background(), "pos1")
	if got.IsOpen {
		t.Error("position should be closed")
	}
	if got.ClosedAt == nil {
		t.Error("closedAt should be set")
	}
}

func TestListOpenPositions_FiltersClosed(t *testing.T) {
	ms := store.NewMemoryStore()

	open := &model.Position{ID: "p1", UserID: "user1", IsOpen: true, CreatedAt: time.Now().UTC()}
	closed := &model.Position{ID: "p2", UserID: "user1", IsOpen: false, CreatedAt: time.Now().UTC()}
	other := &model.Position{ID: "p3", UserID: "user2", IsOpen: true, CreatedAt: time.Now().UTC()}
	for _, p := range []*model.Position{open, closed, other} {
		if err := ms.CreatePosition(context.Background(), p); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	list, err := ms.ListOpenPositions(context.Background(), "user1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != "p1" {
		t.Errorf("expected only p1, got %+v", list)
	}
}

func TestSeed_LoadsMarketsAndPools(t *testing.T) {
	ms := store.NewMemoryStore()
	if err := store.Seed(context.Background(), ms); err != nil {
		t.Fatalf("seed: %v", err)
	}

	markets, err := ms.ListMarketData(context.Background())
	if err != nil {
		t.Fatalf("list markets: %v", err)
	}
	if len(markets) != 4 {
		t.Fatalf("expected 4 market rows, got %d", len(markets))
	}

	btc, err := ms.GetMarketData(context.Background(), "BTC/USD")
	if err != nil {
		t.Fatalf("get BTC/USD: %v", err)
	}
	if !btc.Price.Equal(d("67235.42")) {
		t.Errorf("BTC seed price should be 67235.42, got %s", btc.Price)
	}

	pools, err := ms.ListPools(context.Background())
	if err != nil {
		t.Fatalf("list pools: %v", err)
	}
	if len(pools) != 2 {
		t.Fatalf("expected 2 pools, got %d", len(pools))
	}
	if _, err := ms.GetPool(context.Background(), "slp"); err != nil {
		t.Errorf("slp pool should exist: %v", err)
	}
}

func TestListOrders_SameTimestampIsDeterministic(t *testing.T) {
	ms := store.NewMemoryStore()

	// Records created within the clock's resolution share a CreatedAt;
	// insertion order must still decide the listing.
	at := time.Now().UTC()
	for _, id := range []string{"o1", "o2", "o3"} {
		o := &model.Order{
			ID: id, UserID: "user1", Symbol: "BTC/USD",
			Side: types.OrderSideBuy, Type: types.OrderTypeMarket,
			Size: d("1"), Leverage: d("1"), Status: types.OrderStatusPending,
			CreatedAt: at,
		}
		if err := ms.CreateOrder(context.Background(), o); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	for i := 0; i < 10; i++ {
		list, err := ms.ListOrders(context.Background(), "user1")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 3 {
			t.Fatalf("expected 3 orders, got %d", len(list))
		}
		if list[0].ID != "o3" || list[1].ID != "o2" || list[2].ID != "o1" {
			t.Fatalf("listing should be newest insertion first, got %s %s %s",
				list[0].ID, list[1].ID, list[2].ID)
		}
	}
}

func TestListOpenPositions_SameTimestampIsDeterministic(t *testing.T) {
	ms := store.NewMemoryStore()

	at := time.Now().UTC()
	for _, id := range []string{"p1", "p2", "p3"} {
		p := &model.Position{ID: id, UserID: "user1", IsOpen: true, CreatedAt: at}
		if err := ms.CreatePosition(context.Background(), p); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	for i := 0; i < 10; i++ {
		list, err := ms.ListOpenPositions(context.Background(), "user1")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if list[0].ID != "p3" || list[1].ID != "p2" || list[2].ID != "p1" {
			t.Fatalf("listing should be newest insertion first, got %s %s %s",
				list[0].ID, list[1].ID, list[2].ID)
		}
	}
}

func TestOrderStatusUpdate(t *testing.T) {
	ms := store.NewMemoryStore()

	o := &model.Order{
		ID: "o1", UserID: "user1", Symbol: "BTC/USD",
		Side: types.OrderSideBuy, Type: types.OrderTypeMarket,
		Size: d("1"), Leverage: d("1"), Status: types.OrderStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := ms.CreateOrder(context.Background(), o); err != nil {
		t.Fatalf("create order: %v", err)
	}
	if err := ms.UpdateOrderStatus(context.Background(), "o1", types.OrderStatusCancelled); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, _ := ms.GetOrder(context.Background(), "o1")
	if got.Status != types.OrderStatusCancelled {
		t.Errorf("expected CANCELLED, got %s", got.Status)
	}
	if err := ms.UpdateOrderStatus(context.Background(), "missing", types.OrderStatusCancelled); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
