package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"shibau-trading/internal/model"
	"shibau-trading/internal/store"
	"shibau-trading/internal/types"
)

// Source modes.
const (
	SourceSim      = "sim"
	SourceExternal = "external"
)

var ErrUnknownSymbol = errors.New("unknown symbol")

// Adapter is the price source facade. It either advances the simulated
// walk or pulls from the external provider chain, and keeps the market
// rows in the store current. Reads go through the store so REST, swap
// and position pricing all see the same snapshot.
type Adapter struct {
	mode  string
	sim   *Simulator
	chain *ProviderChain
	store store.Store

	mu  sync.Mutex
	ref map[string]decimal.Decimal
}

func NewAdapter(mode string, sim *Simulator, chain *ProviderChain, st store.Store) *Adapter {
	if mode != SourceExternal {
		mode = SourceSim
	}
	return &Adapter{
		mode:  mode,
		sim:   sim,
		chain: chain,
		store: st,
		ref:   make(map[string]decimal.Decimal),
	}
}

// Status reports the upstream connectivity. The simulator is always
// connected; only the external chain can degrade.
func (a *Adapter) Status() types.SourceStatus {
	if a.mode == SourceExternal {
		return a.chain.Status()
	}
	return types.SourceConnected
}

func (a *Adapter) Mode() string { return a.mode }

// Quote returns the current price for a trading pair symbol.
func (a *Adapter) Quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	md, err := a.store.GetMarketData(ctx, symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", symbol, ErrUnknownSymbol)
	}
	return md.Price, nil
}

// PriceUSD resolves a bare token to its USD price. Stablecoins are
// pinned to 1.00, everything else goes through its /USD pair.
func (a *Adapter) PriceUSD(ctx context.Context, token string) (decimal.Decimal, error) {
	token = strings.ToUpper(token)
	if token == "USDC" || token == "USDT" {
		return decimal.RequireFromString("1.00"), nil
	}
	return a.Quote(ctx, token+"/USD")
}

// Snapshot returns the full market data table.
func (a *Adapter) Snapshot(ctx context.Context) ([]model.MarketData, error) {
	return a.store.ListMarketData(ctx)
}

// Refresh advances prices and writes the updated market rows. The 24h
// change is approximated against the first price observed for each
// symbol after startup.
func (a *Adapter) Refresh(ctx context.Context) error {
	now := time.Now().UTC()
	prices := a.currentPrices(ctx, now)

	markets, err := a.store.ListMarketData(ctx)
	if err != nil {
		return err
	}
	for i := range markets {
		md := &markets[i]
		price, ok := prices[md.Symbol]
		if !ok || price.LessThanOrEqual(decimal.Zero) {
			continue
		}

		ref := a.refPrice(md.Symbol, price)
		md.Change24h = price.Sub(ref).Div(ref).Mul(decimal.NewFromInt(100)).Round(2)
		md.Price = price
		if price.GreaterThan(md.High24h) {
			md.High24h = price
		}
		if price.LessThan(md.Low24h) {
			md.Low24h = price
		}
		md.UpdatedAt = now

		if err := a.store.UpsertMarketData(ctx, md); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) currentPrices(ctx context.Context, now time.Time) map[string]decimal.Decimal {
	if a.mode == SourceExternal {
		return a.chain.Prices(ctx)
	}

	prices := make(map[string]decimal.Decimal)
	for _, symbol := range a.sim.Symbols() {
		price, err := a.sim.PriceAt(symbol, now)
		if err != nil {
			slog.Warn("simulated quote failed", "symbol", symbol, "error", err)
			continue
		}
		prices[symbol] = price
	}
	return prices
}

func (a *Adapter) refPrice(symbol string, current decimal.Decimal) decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	if ref, ok := a.ref[symbol]; ok {
		return ref
	}
	a.ref[symbol] = current
	return current
}
