package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"shibau-trading/internal/types"
)

const (
	coinCapURL       = "https://api.coincap.io/v2/assets?ids=bitcoin,ethereum,shiba-inu"
	cryptoCompareURL = "https://min-api.cryptocompare.com/data/pricemultifull?fsyms=BTC,ETH,SHIB&tsyms=USD"

	fetchTimeout = 10 * time.Second
	cacheTTL     = 15 * time.Second

	// After this many consecutive chain failures the source reports
	// DISCONNECTED and serves the static fallback table.
	maxFailures = 3
)

// fallbackPrices keeps market data readable when every upstream is down.
func fallbackPrices() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"BTC/USD":   decimal.RequireFromString("107000.00"),
		"ETH/USD":   decimal.RequireFromString("3500.00"),
		"USDC/USD":  decimal.RequireFromString("1.00"),
		"SHIBA/USD": decimal.RequireFromString("0.00002200"),
	}
}

// ProviderChain fetches live prices from CoinCap, falling back to
// CryptoCompare, falling back to a static table. Results are cached for
// cacheTTL, and a connectivity status machine tracks whether anything
// upstream is actually reachable. Prices never returns an error: the
// fallback table masks upstream outages.
type ProviderChain struct {
	client *http.Client

	coinCapURL       string
	cryptoCompareURL string

	mu       sync.Mutex
	cache    map[string]decimal.Decimal
	cachedAt time.Time
	failures int
	status   types.SourceStatus
}

func NewProviderChain() *ProviderChain {
	return &ProviderChain{
		client:           &http.Client{Timeout: fetchTimeout},
		coinCapURL:       coinCapURL,
		cryptoCompareURL: cryptoCompareURL,
		status:           types.SourceConnecting,
	}
}

// NewProviderChainWithURLs is used by tests to point at stub servers.
func NewProviderChainWithURLs(client *http.Client, coinCap, cryptoCompare string) *ProviderChain {
	p := NewProviderChain()
	if client != nil {
		p.client = client
	}
	p.coinCapURL = coinCap
	p.cryptoCompareURL = cryptoCompare
	return p
}

func (p *ProviderChain) Status() types.SourceStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Prices returns the current USD price per symbol.
func (p *ProviderChain) Prices(ctx context.Context) map[string]decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cache != nil && time.Since(p.cachedAt) < cacheTTL {
		return copyPrices(p.cache)
	}

	if p.status != types.SourceConnected {
		p.status = types.SourceConnecting
	}

	prices, err := p.fetchCoinCap(ctx)
	if err != nil {
		slog.Warn("coincap fetch failed", "error", err)
		prices, err = p.fetchCryptoCompare(ctx)
	}
	if err != nil {
		slog.Warn("cryptocompare fetch failed", "error", err)
		p.failures++
		if p.failures >= maxFailures {
			p.status = types.SourceDisconnected
		}
		if p.cache != nil {
			// Stale beats static while the outage is fresh.
			return copyPrices(p.cache)
		}
		return fallbackPrices()
	}

	// USDC has no upstream feed and is pinned to 1.00.
	prices["USDC/USD"] = decimal.RequireFromString("1.00")

	p.failures = 0
	p.status = types.SourceConnected
	p.cache = prices
	p.cachedAt = time.Now()
	return copyPrices(prices)
}

type coinCapResponse struct {
	Data []struct {
		ID       string `json:"id"`
		PriceUSD string `json:"priceUsd"`
	} `json:"data"`
}

var coinCapSymbols = map[string]string{
	"bitcoin":   "BTC/USD",
	"ethereum":  "ETH/USD",
	"shiba-inu": "SHIBA/USD",
}

func (p *ProviderChain) fetchCoinCap(ctx context.Context) (map[string]decimal.Decimal, error) {
	var body coinCapResponse
	if err := p.getJSON(ctx, p.coinCapURL, &body); err != nil {
		return nil, err
	}
	prices := make(map[string]decimal.Decimal)
	for _, asset := range body.Data {
		symbol, ok := coinCapSymbols[asset.ID]
		if !ok {
			continue
		}
		price, err := decimal.NewFromString(asset.PriceUSD)
		if err != nil {
			continue
		}
		prices[symbol] = price
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("coincap returned no usable assets")
	}
	return prices, nil
}

type cryptoCompareResponse struct {
	Raw map[string]map[string]struct {
		Price float64 `json:"PRICE"`
	} `json:"RAW"`
}

var cryptoCompareSymbols = map[string]string{
	"BTC":  "BTC/USD",
	"ETH":  "ETH/USD",
	"SHIB": "SHIBA/USD",
}

func (p *ProviderChain) fetchCryptoCompare(ctx context.Context) (map[string]decimal.Decimal, error) {
	var body cryptoCompareResponse
	if err := p.getJSON(ctx, p.cryptoCompareURL, &body); err != nil {
		return nil, err
	}
	prices := make(map[string]decimal.Decimal)
	for fsym, quotes := range body.Raw {
		symbol, ok := cryptoCompareSymbols[fsym]
		if !ok {
			continue
		}
		usd, ok := quotes["USD"]
		if !ok {
			continue
		}
		prices[symbol] = decimal.NewFromFloat(usd.Price)
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("cryptocompare returned no usable quotes")
	}
	return prices, nil
}

func (p *ProviderChain) getJSON(ctx context.Context, url string, v any) error {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func copyPrices(in map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
