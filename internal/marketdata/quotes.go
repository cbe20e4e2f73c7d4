package marketdata

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// PairProfile tunes the simulated walk for one trading pair. Vol is the
// absolute per-sqrt-second noise amplitude, Trend a slow drift per
// second, Prec the display precision.
type PairProfile struct {
	Base  float64
	Vol   float64
	Trend float64
	Prec  int
}

func defaultProfiles() map[string]PairProfile {
	return map[string]PairProfile{
		"BTC/USD":   {Base: 67235.42, Vol: 22.0, Trend: 0.004, Prec: 2},
		"ETH/USD":   {Base: 3421.67, Vol: 1.4, Trend: 0.0002, Prec: 2},
		"USDC/USD":  {Base: 1.0, Vol: 0.00002, Trend: 0, Prec: 4},
		"SHIBA/USD": {Base: 0.000024, Vol: 0.00000002, Trend: 0, Prec: 8},
	}
}

// Simulator produces deterministic random-walk prices: the price for a
// pair at a given instant is a pure function of (pair, time), so two
// calls agree and tests can pin exact values.
type Simulator struct {
	profiles map[string]PairProfile
	step     int64
}

func NewSimulator(profiles map[string]PairProfile) *Simulator {
	if len(profiles) == 0 {
		profiles = defaultProfiles()
	}
	return &Simulator{profiles: profiles, step: 5}
}

func (s *Simulator) Symbols() []string {
	out := make([]string, 0, len(s.profiles))
	for sym := range s.profiles {
		out = append(out, sym)
	}
	return out
}

// PriceAt evolves the walk from a fixed origin up to t.
func (s *Simulator) PriceAt(symbol string, t time.Time) (decimal.Decimal, error) {
	p, ok := s.profiles[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("pair %s not simulated", symbol)
	}
	bucket := t.UTC().Unix()
	bucket = bucket - (bucket % s.step)

	origin := bucket - s.step*240
	price := p.Base
	for ts := origin; ts <= bucket; ts += s.step {
		price = evolvePrice(p, symbol, ts, price, s.step)
	}
	return roundTo(price, p.Prec), nil
}

// evolvePrice applies one mean-reverting step. The anchor keeps the
// walk orbiting the base price instead of wandering off.
func evolvePrice(p PairProfile, symbol string, t int64, prev float64, step int64) float64 {
	mu := anchorPrice(p, t)
	revert := (mu - prev) * 0.06
	noise := randNorm(pairSeed(symbol) + t) * p.Vol * math.Sqrt(float64(step))
	trend := p.Trend * float64(step)
	price := prev + revert + noise + trend

	floor := p.Base * 0.6
	ceiling := p.Base * 1.6
	if price < floor {
		price = floor + math.Abs(noise)
	}
	if price > ceiling {
		price = ceiling - math.Abs(noise)
	}
	return price
}

func anchorPrice(p PairProfile, t int64) float64 {
	y := float64(t) / 86400.0
	cycle := 1 + 0.004*math.Sin(y/7.0) + 0.002*math.Sin(y/3.3)
	return p.Base * cycle
}

// pairSeed decorrelates the walks of different pairs.
func pairSeed(symbol string) int64 {
	var h int64 = 1469598103934665603
	for _, c := range symbol {
		h ^= int64(c)
		h *= 1099511628211
	}
	return h
}

func randNorm(seed int64) float64 {
	u1 := rand01(seed + 17)
	u2 := rand01(seed + 71)
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

func rand01(seed int64) float64 {
	x := uint64(seed)
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	return float64(x%1000000)/1000000 + 0.000001
}

func roundTo(v float64, prec int) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(int32(prec))
}
