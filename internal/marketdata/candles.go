package marketdata

import (
	"errors"
	"math"
	"time"

	"shibau-trading/internal/model"
)

type CandleParams struct {
	Symbol   string
	Interval time.Duration
	Limit    int
	Now      time.Time
}

// Candles generates a deterministic OHLC history for a pair, bucketed
// at the requested interval. The same params always yield the same
// bars, so charts are stable across requests.
func (s *Simulator) Candles(p CandleParams) ([]model.Candle, error) {
	if p.Interval <= 0 {
		return nil, errors.New("invalid interval")
	}
	profile, ok := s.profiles[p.Symbol]
	if !ok {
		return nil, ErrUnknownSymbol
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	now := p.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	step := int64(p.Interval.Seconds())
	end := now.Unix()
	end = end - (end % step)
	start := end - int64(limit-1)*step

	seed := pairSeed(p.Symbol)
	candles := make([]model.Candle, 0, limit)
	price := warmupPrice(profile, p.Symbol, start, step)
	for t := start; t <= end; t += step {
		open := price
		price = evolvePrice(profile, p.Symbol, t, price, step)
		closeP := price
		high, low := wickRange(profile, seed, t, open, closeP)
		volume := syntheticVolume(profile, seed, t)
		candles = append(candles, model.Candle{
			Time:   t,
			Open:   roundTo(open, profile.Prec),
			High:   roundTo(high, profile.Prec),
			Low:    roundTo(low, profile.Prec),
			Close:  roundTo(closeP, profile.Prec),
			Volume: roundTo(volume, 2),
		})
	}
	return candles, nil
}

// warmupPrice runs the walk for a stretch before the window so the
// first visible bar is already settled around the anchor.
func warmupPrice(p PairProfile, symbol string, bucketStart, step int64) float64 {
	origin := bucketStart - step*240
	price := p.Base
	for t := origin; t < bucketStart; t += step {
		price = evolvePrice(p, symbol, t, price, step)
	}
	return price
}

func wickRange(p PairProfile, seed, t int64, open, closeP float64) (float64, float64) {
	vol := p.Vol * 2.0
	h := math.Max(open, closeP) + math.Abs(randNorm(seed+t+11))*vol
	l := math.Min(open, closeP) - math.Abs(randNorm(seed+t+29))*vol
	floor := p.Base * 0.5
	ceiling := p.Base * 1.8
	if h > ceiling {
		h = ceiling
	}
	if l < floor {
		l = floor
	}
	if l > h {
		l = h
	}
	return h, l
}

func syntheticVolume(p PairProfile, seed, t int64) float64 {
	base := p.Base * 1000
	return base * (0.5 + rand01(seed+t+47))
}
