package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"shibau-trading/internal/model"
)

// DefaultBalances returns the starting balance map granted to every new
// user of the simulation.
func DefaultBalances() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"BTC":   decimal.RequireFromString("0.1"),
		"ETH":   decimal.RequireFromString("2.5"),
		"USDC":  decimal.RequireFromString("10000"),
		"USDT":  decimal.RequireFromString("10000"),
		"SHIBA": decimal.RequireFromString("1000000"),
	}
}

// Seed loads the initial market rows and liquidity pools into a store.
// Prices here are only the opening state; the price source overwrites
// them as soon as it starts publishing.
func Seed(ctx context.Context, s Store) error {
	now := time.Now().UTC()

	markets := []model.MarketData{
		{
			Symbol:             "BTC/USD",
			Price:              decimal.RequireFromString("67235.42"),
			Change24h:          decimal.RequireFromString("2.34"),
			Volume24h:          decimal.RequireFromString("28400000000"),
			High24h:            decimal.RequireFromString("68102.00"),
			Low24h:             decimal.RequireFromString("65987.13"),
			OpenInterest:       decimal.RequireFromString("18200000000"),
			AvailableLiquidity: decimal.RequireFromString("425000000"),
			FundingRate:        decimal.RequireFromString("0.0001"),
			UpdatedAt:          now,
		},
		{
			Symbol:             "ETH/USD",
			Price:              decimal.RequireFromString("3421.67"),
			Change24h:          decimal.RequireFromString("-1.12"),
			Volume24h:          decimal.RequireFromString("14100000000"),
			High24h:            decimal.RequireFromString("3498.20"),
			Low24h:             decimal.RequireFromString("3389.04"),
			OpenInterest:       decimal.RequireFromString("9600000000"),
			AvailableLiquidity: decimal.RequireFromString("310000000"),
			FundingRate:        decimal.RequireFromString("0.00008"),
			UpdatedAt:          now,
		},
		{
			Symbol:             "USDC/USD",
			Price:              decimal.RequireFromString("1.00"),
			Change24h:          decimal.RequireFromString("0.00"),
			Volume24h:          decimal.RequireFromString("5200000000"),
			High24h:            decimal.RequireFromString("1.0003"),
			Low24h:             decimal.RequireFromString("0.9997"),
			OpenInterest:       decimal.Zero,
			AvailableLiquidity: decimal.RequireFromString("890000000"),
			FundingRate:        decimal.Zero,
			UpdatedAt:          now,
		},
		{
			Symbol:             "SHIBA/USD",
			Price:              decimal.RequireFromString("0.000024"),
			Change24h:          decimal.RequireFromString("5.67"),
			Volume24h:          decimal.RequireFromString("480000000"),
			High24h:            decimal.RequireFromString("0.0000251"),
			Low24h:             decimal.RequireFromString("0.0000227"),
			OpenInterest:       decimal.RequireFromString("120000000"),
			AvailableLiquidity: decimal.RequireFromString("64000000"),
			FundingRate:        decimal.RequireFromString("0.00015"),
			UpdatedAt:          now,
		},
	}
	for i := range markets {
		if err := s.UpsertMarketData(ctx, &markets[i]); err != nil {
			return err
		}
	}

	pools := []model.LiquidityPool{
		{
			ID:   "slp",
			Name: "ShibaU Liquidity Pool",
			TVL:  decimal.RequireFromString("89400000"),
			APR:  decimal.RequireFromString("12.4"),
			Composition: map[string]decimal.Decimal{
				"BTC":  decimal.RequireFromString("40"),
				"ETH":  decimal.RequireFromString("35"),
				"USDC": decimal.RequireFromString("25"),
			},
		},
		{
			ID:   "shiba-eth",
			Name: "SHIBA-ETH",
			TVL:  decimal.RequireFromString("34200000"),
			APR:  decimal.RequireFromString("18.7"),
			Composition: map[string]decimal.Decimal{
				"SHIBA": decimal.RequireFromString("50"),
				"ETH":   decimal.RequireFromString("50"),
			},
		},
	}
	for i := range pools {
		if err := s.CreatePool(ctx, &pools[i]); err != nil {
			return err
		}
	}

	return nil
}
