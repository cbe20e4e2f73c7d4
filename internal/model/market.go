package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type MarketData struct {
	Symbol             string          `json:"symbol"`
	Price              decimal.Decimal `json:"price"`
	Change24h          decimal.Decimal `json:"change24h"`
	Volume24h          decimal.Decimal `json:"volume24h"`
	High24h            decimal.Decimal `json:"high24h"`
	Low24h             decimal.Decimal `json:"low24h"`
	OpenInterest       decimal.Decimal `json:"openInterest"`
	AvailableLiquidity decimal.Decimal `json:"availableLiquidity"`
	FundingRate        decimal.Decimal `json:"fundingRate"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// Candle is one OHLC bar. Time is a unix timestamp in seconds.
type Candle struct {
	Time   int64           `json:"time"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}
