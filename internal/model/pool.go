package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type LiquidityPool struct {
	ID          string                     `json:"id"`
	Name        string                     `json:"name"`
	TVL         decimal.Decimal            `json:"tvl"`
	APR         decimal.Decimal            `json:"apr"`
	Composition map[string]decimal.Decimal `json:"composition"`
}

type UserLiquidity struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	PoolID    string          `json:"poolId"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"createdAt"`
}

type StakingPosition struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	PoolID    string          `json:"poolId,omitempty"`
	Token     string          `json:"token"`
	Amount    decimal.Decimal `json:"amount"`
	APR       decimal.Decimal `json:"apr"`
	CreatedAt time.Time       `json:"createdAt"`
}
