package model

import (
	"time"

	"shibau-trading/internal/types"

	"github.com/shopspring/decimal"
)

// Order is a resting order. Orders are never matched or filled in this
// simulation, they stay PENDING until the user cancels them.
type Order struct {
	ID           string            `json:"id"`
	UserID       string            `json:"userId"`
	Symbol       string            `json:"symbol"`
	Side         types.OrderSide   `json:"side"`
	Type         types.OrderType   `json:"type"`
	Size         decimal.Decimal   `json:"size"`
	Price        *decimal.Decimal  `json:"price,omitempty"`
	TriggerPrice *decimal.Decimal  `json:"triggerPrice,omitempty"`
	Leverage     decimal.Decimal   `json:"leverage"`
	Status       types.OrderStatus `json:"status"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// Trade is an append-only execution record. Trades are written when a
// position opens and when a swap executes.
type Trade struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Symbol    string          `json:"symbol"`
	Type      types.TradeType `json:"type"`
	Side      string          `json:"side"`
	Size      decimal.Decimal `json:"size"`
	Price     decimal.Decimal `json:"price"`
	Fee       decimal.Decimal `json:"fee"`
	CreatedAt time.Time       `json:"createdAt"`
}
