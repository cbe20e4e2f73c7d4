package model

import (
	"time"

	"shibau-trading/internal/types"

	"github.com/shopspring/decimal"
)

// Position is a leveraged long or short. Collateral and the liquidation
// price are fixed at open, unrealized PnL is derived from the current
// mark whenever the position is read.
type Position struct {
	ID               string             `json:"id"`
	UserID           string             `json:"userId"`
	Symbol           string             `json:"symbol"`
	Side             types.PositionSide `json:"side"`
	Size             decimal.Decimal    `json:"size"`
	Leverage         decimal.Decimal    `json:"leverage"`
	Collateral       decimal.Decimal    `json:"collateral"`
	EntryPrice       decimal.Decimal    `json:"entryPrice"`
	LiquidationPrice decimal.Decimal    `json:"liquidationPrice"`
	UnrealizedPnL    decimal.Decimal    `json:"unrealizedPnl"`
	IsOpen           bool               `json:"isOpen"`
	CreatedAt        time.Time          `json:"createdAt"`
	ClosedAt         *time.Time         `json:"closedAt,omitempty"`
}
