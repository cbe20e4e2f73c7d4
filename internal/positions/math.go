package positions

import (
	"github.com/shopspring/decimal"

	"shibau-trading/internal/types"
)

var one = decimal.NewFromInt(1)

// liquidationBuffer is the fraction of the margin that may be consumed
// before liquidation. At 0.9 a 10x long entered at 100 liquidates at 91.
var liquidationBuffer = decimal.RequireFromString("0.9")

// tradeFeeRate is the flat 10 bps fee charged on notional size at open.
var tradeFeeRate = decimal.RequireFromString("0.001")

// Collateral is the margin locked for a position: size / leverage.
func Collateral(size, leverage decimal.Decimal) decimal.Decimal {
	return size.Div(leverage)
}

// LiquidationPrice returns the price at which 90% of the margin is gone.
// Longs liquidate below entry, shorts above.
func LiquidationPrice(side types.PositionSide, entry, leverage decimal.Decimal) decimal.Decimal {
	step := one.Div(leverage).Mul(liquidationBuffer)
	if side == types.PositionSideShort {
		return entry.Mul(one.Add(step))
	}
	return entry.Mul(one.Sub(step))
}

// UnrealizedPnL marks a position against the current price. The return
// is denominated in USD on the full notional size, so leverage is
// already reflected through the size.
func UnrealizedPnL(side types.PositionSide, entry, current, size decimal.Decimal) decimal.Decimal {
	if entry.IsZero() {
		return decimal.Zero
	}
	pnl := current.Sub(entry).Div(entry).Mul(size)
	if side == types.PositionSideShort {
		return pnl.Neg()
	}
	return pnl
}

// OpenFee is the fee charged when a position opens.
func OpenFee(size decimal.Decimal) decimal.Decimal {
	return size.Mul(tradeFeeRate)
}
