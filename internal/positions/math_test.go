package positions_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"shibau-trading/internal/positions"
	"shibau-trading/internal/types"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCollateral(t *testing.T) {
	got := positions.Collateral(d("1000"), d("10"))
	if !got.Equal(d("100")) {
		t.Errorf("collateral for 1000 at 10x should be 100, got %s", got)
	}
}

func TestLiquidationPrice_Long(t *testing.T) {
	// 10x long at 100: 90% of the 10% margin is gone at 91.
	got := positions.LiquidationPrice(types.PositionSideLong, d("100"), d("10"))
	if !got.Equal(d("91")) {
		t.Errorf("expected 91, got %s", got)
	}
}

func TestLiquidationPrice_Short(t *testing.T) {
	got := positions.LiquidationPrice(types.PositionSideShort, d("100"), d("10"))
	if !got.Equal(d("109")) {
		t.Errorf("expected 109, got %s", got)
	}
}

func TestLiquidationPrice_OneX(t *testing.T) {
	// At 1x a long liquidates only when the price loses 90% of entry.
	got := positions.LiquidationPrice(types.PositionSideLong, d("100"), d("1"))
	if !got.Equal(d("10")) {
		t.Errorf("expected 10, got %s", got)
	}
}

func TestUnrealizedPnL_Long(t *testing.T) {
	got := positions.UnrealizedPnL(types.PositionSideLong, d("100"), d("110"), d("1000"))
	if !got.Equal(d("100")) {
		t.Errorf("expected +100, got %s", got)
	}
}

func TestUnrealizedPnL_Short(t *testing.T) {
	got := positions.UnrealizedPnL(types.PositionSideShort, d("100"), d("110"), d("1000"))
	if !got.Equal(d("-100")) {
		t.Errorf("expected -100, got %s", got)
	}
}

func TestUnrealizedPnL_LongDown(t *testing.T) {
	got := positions.UnrealizedPnL(types.PositionSideLong, d("100"), d("95"), d("1000"))
	if !got.Equal(d("-50")) {
		t.Errorf("expected -50, got %s", got)
	}
}

func TestUnrealizedPnL_ZeroEntry(t *testing.T) {
	got := positions.UnrealizedPnL(types.PositionSideLong, decimal.Zero, d("100"), d("1000"))
	if !got.IsZero() {
		t.Errorf("zero entry should mark flat, got %s", got)
	}
}

func TestOpenFee(t *testing.T) {
	got := positions.OpenFee(d("1000"))
	if !got.Equal(d("1")) {
		t.Errorf("fee on 1000 notional should be 1, got %s", got)
	}
}
