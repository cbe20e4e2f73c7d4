package types

import "fmt"

type PositionSide string

type OrderSide string

type OrderType string

type OrderStatus string

type TradeType string

type SourceStatus string

const (
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

const (
	OrderTypeMarket     OrderType = "MARKET"
	OrderTypeLimit      OrderType = "LIMIT"
	OrderTypeStopLoss   OrderType = "STOP_LOSS"
	OrderTypeTakeProfit OrderType = "TAKE_PROFIT"
)

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

const (
	TradeTypeOpen TradeType = "OPEN"
	TradeTypeSwap TradeType = "SWAP"
)

// SourceStatus tracks the price source connection lifecycle.
const (
	SourceConnected    SourceStatus = "CONNECTED"
	SourceConnecting   SourceStatus = "CONNECTING"
	SourceDisconnected SourceStatus = "DISCONNECTED"
)

func ParsePositionSide(s string) (PositionSide, error) {
	switch PositionSide(s) {
	case PositionSideLong, PositionSideShort:
		return PositionSide(s), nil
	}
	return "", fmt.Errorf("invalid position side %q", s)
}

func ParseOrderSide(s string) (OrderSide, error) {
	switch OrderSide(s) {
	case OrderSideBuy, OrderSideSell:
		return OrderSide(s), nil
	}
	return "", fmt.Errorf("invalid order side %q", s)
}

func ParseOrderType(s string) (OrderType, error) {
	switch OrderType(s) {
	case OrderTypeMarket, OrderTypeLimit, OrderTypeStopLoss, OrderTypeTakeProfit:
		return OrderType(s), nil
	}
	return "", fmt.Errorf("invalid order type %q", s)
}
