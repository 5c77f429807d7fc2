package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// BookLevel is one price level of a two-sided order book.
type BookLevel struct {
	Price  decimal.Decimal
	Amount decimal.Decimal
}

// OrderBook is the two-sided book of a liquidity source for one symbol.
// Bids are sorted best (highest price) first, asks best (lowest price) first.
type OrderBook struct {
	Bids []BookLevel
	Asks []BookLevel
}

// LiquiditySource is the common contract of the external venues the quoting
// engine prices conversions against. Implementations live in
// internal/infrastructure/liquidity.
type LiquiditySource interface {
	Name() string
	GetOrderBook(ctx context.Context, symbol string) (*OrderBook, error)
}
