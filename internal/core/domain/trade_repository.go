package domain

import "context"

// TradeRepository is the abstraction for any kind of database intended to
// persist Trades.
type TradeRepository interface {
	// AddTrade persists a new trade. It returns ErrTradeAlreadyExists if a
	// trade referencing the same quote is already stored, relying on the
	// unique index on the quote id.
	AddTrade(ctx context.Context, trade *Trade) error
	// GetTrade returns the trade with the given id.
	GetTrade(ctx context.Context, tradeId string) (*Trade, error)
	// GetTradeByQuoteId returns the trade referencing the given quote, or
	// ErrTradeNotFound if the quote has never been executed.
	GetTradeByQuoteId(ctx context.Context, quoteId string) (*Trade, error)
	// GetAllTrades returns all the trades stored in the repository.
	GetAllTrades(ctx context.Context) ([]*Trade, error)
	// UpdateTrade allows to commit multiple changes to the same trade in a
	// transactional way.
	UpdateTrade(
		ctx context.Context,
		tradeId string,
		updateFn func(t *Trade) (*Trade, error),
	) error
}
