package domain

import "context"

// QuoteRepository is the abstraction for any kind of database intended to
// persist Quotes.
type QuoteRepository interface {
	// AddQuote persists a new quote and, if not nil, its bound deposit
	// address in one atomic unit. Persisting the quote without its address
	// (or viceversa) is a correctness violation.
	AddQuote(ctx context.Context, quote *Quote, depositAddress *DepositAddress) error
	// GetQuote returns the quote with the given id, or ErrQuoteNotFound.
	GetQuote(ctx context.Context, quoteId string) (*Quote, error)
	// GetAllQuotes returns all the quotes stored in the repository.
	GetAllQuotes(ctx context.Context) ([]*Quote, error)
}

// DepositAddressRepository is the abstraction for any kind of database
// intended to persist DepositAddresses.
type DepositAddressRepository interface {
	// GetDepositAddress returns the deposit address with the given address
	// string, or ErrDepositAddressNotFound.
	GetDepositAddress(ctx context.Context, address string) (*DepositAddress, error)
	// GetDepositAddressByQuoteId returns the deposit address bound to the
	// given quote.
	GetDepositAddressByQuoteId(ctx context.Context, quoteId string) (*DepositAddress, error)
	// GetAllPendingDepositAddresses returns all the addresses still waiting
	// for an inbound deposit.
	GetAllPendingDepositAddresses(ctx context.Context) ([]*DepositAddress, error)
	// UpdateDepositAddress allows to commit multiple changes to the same
	// deposit address in a transactional way.
	UpdateDepositAddress(
		ctx context.Context,
		address string,
		updateFn func(a *DepositAddress) (*DepositAddress, error),
	) error
}
