package inmemory

import (
	"context"
	"sync"

	"github.com/crosswap-network/crosswap-daemon/internal/core/domain"
)

// quoteInmemoryStore is shared between the quote and the deposit address
// repository so that AddQuote can write both records under one lock.
type quoteInmemoryStore struct {
	quotes    map[string]domain.Quote
	addresses map[string]domain.DepositAddress
	locker    *sync.Mutex
}

func newQuoteInmemoryStore() *quoteInmemoryStore {
	return &quoteInmemoryStore{
		quotes:    map[string]domain.Quote{},
		addresses: map[string]domain.DepositAddress{},
		locker:    &sync.Mutex{},
	}
}

type quoteRepositoryImpl struct {
	store *quoteInmemoryStore
}

// NewQuoteRepositoryImpl returns a new inmemory QuoteRepository implementation.
func NewQuoteRepositoryImpl(store *quoteInmemoryStore) domain.QuoteRepository {
	return &quoteRepositoryImpl{store}
}

func (r quoteRepositoryImpl) AddQuote(
	_ context.Context,
	quote *domain.Quote,
	depositAddress *domain.DepositAddress,
) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	r.store.quotes[quote.Id] = *quote
	if depositAddress != nil {
		r.store.addresses[depositAddress.Address] = *depositAddress
	}
	return nil
}

func (r quoteRepositoryImpl) GetQuote(
	_ context.Context, quoteId string,
) (*domain.Quote, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	quote, ok := r.store.quotes[quoteId]
	if !ok {
		return nil, domain.ErrQuoteNotFound
	}
	return &quote, nil
}

func (r quoteRepositoryImpl) GetAllQuotes(
	_ context.Context,
) ([]*domain.Quote, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	quotes := make([]*domain.Quote, 0, len(r.store.quotes))
	for id := range r.store.quotes {
		quote := r.store.quotes[id]
		quotes = append(quotes, &quote)
	}
	return quotes, nil
}
