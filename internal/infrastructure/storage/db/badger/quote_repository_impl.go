package dbbadger

import (
	"context"

	"github.com/dgraph-io/badger/v3"
	"github.com/timshannon/badgerhold/v4"

	"github.com/crosswap-network/crosswap-daemon/internal/core/domain"
)

type quoteRepositoryImpl struct {
	db *DbManager
}

func NewQuoteRepositoryImpl(db *DbManager) domain.QuoteRepository {
	return quoteRepositoryImpl{
		db: db,
	}
}

func (q quoteRepositoryImpl) AddQuote(
	ctx context.Context,
	quote *domain.Quote,
	depositAddress *domain.DepositAddress,
) error {
	// Both records go through the same badger transaction so that a quote
	// never lands without its bound deposit address.
	return q.db.Store.Badger().Update(func(tx *badger.Txn) error {
		if err := q.db.Store.TxInsert(tx, quote.Id, quote); err != nil {
			return err
		}
		if depositAddress != nil {
			return q.db.Store.TxInsert(
				tx, depositAddress.Address, depositAddress,
			)
		}
		return nil
	})
}

func (q quoteRepositoryImpl) GetQuote(
	ctx context.Context,
	quoteId string,
) (*domain.Quote, error) {
	var quote domain.Quote
	if err := q.db.Store.Get(quoteId, &quote); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrQuoteNotFound
		}
		return nil, err
	}
	return &quote, nil
}

func (q quoteRepositoryImpl) GetAllQuotes(
	ctx context.Context,
) ([]*domain.Quote, error) {
	var qs []domain.Quote
	if err := q.db.Store.Find(&qs, nil); err != nil {
		return nil, err
	}

	quotes := make([]*domain.Quote, 0, len(qs))
	for i := range qs {
		quotes = append(quotes, &qs[i])
	}
	return quotes, nil
}
