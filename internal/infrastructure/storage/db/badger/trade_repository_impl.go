package dbbadger

import (
	"context"

	"github.com/timshannon/badgerhold/v4"

	"github.com/crosswap-network/crosswap-daemon/internal/core/domain"
)

type tradeRepositoryImpl struct {
	db *DbManager
}

func NewTradeRepositoryImpl(db *DbManager) domain.TradeRepository {
	return tradeRepositoryImpl{
		db: db,
	}
}

func (t tradeRepositoryImpl) AddTrade(
	ctx context.Context,
	trade *domain.Trade,
) error {
	if err := t.db.Store.Insert(trade.Id, trade); err != nil {
		// The unique index on QuoteId rejects a second trade for the same
		// quote, whatever its id.
		if err == badgerhold.ErrUniqueExists || err == badgerhold.ErrKeyExists {
			return domain.ErrTradeAlreadyExists
		}
		return err
	}
	return nil
}

func (t tradeRepositoryImpl) GetTrade(
	ctx context.Context,
	tradeId string,
) (*domain.Trade, error) {
	var trade domain.Trade
	if err := t.db.Store.Get(tradeId, &trade); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrTradeNotFound
		}
		return nil, err
	}
	return &trade, nil
}

func (t tradeRepositoryImpl) GetTradeByQuoteId(
	ctx context.Context,
	quoteId string,
) (*domain.Trade, error) {
	query := badgerhold.Where("QuoteId").Eq(quoteId).Index("QuoteId")

	var trades []domain.Trade
	if err := t.db.Store.Find(&trades, query); err != nil {
		return nil, err
	}
	if len(trades) <= 0 {
		return nil, domain.ErrTradeNotFound
	}
	return &trades[0], nil
}

func (t tradeRepositoryImpl) GetAllTrades(
	ctx context.Context,
) ([]*domain.Trade, error) {
	var tr []domain.Trade
	if err := t.db.Store.Find(&tr, nil); err != nil {
		return nil, err
	}

	trades := make([]*domain.Trade, 0, len(tr))
	for i := range tr {
		trades = append(trades, &tr[i])
	}
	return trades, nil
}

func (t tradeRepositoryImpl) UpdateTrade(
	ctx context.Context,
	tradeId string,
	updateFn func(t *domain.Trade) (*domain.Trade, error),
) error {
	currentTrade, err := t.GetTrade(ctx, tradeId)
	if err != nil {
		return err
	}

	updatedTrade, err := updateFn(currentTrade)
	if err != nil {
		return err
	}

	return t.db.Store.Update(updatedTrade.Id, updatedTrade)
}
