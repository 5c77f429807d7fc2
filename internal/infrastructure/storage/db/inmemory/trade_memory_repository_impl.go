package inmemory

import (
	"context"
	"sync"

	"github.com/crosswap-network/crosswap-daemon/internal/core/domain"
)

type tradeRepositoryImpl struct {
	trades        map[string]domain.Trade
	tradesByQuote map[string]string
	locker        *sync.Mutex
}

// NewTradeRepositoryImpl returns a new inmemory TradeRepository implementation.
func NewTradeRepositoryImpl() domain.TradeRepository {
	return &tradeRepositoryImpl{
		trades:        map[string]domain.Trade{},
		tradesByQuote: map[string]string{},
		locker:        &sync.Mutex{},
	}
}

func (r *tradeRepositoryImpl) AddTrade(
	_ context.Context, trade *domain.Trade,
) error {
	r.locker.Lock()
	defer r.locker.Unlock()

	if _, ok := r.tradesByQuote[trade.QuoteId]; ok {
		return domain.ErrTradeAlreadyExists
	}
	if _, ok := r.trades[trade.Id]; ok {
		return domain.ErrTradeAlreadyExists
	}
	r.trades[trade.Id] = *trade
	r.tradesByQuote[trade.QuoteId] = trade.Id
	return nil
}

func (r *tradeRepositoryImpl) GetTrade(
	_ context.Context, tradeId string,
) (*domain.Trade, error) {
	r.locker.Lock()
	defer r.locker.Unlock()

	return r.getTrade(tradeId)
}

func (r *tradeRepositoryImpl) GetTradeByQuoteId(
	_ context.Context, quoteId string,
) (*domain.Trade, error) {
	r.locker.Lock()
	defer r.locker.Unlock()

	tradeId, ok := r.tradesByQuote[quoteId]
	if !ok {
		return nil, domain.ErrTradeNotFound
	}
	return r.getTrade(tradeId)
}

func (r *tradeRepositoryImpl) GetAllTrades(
	_ context.Context,
) ([]*domain.Trade, error) {
	r.locker.Lock()
	defer r.locker.Unlock()

	trades := make([]*domain.Trade, 0, len(r.trades))
	for id := range r.trades {
		trade := r.trades[id]
		trades = append(trades, &trade)
	}
	return trades, nil
}

func (r *tradeRepositoryImpl) UpdateTrade(
	_ context.Context,
	tradeId string,
	updateFn func(t *domain.Trade) (*domain.Trade, error),
) error {
	r.locker.Lock()
	defer r.locker.Unlock()

	currentTrade, err := r.getTrade(tradeId)
	if err != nil {
		return err
	}

	updatedTrade, err := updateFn(currentTrade)
	if err != nil {
		return err
	}

	r.trades[tradeId] = *updatedTrade
	return nil
}

func (r *tradeRepositoryImpl) getTrade(tradeId string) (*domain.Trade, error) {
	trade, ok := r.trades[tradeId]
	if !ok {
		return nil, domain.ErrTradeNotFound
	}
	return &trade, nil
}
