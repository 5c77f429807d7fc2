package bitfinexliquidity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"github.com/crosswap-network/crosswap-daemon/internal/core/ports"
)

const (
	// BitfinexAPIURL is the base url of the bitfinex public REST API.
	BitfinexAPIURL = "https://api-pub.bitfinex.com"

	sourceName = "bitfinex"
	bookDepth  = 100
)

type service struct {
	apiURL          string
	client          *http.Client
	cb              *gobreaker.CircuitBreaker
	tickerForSymbol map[string]string
}

// NewService returns a bitfinex order book source. tickerForSymbol maps the
// internal market symbols to bitfinex tickers, eg. "BTC/USDT" -> "tBTCUST".
func NewService(
	apiURL string, requestTimeout time.Duration, tickerForSymbol map[string]string,
) ports.LiquiditySource {
	if apiURL == "" {
		apiURL = BitfinexAPIURL
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: sourceName,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &service{
		apiURL:          apiURL,
		client:          &http.Client{Timeout: requestTimeout},
		cb:              cb,
		tickerForSymbol: tickerForSymbol,
	}
}

func (s *service) Name() string {
	return sourceName
}

func (s *service) GetOrderBook(
	ctx context.Context, symbol string,
) (*ports.OrderBook, error) {
	ticker, ok := s.tickerForSymbol[symbol]
	if !ok {
		return nil, fmt.Errorf("no bitfinex ticker mapped for symbol %s", symbol)
	}

	endpoint := fmt.Sprintf(
		"%s/v2/book/%s/P0?len=%d", s.apiURL, ticker, bookDepth,
	)
	body, err := s.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	// Each entry is a [price, count, amount] triplet: a positive amount is
	// a bid, a negative one an ask.
	var entries [][]json.Number
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, err
	}

	book := &ports.OrderBook{
		Bids: make([]ports.BookLevel, 0, len(entries)),
		Asks: make([]ports.BookLevel, 0, len(entries)),
	}
	for _, entry := range entries {
		if len(entry) < 3 {
			continue
		}
		price, err := decimal.NewFromString(entry[0].String())
		if err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(entry[2].String())
		if err != nil {
			return nil, err
		}
		if amount.IsPositive() {
			book.Bids = append(book.Bids, ports.BookLevel{
				Price: price, Amount: amount,
			})
			continue
		}
		book.Asks = append(book.Asks, ports.BookLevel{
			Price: price, Amount: amount.Neg(),
		})
	}
	return book, nil
}

func (s *service) get(ctx context.Context, endpoint string) ([]byte, error) {
	body, err := s.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf(
				"unexpected status %d: %s", resp.StatusCode, string(data),
			)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return body.([]byte), nil
}
