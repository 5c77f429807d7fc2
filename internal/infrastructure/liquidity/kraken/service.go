package krakenliquidity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"github.com/crosswap-network/crosswap-daemon/internal/core/ports"
)

const (
	// KrakenAPIURL is the base url of the kraken public REST API.
	KrakenAPIURL = "https://api.kraken.com"

	sourceName = "kraken"
	bookDepth  = 100
)

type service struct {
	apiURL        string
	client        *http.Client
	cb            *gobreaker.CircuitBreaker
	pairForSymbol map[string]string
}

// NewService returns a kraken order book source. pairForSymbol maps the
// internal market symbols to kraken pair names, eg. "BTC/USDT" -> "XBTUSDT".
func NewService(
	apiURL string, requestTimeout time.Duration, pairForSymbol map[string]string,
) (ports.LiquiditySource, error) {
	if apiURL == "" {
		apiURL = KrakenAPIURL
	}
	if _, err := url.Parse(apiURL); err != nil {
		return nil, fmt.Errorf("invalid kraken api url: %w", err)
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: sourceName,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &service{
		apiURL:        apiURL,
		client:        &http.Client{Timeout: requestTimeout},
		cb:            cb,
		pairForSymbol: pairForSymbol,
	}, nil
}

func (s *service) Name() string {
	return sourceName
}

func (s *service) GetOrderBook(
	ctx context.Context, symbol string,
) (*ports.OrderBook, error) {
	pair, ok := s.pairForSymbol[symbol]
	if !ok {
		return nil, fmt.Errorf("no kraken pair mapped for symbol %s", symbol)
	}

	endpoint := fmt.Sprintf(
		"%s/0/public/Depth?pair=%s&count=%d", s.apiURL, pair, bookDepth,
	)
	body, err := s.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var resp depthResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Error) > 0 {
		return nil, fmt.Errorf("kraken api error: %s", resp.Error[0])
	}

	// The result is keyed by kraken's canonical pair name, which may differ
	// from the one used in the request.
	for _, book := range resp.Result {
		return parseBook(book)
	}
	return nil, fmt.Errorf("empty order book response for pair %s", pair)
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

type depthResponse struct {
	Error  []string             `json:"error"`
	Result map[string]depthBook `json:"result"`
}

type depthBook struct {
	Asks [][]json.RawMessage `json:"asks"`
	Bids [][]json.RawMessage `json:"bids"`
}

func parseBook(book depthBook) (*ports.OrderBook, error) {
	bids, err := parseLevels(book.Bids)
	if err != nil {
		return nil, err
	}
	asks, err := parseLevels(book.Asks)
	if err != nil {
		return nil, err
	}
	return &ports.OrderBook{Bids: bids, Asks: asks}, nil
}

// parseLevels decodes kraken's [price, volume, timestamp] triplets. Price
// and volume come as strings to preserve precision.
func parseLevels(raw [][]json.RawMessage) ([]ports.BookLevel, error) {
	levels := make([]ports.BookLevel, 0, len(raw))
	for _, entry := range raw {
		if len(entry) < 2 {
			continue
		}
		var priceStr, volumeStr string
		if err := json.Unmarshal(entry[0], &priceStr); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(entry[1], &volumeStr); err != nil {
			return nil, err
		}
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return nil, err
		}
		volume, err := decimal.NewFromString(volumeStr)
		if err != nil {
			return nil, err
		}
		levels = append(levels, ports.BookLevel{Price: price, Amount: volume})
	}
	return levels, nil
}
