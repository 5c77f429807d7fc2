package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/crosswap-network/crosswap-daemon/internal/core/application"
	"github.com/crosswap-network/crosswap-daemon/internal/core/ports"
	"github.com/crosswap-network/crosswap-daemon/internal/infrastructure/storage/db/inmemory"
)

type testContext struct {
	repos *inmemory.RepoManager
}

func newTestQuoteService(
	t *testing.T, sources []ports.LiquiditySource,
	payoutSvc application.UtxoPayoutService,
) (application.QuoteService, *testContext) {
	t.Helper()

	repos := newTestRepos()
	settlement := newStubSettlement()
	feeSvc := application.NewFeeService(newTestFeeConfig(), settlement)
	if payoutSvc == nil {
		payoutSvc = &stubPayoutService{fee: 1000, txHash: "payout-tx"}
	}

	svc := application.NewQuoteService(
		newTestRegistry(),
		sources,
		feeSvc,
		newStubPricer(),
		&stubWalletService{},
		payoutSvc,
		repos.QuoteRepository(),
		5*time.Minute,
	)
	return svc, &testContext{repos: repos}
}

func TestGetQuoteEvmToEvm(t *testing.T) {
	t.Parallel()

	book := &ports.OrderBook{
		Bids: []ports.BookLevel{
			{Price: decimal.NewFromInt(2500), Amount: decimal.NewFromInt(1)},
			{Price: decimal.NewFromInt(2450), Amount: decimal.NewFromInt(2)},
		},
	}
	svc, tctx := newTestQuoteService(t, []ports.LiquiditySource{
		stubLiquiditySource{name: "kraken", book: book},
	}, nil)

	quote, err := svc.GetQuote(context.Background(), application.QuoteRequest{
		FromAsset:        "ETH",
		FromNetwork:      "ethereum",
		ToAsset:          "USDT",
		Amount:           decimal.NewFromInt(2),
		RecipientAddress: "0xrecipient",
	})
	require.NoError(t, err)
	require.NotNil(t, quote)

	// 1 ETH at 2500 plus 1 ETH at 2450.
	require.True(t, quote.GrossAmount.Equal(decimal.NewFromInt(4950)))
	require.Equal(t, "kraken", quote.LiquiditySource)
	require.True(t, quote.Price.Equal(decimal.NewFromInt(2475)))
	require.True(t, quote.ExchangeFee.Equal(decimal.NewFromFloat(9.9)))
	require.Empty(t, quote.DepositAddress)

	// One receiving option per USDT deployment.
	require.Len(t, quote.ReceivingOptions, 2)
	for _, opt := range quote.ReceivingOptions {
		require.True(t, opt.NetAmount.Equal(quote.NetAmount.Sub(opt.GasCost)))
	}

	expectedNet := quote.GrossAmount.
		Sub(quote.ExchangeFee).
		Sub(quote.PlatformFee).
		Sub(quote.GasCost)
	require.True(t, quote.NetAmount.Equal(expectedNet))
	require.Equal(t, 5*time.Minute, quote.ExpiresAt.Sub(quote.CreatedAt))

	stored, err := tctx.repos.QuoteRepository().GetQuote(
		context.Background(), quote.QuoteId,
	)
	require.NoError(t, err)
	require.True(t, stored.GrossAmount.Equal(quote.GrossAmount))
}

func TestGetQuotePicksBestExecution(t *testing.T) {
	t.Parallel()

	shallowBook := &ports.OrderBook{
		Bids: []ports.BookLevel{
			{Price: decimal.NewFromInt(2510), Amount: decimal.NewFromInt(1)},
			{Price: decimal.NewFromInt(2300), Amount: decimal.NewFromInt(1)},
		},
	}
	deepBook := &ports.OrderBook{
		Bids: []ports.BookLevel{
			{Price: decimal.NewFromInt(2500), Amount: decimal.NewFromInt(2)},
		},
	}
	svc, _ := newTestQuoteService(t, []ports.LiquiditySource{
		stubLiquiditySource{name: "kraken", book: shallowBook},
		stubLiquiditySource{name: "bitfinex", book: deepBook},
	}, nil)

	quote, err := svc.GetQuote(context.Background(), application.QuoteRequest{
		FromAsset:        "ETH",
		FromNetwork:      "ethereum",
		ToAsset:          "USDT",
		Amount:           decimal.NewFromInt(2),
		RecipientAddress: "0xrecipient",
	})
	require.NoError(t, err)

	// kraken fills at 2510+2300=4810, bitfinex at 2x2500=5000.
	require.Equal(t, "bitfinex", quote.LiquiditySource)
	require.True(t, quote.GrossAmount.Equal(decimal.NewFromInt(5000)))
}

func TestGetQuoteToleratesFailedSources(t *testing.T) {
	t.Parallel()

	book := &ports.OrderBook{
		Bids: []ports.BookLevel{
			{Price: decimal.NewFromInt(2500), Amount: decimal.NewFromInt(2)},
		},
	}
	svc, _ := newTestQuoteService(t, []ports.LiquiditySource{
		stubLiquiditySource{name: "kraken", err: errors.New("timeout")},
		stubLiquiditySource{name: "bitfinex", book: book},
	}, nil)

	quote, err := svc.GetQuote(context.Background(), application.QuoteRequest{
		FromAsset:        "ETH",
		FromNetwork:      "ethereum",
		ToAsset:          "USDT",
		Amount:           decimal.NewFromInt(2),
		RecipientAddress: "0xrecipient",
	})
	require.NoError(t, err)
	require.Equal(t, "bitfinex", quote.LiquiditySource)
}

func TestGetQuoteInsufficientLiquidity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		sources []ports.LiquiditySource
	}{
		{
			name: "all_sources_down",
			sources: []ports.LiquiditySource{
				stubLiquiditySource{name: "kraken", err: errors.New("down")},
			},
		},
		{
			name: "book_too_shallow",
			sources: []ports.LiquiditySource{
				stubLiquiditySource{name: "kraken", book: &ports.OrderBook{
					Bids: []ports.BookLevel{
						{Price: decimal.NewFromInt(2500), Amount: decimal.NewFromFloat(0.5)},
					},
				}},
			},
		},
	}

	for i := range tests {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc, _ := newTestQuoteService(t, tt.sources, nil)
			_, err := svc.GetQuote(context.Background(), application.QuoteRequest{
				FromAsset:        "ETH",
				FromNetwork:      "ethereum",
				ToAsset:          "USDT",
				Amount:           decimal.NewFromInt(2),
				RecipientAddress: "0xrecipient",
			})
			require.EqualError(
				t, err, application.ErrInsufficientLiquidity.Error(),
			)
		})
	}
}

func TestGetQuoteUtxoOriginBindsDepositAddress(t *testing.T) {
	t.Parallel()

	book := &ports.OrderBook{
		Bids: []ports.BookLevel{
			{Price: decimal.NewFromInt(60000), Amount: decimal.NewFromInt(1)},
		},
	}
	svc, tctx := newTestQuoteService(t, []ports.LiquiditySource{
		stubLiquiditySource{name: "kraken", book: book},
	}, nil)

	quote, err := svc.GetQuote(context.Background(), application.QuoteRequest{
		FromAsset:        "BTC",
		FromNetwork:      "bitcoin",
		ToAsset:          "USDT",
		ToNetwork:        "ethereum",
		Amount:           decimal.NewFromFloat(0.5),
		RecipientAddress: "0xrecipient",
	})
	require.NoError(t, err)
	require.NotEmpty(t, quote.DepositAddress)

	addr, err := tctx.repos.DepositAddressRepository().GetDepositAddressByQuoteId(
		context.Background(), quote.QuoteId,
	)
	require.NoError(t, err)
	require.Equal(t, quote.DepositAddress, addr.Address)
}

func TestGetQuoteUtxoOriginRequiresRecipient(t *testing.T) {
	t.Parallel()

	svc, _ := newTestQuoteService(t, nil, nil)

	_, err := svc.GetQuote(context.Background(), application.QuoteRequest{
		FromAsset:   "BTC",
		FromNetwork: "bitcoin",
		ToAsset:     "USDT",
		ToNetwork:   "ethereum",
		Amount:      decimal.NewFromFloat(0.5),
	})
	require.EqualError(t, err, application.ErrMissingRecipient.Error())
}

func TestGetQuoteUtxoDestinationDeductsPayoutFee(t *testing.T) {
	t.Parallel()

	// Inverted market: spending USDT consumes the asks of BTC/USDT.
	book := &ports.OrderBook{
		Asks: []ports.BookLevel{
			{Price: decimal.NewFromInt(60000), Amount: decimal.NewFromInt(1)},
		},
	}
	payoutSvc := &stubPayoutService{fee: 1000, txHash: "payout-tx"}
	svc, _ := newTestQuoteService(t, []ports.LiquiditySource{
		stubLiquiditySource{name: "kraken", book: book},
	}, payoutSvc)

	quote, err := svc.GetQuote(context.Background(), application.QuoteRequest{
		FromAsset:        "USDT",
		FromNetwork:      "ethereum",
		ToAsset:          "BTC",
		ToNetwork:        "bitcoin",
		Amount:           decimal.NewFromInt(6000),
		RecipientAddress: "bc1qrecipient",
	})
	require.NoError(t, err)

	require.True(t, quote.GrossAmount.Equal(decimal.NewFromFloat(0.1)))
	expectedNet := quote.GrossAmount.
		Sub(quote.ExchangeFee).
		Sub(quote.PlatformFee).
		Sub(quote.GasCost)
	require.True(t, quote.NetAmount.Equal(expectedNet))
	// The payout fee (1000 sats) is part of the accounted gas cost.
	require.True(
		t, quote.GasCost.GreaterThanOrEqual(decimal.NewFromFloat(0.00001)),
	)
}

func TestGetQuoteInvalidRequests(t *testing.T) {
	t.Parallel()

	svc, _ := newTestQuoteService(t, nil, nil)

	tests := []struct {
		name        string
		req         application.QuoteRequest
		expectedErr error
	}{
		{
			name: "non_positive_amount",
			req: application.QuoteRequest{
				FromAsset:   "ETH",
				FromNetwork: "ethereum",
				ToAsset:     "USDT",
				Amount:      decimal.Zero,
			},
			expectedErr: application.ErrInvalidAmount,
		},
		{
			name: "unknown_network",
			req: application.QuoteRequest{
				FromAsset:   "ETH",
				FromNetwork: "solana",
				ToAsset:     "USDT",
				Amount:      decimal.NewFromInt(1),
			},
			expectedErr: application.ErrUnsupportedNetworkType,
		},
		{
			// A deposit-triggered execution cannot pick a destination later,
			// so UTXO-origin requests must pin one up front.
			name: "utxo_origin_without_destination",
			req: application.QuoteRequest{
				FromAsset:        "BTC",
				FromNetwork:      "bitcoin",
				ToAsset:          "USDT",
				Amount:           decimal.NewFromFloat(0.5),
				RecipientAddress: "0xrecipient",
			},
			expectedErr: application.ErrMissingDestination,
		},
		{
			name: "unknown_market",
			req: application.QuoteRequest{
				FromAsset:        "DOGE",
				FromNetwork:      "ethereum",
				ToAsset:          "USDT",
				Amount:           decimal.NewFromInt(1),
				RecipientAddress: "0xrecipient",
			},
			expectedErr: application.ErrUnsupportedMarket,
		},
	}

	for i := range tests {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := svc.GetQuote(context.Background(), tt.req)
			require.EqualError(t, err, tt.expectedErr.Error())
		})
	}
}
