package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/crosswap-network/crosswap-daemon/internal/core/application"
	"github.com/crosswap-network/crosswap-daemon/internal/core/domain"
	"github.com/crosswap-network/crosswap-daemon/internal/core/ports"
	"github.com/crosswap-network/crosswap-daemon/internal/infrastructure/storage/db/inmemory"
)

type tradeFixture struct {
	repos      *inmemory.RepoManager
	settlement *stubSettlement
	payoutSvc  *stubPayoutService
	pubsub     *recordingPubSub
}

func newTestTradeService(t *testing.T) (application.TradeService, *tradeFixture) {
	t.Helper()

	fixture := &tradeFixture{
		repos:      newTestRepos(),
		settlement: newStubSettlement(),
		payoutSvc:  &stubPayoutService{txHash: "btc-payout-tx"},
		pubsub:     newRecordingPubSub(),
	}
	feeSvc := application.NewFeeService(newTestFeeConfig(), fixture.settlement)

	svc := application.NewTradeService(
		newTestRegistry(),
		feeSvc,
		newStubPricer(),
		fixture.settlement,
		fixture.payoutSvc,
		fixture.repos.QuoteRepository(),
		fixture.repos.TradeRepository(),
		fixture.pubsub,
	)
	return svc, fixture
}

// newStoredQuote persists a valid quote converting 1 ETH into USDT on
// ethereum, with a 25 USDT gas estimate baked into the net amount.
func newStoredQuote(t *testing.T, fixture *tradeFixture) *domain.Quote {
	t.Helper()

	quote := &domain.Quote{
		Id:               "quote-1",
		CreatedAt:        time.Now(),
		ExpiresAt:        time.Now().Add(5 * time.Minute),
		FromAsset:        "ETH",
		FromNetwork:      "ethereum",
		ToAsset:          "USDT",
		ToNetwork:        "ethereum",
		AmountIn:         decimal.NewFromInt(1),
		LiquiditySource:  "kraken",
		Price:            decimal.NewFromInt(2500),
		GrossAmount:      decimal.NewFromInt(2500),
		ExchangeFee:      decimal.NewFromInt(5),
		PlatformFee:      decimal.NewFromFloat(12.5),
		GasCost:          decimal.NewFromInt(25),
		NetAmount:        decimal.NewFromFloat(2457.5),
		RecipientAddress: "0xrecipient",
	}
	require.NoError(
		t, fixture.repos.QuoteRepository().AddQuote(context.Background(), quote, nil),
	)
	return quote
}

func TestExecuteTrade(t *testing.T) {
	t.Parallel()

	svc, fixture := newTestTradeService(t)
	quote := newStoredQuote(t, fixture)

	notification, err := svc.ExecuteTrade(
		context.Background(), quote.Id, "", "", ports.PermitParams{},
	)
	require.NoError(t, err)
	require.Equal(t, string(domain.TradeStatusCompleted), notification.Status)
	require.Equal(t, "0xsource", notification.SourceTxHash)
	require.Equal(t, "0xdest", notification.DestinationTxHash)

	// The 25 USDT estimate is replaced by the actual cost of the source
	// call: 100000 gas at 50 gwei is 0.005 ETH, worth 12.5 USDT.
	require.Len(t, fixture.settlement.tokenPayouts, 1)
	require.True(
		t, fixture.settlement.tokenPayouts[0].Equal(decimal.NewFromInt(2470)),
	)

	trade, err := fixture.repos.TradeRepository().GetTradeByQuoteId(
		context.Background(), quote.Id,
	)
	require.NoError(t, err)
	require.Equal(t, domain.TradeStatusCompleted, trade.Status)
	require.Equal(t, 1, fixture.pubsub.topicCount(application.TopicTradeCompleted))
}

func TestExecuteTradeRejectsUsedQuote(t *testing.T) {
	t.Parallel()

	svc, fixture := newTestTradeService(t)
	quote := newStoredQuote(t, fixture)

	_, err := svc.ExecuteTrade(context.Background(), quote.Id, "", "", ports.PermitParams{})
	require.NoError(t, err)

	_, err = svc.ExecuteTrade(context.Background(), quote.Id, "", "", ports.PermitParams{})
	require.EqualError(t, err, application.ErrQuoteAlreadyUsed.Error())
	require.Len(t, fixture.settlement.tokenPayouts, 1)
}

func TestExecuteTradeRejectsExpiredQuote(t *testing.T) {
	t.Parallel()

	svc, fixture := newTestTradeService(t)
	quote := newStoredQuote(t, fixture)
	quote.Id = "quote-expired"
	quote.CreatedAt = time.Now().Add(-10 * time.Minute)
	quote.ExpiresAt = time.Now().Add(-5 * time.Minute)
	require.NoError(
		t, fixture.repos.QuoteRepository().AddQuote(context.Background(), quote, nil),
	)

	_, err := svc.ExecuteTrade(context.Background(), quote.Id, "", "", ports.PermitParams{})
	require.EqualError(t, err, application.ErrQuoteExpired.Error())

	trade, _ := fixture.repos.TradeRepository().GetTradeByQuoteId(
		context.Background(), quote.Id,
	)
	require.Nil(t, trade)
}

func TestExecuteTradeUnknownQuote(t *testing.T) {
	t.Parallel()

	svc, _ := newTestTradeService(t)

	_, err := svc.ExecuteTrade(
		context.Background(), "missing", "", "", ports.PermitParams{},
	)
	require.EqualError(t, err, domain.ErrQuoteNotFound.Error())
}

func TestExecuteTradeSettlementFailure(t *testing.T) {
	t.Parallel()

	svc, fixture := newTestTradeService(t)
	quote := newStoredQuote(t, fixture)
	cause := errors.New("execution reverted")
	fixture.settlement.callErr = cause

	_, err := svc.ExecuteTrade(context.Background(), quote.Id, "", "", ports.PermitParams{})
	require.EqualError(t, err, cause.Error())

	trade, err := fixture.repos.TradeRepository().GetTradeByQuoteId(
		context.Background(), quote.Id,
	)
	require.NoError(t, err)
	require.Equal(t, domain.TradeStatusFailed, trade.Status)
	require.Equal(t, cause.Error(), trade.FailureReason)
	require.Equal(t, 1, fixture.pubsub.topicCount(application.TopicTradeFailed))
	require.Equal(t, 0, fixture.pubsub.topicCount(application.TopicTradeCompleted))
}

func TestExecuteTradePayoutFailure(t *testing.T) {
	t.Parallel()

	svc, fixture := newTestTradeService(t)
	quote := newStoredQuote(t, fixture)
	cause := errors.New("rpc unavailable")
	fixture.settlement.payoutErr = cause

	_, err := svc.ExecuteTrade(context.Background(), quote.Id, "", "", ports.PermitParams{})
	require.EqualError(t, err, cause.Error())
	require.Equal(t, 1, fixture.pubsub.topicCount(application.TopicTradeFailed))
}

func TestExecuteTradeUtxoDestination(t *testing.T) {
	t.Parallel()

	svc, fixture := newTestTradeService(t)
	// No gas telemetry on the call result, so the quoted net sticks.
	fixture.settlement.callResult = &ports.CallResult{TxHash: "0xsource"}

	quote := &domain.Quote{
		Id:               "quote-btc",
		CreatedAt:        time.Now(),
		ExpiresAt:        time.Now().Add(5 * time.Minute),
		FromAsset:        "USDT",
		FromNetwork:      "ethereum",
		ToAsset:          "BTC",
		ToNetwork:        "bitcoin",
		AmountIn:         decimal.NewFromInt(6000),
		Price:            decimal.RequireFromString("0.0000166"),
		GrossAmount:      decimal.NewFromFloat(0.1002),
		ExchangeFee:      decimal.NewFromFloat(0.0001),
		PlatformFee:      decimal.NewFromFloat(0.0001),
		NetAmount:        decimal.NewFromFloat(0.1),
		RecipientAddress: "bc1qrecipient",
	}
	require.NoError(
		t, fixture.repos.QuoteRepository().AddQuote(context.Background(), quote, nil),
	)

	notification, err := svc.ExecuteTrade(
		context.Background(), quote.Id, "", "", ports.PermitParams{},
	)
	require.NoError(t, err)
	require.Equal(t, "btc-payout-tx", notification.DestinationTxHash)
	require.Equal(t, []uint64{10000000}, fixture.payoutSvc.payouts)
}

func TestExecuteTradeRejectsNonPositiveNet(t *testing.T) {
	t.Parallel()

	svc, fixture := newTestTradeService(t)
	fixture.settlement.callResult = &ports.CallResult{TxHash: "0xsource"}
	quote := newStoredQuote(t, fixture)
	quote.Id = "quote-zero-net"
	quote.NetAmount = decimal.Zero
	require.NoError(
		t, fixture.repos.QuoteRepository().AddQuote(context.Background(), quote, nil),
	)

	_, err := svc.ExecuteTrade(context.Background(), quote.Id, "", "", ports.PermitParams{})
	require.EqualError(t, err, application.ErrInvalidAmount.Error())

	trade, err := fixture.repos.TradeRepository().GetTradeByQuoteId(
		context.Background(), quote.Id,
	)
	require.NoError(t, err)
	require.Equal(t, domain.TradeStatusFailed, trade.Status)
}

// newOpenQuote persists a quote issued without a pinned destination, the
// multi-option flow where network and recipient arrive at execution time.
func newOpenQuote(t *testing.T, fixture *tradeFixture) *domain.Quote {
	t.Helper()

	quote := newStoredQuote(t, fixture)
	quote.Id = "quote-open"
	quote.ToNetwork = ""
	quote.RecipientAddress = ""
	require.NoError(
		t, fixture.repos.QuoteRepository().AddQuote(context.Background(), quote, nil),
	)
	return quote
}

func TestExecuteTradeChoosesDestinationNetwork(t *testing.T) {
	t.Parallel()

	svc, fixture := newTestTradeService(t)
	quote := newOpenQuote(t, fixture)

	notification, err := svc.ExecuteTrade(
		context.Background(), quote.Id, "polygon", "0xchosen",
		ports.PermitParams{},
	)
	require.NoError(t, err)
	require.Equal(t, string(domain.TradeStatusCompleted), notification.Status)

	// The quoted net only accounted for source gas; choosing polygon at
	// execution time deducts its token-transfer cost on top of swapping the
	// source estimate for the actual 12.5 USDT: 65000 gas at 50 gwei is
	// 0.00325 POL, worth 0.001625 USDT.
	require.Len(t, fixture.settlement.tokenPayouts, 1)
	require.True(
		t,
		fixture.settlement.tokenPayouts[0].Equal(
			decimal.RequireFromString("2469.998375"),
		),
		fixture.settlement.tokenPayouts[0].String(),
	)
	require.Equal(t, []uint64{137}, fixture.settlement.tokenChainIds)
	require.Equal(t, []string{"0xchosen"}, fixture.settlement.tokenRecipients)
}

func TestExecuteTradeAfterOpenQuote(t *testing.T) {
	t.Parallel()

	svc, fixture := newTestTradeService(t)

	// Quote without a destination: the caller sees every receiving option
	// and commits to one, with a recipient, only at execution time.
	book := &ports.OrderBook{
		Bids: []ports.BookLevel{
			{Price: decimal.NewFromInt(2500), Amount: decimal.NewFromInt(2)},
		},
	}
	feeSvc := application.NewFeeService(newTestFeeConfig(), fixture.settlement)
	quoteSvc := application.NewQuoteService(
		newTestRegistry(),
		[]ports.LiquiditySource{stubLiquiditySource{name: "kraken", book: book}},
		feeSvc,
		newStubPricer(),
		&stubWalletService{},
		fixture.payoutSvc,
		fixture.repos.QuoteRepository(),
		5*time.Minute,
	)

	quote, err := quoteSvc.GetQuote(context.Background(), application.QuoteRequest{
		FromAsset:   "ETH",
		FromNetwork: "ethereum",
		ToAsset:     "USDT",
		Amount:      decimal.NewFromInt(1),
	})
	require.NoError(t, err)
	require.Len(t, quote.ReceivingOptions, 2)

	notification, err := svc.ExecuteTrade(
		context.Background(), quote.QuoteId, "polygon", "0xchosen",
		ports.PermitParams{},
	)
	require.NoError(t, err)
	require.Equal(t, string(domain.TradeStatusCompleted), notification.Status)
	require.Equal(t, []uint64{137}, fixture.settlement.tokenChainIds)
	require.Equal(t, []string{"0xchosen"}, fixture.settlement.tokenRecipients)
	require.Len(t, fixture.settlement.tokenPayouts, 1)
	require.True(t, fixture.settlement.tokenPayouts[0].IsPositive())
}

func TestExecuteTradeRejectsUnofferedDestination(t *testing.T) {
	t.Parallel()

	svc, fixture := newTestTradeService(t)
	open := newOpenQuote(t, fixture)
	pinned := newStoredQuote(t, fixture)

	// USDT has no deployment on a UTXO chain, and an open quote only offers
	// its EVM options.
	_, err := svc.ExecuteTrade(
		context.Background(), open.Id, "bitcoin", "bc1qsomeone",
		ports.PermitParams{},
	)
	require.EqualError(t, err, application.ErrDestinationNotOffered.Error())

	// A pinned quote cannot be redirected to another network.
	_, err = svc.ExecuteTrade(
		context.Background(), pinned.Id, "polygon", "",
		ports.PermitParams{},
	)
	require.EqualError(t, err, application.ErrDestinationNotOffered.Error())

	// Rejection happens before any funds move or any trade is recorded.
	require.Equal(t, 0, fixture.settlement.calls)
	for _, id := range []string{open.Id, pinned.Id} {
		trade, _ := fixture.repos.TradeRepository().GetTradeByQuoteId(
			context.Background(), id,
		)
		require.Nil(t, trade)
	}
}

func TestExecuteTradeRequiresDestination(t *testing.T) {
	t.Parallel()

	svc, fixture := newTestTradeService(t)
	quote := newOpenQuote(t, fixture)

	_, err := svc.ExecuteTrade(
		context.Background(), quote.Id, "", "0xchosen", ports.PermitParams{},
	)
	require.EqualError(t, err, application.ErrMissingDestination.Error())
	require.Equal(t, 0, fixture.settlement.calls)
}

func TestExecuteTradeRequiresRecipient(t *testing.T) {
	t.Parallel()

	svc, fixture := newTestTradeService(t)
	quote := newOpenQuote(t, fixture)

	_, err := svc.ExecuteTrade(
		context.Background(), quote.Id, "ethereum", "", ports.PermitParams{},
	)
	require.EqualError(t, err, application.ErrMissingRecipient.Error())
	require.Equal(t, 0, fixture.settlement.calls)

	trade, _ := fixture.repos.TradeRepository().GetTradeByQuoteId(
		context.Background(), quote.Id,
	)
	require.Nil(t, trade)
}

func TestExecuteTradeConfirmationTimeout(t *testing.T) {
	t.Parallel()

	svc, fixture := newTestTradeService(t)
	quote := newStoredQuote(t, fixture)
	cause := errors.New(
		"timed out waiting for confirmation of tx 0xsource",
	)
	fixture.settlement.callErr = cause

	_, err := svc.ExecuteTrade(context.Background(), quote.Id, "", "", ports.PermitParams{})
	require.EqualError(t, err, cause.Error())

	trade, err := fixture.repos.TradeRepository().GetTradeByQuoteId(
		context.Background(), quote.Id,
	)
	require.NoError(t, err)
	require.Equal(t, domain.TradeStatusFailed, trade.Status)
	require.Equal(t, cause.Error(), trade.FailureReason)

	failures := fixture.pubsub.topicMessages(application.TopicTradeFailed)
	require.Len(t, failures, 1)
	require.Contains(t, failures[0], "timed out waiting for confirmation")
}

func TestExecuteNativeSwap(t *testing.T) {
	t.Parallel()

	svc, fixture := newTestTradeService(t)
	quote := newStoredQuote(t, fixture)
	quote.Id = "quote-native"
	require.NoError(
		t, fixture.repos.QuoteRepository().AddQuote(context.Background(), quote, nil),
	)

	notification, err := svc.ExecuteNativeSwap(
		context.Background(), quote.Id, "", "",
		ports.ForwardRequest{From: "0xuser", To: "0xforwarder"},
		[]byte("signature"),
	)
	require.NoError(t, err)
	require.Equal(t, string(domain.TradeStatusCompleted), notification.Status)
	require.Len(t, fixture.settlement.tokenPayouts, 1)
}

func TestExecuteNativeSwapFromEventIsIdempotent(t *testing.T) {
	t.Parallel()

	svc, fixture := newTestTradeService(t)
	// An expired quote must still settle on this path: the deposit already
	// happened on-chain and refusing it would strand the funds.
	quote := newStoredQuote(t, fixture)
	quote.Id = "quote-event"
	quote.CreatedAt = time.Now().Add(-20 * time.Minute)
	quote.ExpiresAt = time.Now().Add(-15 * time.Minute)
	require.NoError(
		t, fixture.repos.QuoteRepository().AddQuote(context.Background(), quote, nil),
	)

	event := ports.SwapEvent{
		QuoteId: quote.Id,
		TxHash:  "0xdeposit",
		Network: "ethereum",
	}
	svc.ExecuteNativeSwapFromEvent(event)
	svc.ExecuteNativeSwapFromEvent(event)

	require.Len(t, fixture.settlement.tokenPayouts, 1)
	require.Equal(t, 1, fixture.pubsub.topicCount(application.TopicTradeCompleted))

	trade, err := fixture.repos.TradeRepository().GetTradeByQuoteId(
		context.Background(), quote.Id,
	)
	require.NoError(t, err)
	require.Equal(t, domain.TradeStatusCompleted, trade.Status)
	require.Equal(t, "0xdeposit", trade.SourceTxHash)
}

func TestExecuteTradeFromDeposit(t *testing.T) {
	t.Parallel()

	svc, fixture := newTestTradeService(t)
	quote := &domain.Quote{
		Id:               "quote-deposit",
		CreatedAt:        time.Now(),
		ExpiresAt:        time.Now().Add(5 * time.Minute),
		FromAsset:        "BTC",
		FromNetwork:      "bitcoin",
		ToAsset:          "USDT",
		ToNetwork:        "ethereum",
		AmountIn:         decimal.NewFromFloat(0.01),
		Price:            decimal.NewFromInt(60000),
		GrossAmount:      decimal.NewFromInt(600),
		ExchangeFee:      decimal.NewFromFloat(1.2),
		PlatformFee:      decimal.NewFromInt(3),
		NetAmount:        decimal.NewFromFloat(595.8),
		RecipientAddress: "0xrecipient",
		DepositAddress:   "bc1qdeposit",
	}
	address := domain.NewDepositAddress(
		"bc1qdeposit", "m/84'/0'/0'/0/0", "bitcoin", quote.Id,
	)
	require.NoError(
		t, fixture.repos.QuoteRepository().AddQuote(
			context.Background(), quote, address,
		),
	)
	require.NoError(t, address.Confirm("btc-deposit-tx", 1000000))

	require.NoError(t, svc.ExecuteTradeFromDeposit(context.Background(), address))

	// Gross is recomputed from the 0.01 BTC actually received at the locked
	// price, then the quoted fee rates are reapplied: 600 - 1.2 - 3.
	require.Len(t, fixture.settlement.tokenPayouts, 1)
	require.True(
		t, fixture.settlement.tokenPayouts[0].Equal(decimal.NewFromFloat(595.8)),
	)

	trade, err := fixture.repos.TradeRepository().GetTradeByQuoteId(
		context.Background(), quote.Id,
	)
	require.NoError(t, err)
	require.Equal(t, domain.TradeStatusCompleted, trade.Status)
	require.Equal(t, "btc-deposit-tx", trade.SourceTxHash)

	// Redelivery is a no-op.
	require.NoError(t, svc.ExecuteTradeFromDeposit(context.Background(), address))
	require.Len(t, fixture.settlement.tokenPayouts, 1)
}
