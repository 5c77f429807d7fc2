package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crosswap-network/crosswap-daemon/internal/core/domain"
)

func TestTradeComplete(t *testing.T) {
	t.Parallel()

	trade := domain.NewTrade("quote-1")
	require.Equal(t, domain.TradeStatusPending, trade.Status)
	require.False(t, trade.IsTerminal())

	err := trade.Complete("0xsource", "0xdest")
	require.NoError(t, err)
	require.Equal(t, domain.TradeStatusCompleted, trade.Status)
	require.Equal(t, "0xsource", trade.SourceTxHash)
	require.Equal(t, "0xdest", trade.DestinationTxHash)
	require.True(t, trade.IsTerminal())
}

func TestTradeCompleteKeepsKnownSourceTxHash(t *testing.T) {
	t.Parallel()

	trade := domain.NewProcessingTrade("quote-1", "0xdeposit")
	require.Equal(t, domain.TradeStatusProcessing, trade.Status)

	err := trade.Complete("", "0xdest")
	require.NoError(t, err)
	require.Equal(t, "0xdeposit", trade.SourceTxHash)
	require.Equal(t, "0xdest", trade.DestinationTxHash)
}

func TestTradeFail(t *testing.T) {
	t.Parallel()

	trade := domain.NewTrade("quote-1")
	err := trade.Fail("confirmation timeout")
	require.NoError(t, err)
	require.Equal(t, domain.TradeStatusFailed, trade.Status)
	require.Equal(t, "confirmation timeout", trade.FailureReason)
	require.True(t, trade.IsTerminal())
}

func TestTradeTerminalStatusIsFinal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		trade *domain.Trade
	}{
		{
			name:  "completed",
			trade: newCompletedTrade(),
		},
		{
			name:  "failed",
			trade: newFailedTrade(),
		},
	}

	for i := range tests {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.trade.Complete("0xsource", "0xdest")
			require.EqualError(t, err, domain.ErrTradeTerminalStatus.Error())

			err = tt.trade.Fail("boom")
			require.EqualError(t, err, domain.ErrTradeTerminalStatus.Error())
		})
	}
}

func newCompletedTrade() *domain.Trade {
	trade := domain.NewTrade("quote-1")
	trade.Complete("0xsource", "0xdest")
	return trade
}

func newFailedTrade() *domain.Trade {
	trade := domain.NewTrade("quote-1")
	trade.Fail("boom")
	return trade
}
