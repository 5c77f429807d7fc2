package application

import "time"

// GasOperation discriminates the operation kinds a gas estimate refers to.
type GasOperation int

const (
	// GasOpContractCall is the permit-based settlement contract call.
	GasOpContractCall GasOperation = iota
	// GasOpMetaTransaction is a relayed call through the forwarder contract,
	// sized to tolerate the relay overhead on top of the inner call.
	GasOpMetaTransaction
	// GasOpTransfer is a simple native-asset transfer.
	GasOpTransfer
	// GasOpTokenTransfer is a standard token-transfer call.
	GasOpTokenTransfer
)

// Fixed estimated gas limits per operation kind.
var gasLimitByOperation = map[GasOperation]int64{
	GasOpContractCall:    200000,
	GasOpMetaTransaction: 500000,
	GasOpTransfer:        21000,
	GasOpTokenTransfer:   65000,
}

// GasLimits returns a copy of the per-operation gas limits, also used as
// bounded limits when submitting transactions.
func GasLimits() map[GasOperation]uint64 {
	limits := make(map[GasOperation]uint64, len(gasLimitByOperation))
	for op, limit := range gasLimitByOperation {
		limits[op] = uint64(limit)
	}
	return limits
}

const (
	// DefaultQuoteExpiry is the window between quote creation and expiry.
	DefaultQuoteExpiry = 300 * time.Second
	// DefaultDepositMonitorInterval is the period of the deposit polling
	// loop.
	DefaultDepositMonitorInterval = 60 * time.Second
	// DefaultMinConfirmations is the number of confirmations a deposit
	// needs before it triggers execution.
	DefaultMinConfirmations = 1

	// satsPrecision is the number of fractional digits of Bitcoin-style
	// amounts.
	satsPrecision = 8
	// weiPrecision is the number of fractional digits of EVM native
	// amounts.
	weiPrecision = 18
)

// Topics published on the notification sink.
const (
	TopicTradeCompleted   = "trade_completed"
	TopicTradeFailed      = "trade_failed"
	TopicDepositConfirmed = "deposit_confirmed"
)
