package ports

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"
)

// PermitParams carries the off-chain permit signature that authorizes the
// settlement contract to pull the source funds from the user's account.
type PermitParams struct {
	Owner    string
	Amount   *big.Int
	Deadline *big.Int
	V        uint8
	R        [32]byte
	S        [32]byte
}

// ForwardRequest is a pre-signed relayed call submitted through a forwarder
// contract on behalf of the end user. The operator pays the gas, the end user
// only supplies the signature.
type ForwardRequest struct {
	From  string
	To    string
	Value *big.Int
	Gas   *big.Int
	Nonce *big.Int
	Data  []byte
}

// CallResult is the outcome of a confirmed source-chain call, carrying what
// is needed to recompute the actual gas cost of the collection leg.
type CallResult struct {
	TxHash            string
	GasUsed           uint64
	EffectiveGasPrice *big.Int
}

// EvmSettlement submits source-chain collection calls and destination-chain
// payouts. Every method waits for one confirmation, bounded by a timeout, and
// reports a timeout or an on-chain revert as a failure without retrying.
type EvmSettlement interface {
	// ExecuteContractCall submits the permit-based trade function of the
	// settlement contract on the given chain.
	ExecuteContractCall(
		ctx context.Context, quoteId string, permit PermitParams, chainId uint64,
	) (*CallResult, error)
	// ExecuteMetaTransaction relays a pre-signed call through the forwarder
	// contract on the given chain.
	ExecuteMetaTransaction(
		ctx context.Context, chainId uint64, req ForwardRequest, signature []byte,
	) (*CallResult, error)
	// PayoutNative transfers the given amount of the chain's native asset,
	// expressed in whole units, to the recipient.
	PayoutNative(
		ctx context.Context, chainId uint64, to string, amount decimal.Decimal,
	) (string, error)
	// PayoutToken transfers the given amount of an ERC20-like token,
	// expressed in whole units scaled by the token decimals, to the
	// recipient.
	PayoutToken(
		ctx context.Context, chainId uint64, token, to string,
		amount decimal.Decimal, decimals int32,
	) (string, error)
	// SuggestGasPrice returns the current gas price of the given chain.
	SuggestGasPrice(ctx context.Context, chainId uint64) (*big.Int, error)
}

// SwapEvent is a settlement-initiated event observed on an EVM chain.
type SwapEvent struct {
	QuoteId string
	TxHash  string
	Network string
	Sender  string
	Amount  *big.Int
}

// SwapEventSource emits settlement-initiated events observed on one EVM
// network. Both the streaming listener and the polling fallback implement it
// and may deliver the same event more than once during overlaps or after a
// restart; consumers must be idempotent.
type SwapEventSource interface {
	Start()
	Stop()
	EventChannel() <-chan SwapEvent
}
