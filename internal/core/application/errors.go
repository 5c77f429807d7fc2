package application

import (
	"errors"

	"github.com/crosswap-network/crosswap-daemon/internal/core/domain"
	"github.com/crosswap-network/crosswap-daemon/pkg/wallet"
)

var (
	// ErrInvalidAmount is returned when the requested amount is not strictly
	// positive.
	ErrInvalidAmount = errors.New("amount must be strictly positive")
	// ErrMissingRecipient is returned when a flow that pays out to an
	// explicit recipient is requested without one.
	ErrMissingRecipient = errors.New("recipient address must not be null")
	// ErrMissingDestination is returned when neither the quote nor the
	// execution request pins a destination network.
	ErrMissingDestination = errors.New("destination network must be chosen")
	// ErrDestinationNotOffered is returned when the chosen destination
	// network is not among the quote's receiving options.
	ErrDestinationNotOffered = errors.New("quote offers no settlement on the requested network")
	// ErrUnsupportedMarket is returned when no configured symbol maps the
	// requested asset pair.
	ErrUnsupportedMarket = errors.New("no liquidity source symbol configured for the asset pair")
	// ErrInsufficientLiquidity is returned when no liquidity source can fill
	// the full requested amount.
	ErrInsufficientLiquidity = errors.New("no liquidity source can fill the requested amount")
	// ErrUnsupportedNetworkType is returned when the source or destination
	// network does not belong to one of the two supported families.
	ErrUnsupportedNetworkType = errors.New("network type is not supported")
	// ErrAssetNotConfigured is returned when the destination asset has no
	// known deployment.
	ErrAssetNotConfigured = errors.New("asset has no configured deployment")
	// ErrNoSpendableFunds is returned when the treasury address has no
	// utxos.
	ErrNoSpendableFunds = errors.New("treasury has no spendable funds")

	// ErrQuoteNotFound ...
	ErrQuoteNotFound = domain.ErrQuoteNotFound
	// ErrQuoteExpired ...
	ErrQuoteExpired = domain.ErrQuoteExpired
	// ErrQuoteAlreadyUsed is returned when executing a quote that is already
	// referenced by a trade.
	ErrQuoteAlreadyUsed = errors.New("quote has already been used by another trade")
	// ErrInsufficientFunds is returned when the selected utxos cannot cover
	// the payout amount plus the network fee.
	ErrInsufficientFunds = wallet.ErrInsufficientFunds

	// ErrInvalidRelaySignature maps the forwarder's `invalid signature`
	// revert to a user-actionable error.
	ErrInvalidRelaySignature = errors.New("meta-transaction signature is not valid")
	// ErrInvalidRelayNonce maps the forwarder's `invalid nonce` revert to a
	// user-actionable error.
	ErrInvalidRelayNonce = errors.New("meta-transaction nonce is not valid")
)
