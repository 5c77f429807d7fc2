package domain

import "time"

// DepositAddressStatus represents the statuses of a deposit address.
type DepositAddressStatus string

const (
	// DepositStatusPending means the address is waiting for an inbound
	// deposit.
	DepositStatusPending DepositAddressStatus = "PENDING_DEPOSIT"
	// DepositStatusConfirmed means a qualifying deposit has been observed
	// with enough confirmations. The transition happens exactly once.
	DepositStatusConfirmed DepositAddressStatus = "CONFIRMED"
)

// DepositAddress is a single-use collection address bound to one quote,
// created atomically alongside it and never reused.
type DepositAddress struct {
	Address        string `badgerhold:"key"`
	DerivationPath string
	Network        string
	Status         DepositAddressStatus
	// TxHash and ReceivedAmount are set once the deposit monitor observes a
	// qualifying transaction. ReceivedAmount is expressed in the chain's
	// smallest unit.
	TxHash         string
	ReceivedAmount uint64
	QuoteId        string `badgerhold:"unique"`
	CreatedAt      time.Time
}

// NewDepositAddress returns a pending deposit address bound to the given
// quote.
func NewDepositAddress(address, derivationPath, network, quoteId string) *DepositAddress {
	return &DepositAddress{
		Address:        address,
		DerivationPath: derivationPath,
		Network:        network,
		Status:         DepositStatusPending,
		QuoteId:        quoteId,
		CreatedAt:      time.Now(),
	}
}

// Confirm transitions the address from PendingDeposit to Confirmed, recording
// the observed transaction hash and the amount credited to the address. It
// fails if the address was already confirmed, so a later monitor cycle cannot
// re-trigger the execution bound to this deposit.
func (a *DepositAddress) Confirm(txHash string, receivedAmount uint64) error {
	if a.Status == DepositStatusConfirmed {
		return ErrDepositAlreadyConfirmed
	}
	a.Status = DepositStatusConfirmed
	a.TxHash = txHash
	a.ReceivedAmount = receivedAmount
	return nil
}
