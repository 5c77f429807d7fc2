package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a priced, time-boxed conversion offer. A quote is read-only once
// persisted, except for the one-time creation of its dependent Trade, and is
// never deleted so that the full quoting history can be audited.
type Quote struct {
	Id               string `badgerhold:"key"`
	CreatedAt        time.Time
	ExpiresAt        time.Time
	FromAsset        string
	FromNetwork      string
	ToAsset          string
	ToNetwork        string
	AmountIn         decimal.Decimal
	LiquiditySource  string
	// Price is the amount of destination asset bought by one unit of source
	// asset, locked at quoting time. UTXO-origin executions recompute the
	// gross amount from the actually received amount with this price.
	Price            decimal.Decimal
	GrossAmount      decimal.Decimal
	ExchangeFee      decimal.Decimal
	PlatformFee      decimal.Decimal
	GasCost          decimal.Decimal
	NetAmount        decimal.Decimal
	RecipientAddress string
	// DepositAddress references the single-use collection address bound to
	// this quote. Set for UTXO-origin quotes only.
	DepositAddress string
}

// Validate checks the quote internal invariants: the expiry time must come
// after the creation time and the net amount must equal the gross amount
// minus all the accounted fees and costs.
func (q *Quote) Validate() error {
	if !q.ExpiresAt.After(q.CreatedAt) {
		return ErrQuoteInvalidExpiryTime
	}
	expectedNet := q.GrossAmount.
		Sub(q.ExchangeFee).
		Sub(q.PlatformFee).
		Sub(q.GasCost)
	if !q.NetAmount.Equal(expectedNet) {
		return ErrQuoteInvalidNetAmount
	}
	return nil
}

// IsExpired returns whether the quote expiry time has passed.
func (q *Quote) IsExpired() bool {
	return time.Now().After(q.ExpiresAt)
}
