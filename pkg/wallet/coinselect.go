package wallet

import (
	"errors"

	"github.com/crosswap-network/crosswap-daemon/pkg/explorer"
)

// DustThreshold is the minimum output value in sats below which an output is
// uneconomical to create or spend. Change below this value is absorbed into
// the network fee.
const DustThreshold = 546

// ErrInsufficientFunds is returned when the available utxos cannot cover the
// target amount plus the network fee.
var ErrInsufficientFunds = errors.New("utxos do not cover target amount plus network fee")

// CoinSelector selects a subset of utxos covering a target amount plus the
// network fee of the resulting transaction.
type CoinSelector interface {
	// Select returns the selected utxos and the fee of a transaction
	// spending them with two outputs at the given fee rate, guaranteeing
	// that the selected total covers target+fee.
	Select(
		utxos []explorer.Utxo, target uint64, satsPerVByte float64,
	) (selected []explorer.Utxo, fee uint64, err error)
}

type greedySelector struct{}

// NewGreedySelector returns a CoinSelector that accumulates utxos in the
// order they are given until they cover the target plus the fee, recomputing
// the fee estimate as inputs are added since it grows with the input count.
func NewGreedySelector() CoinSelector {
	return &greedySelector{}
}

func (s *greedySelector) Select(
	utxos []explorer.Utxo, target uint64, satsPerVByte float64,
) ([]explorer.Utxo, uint64, error) {
	selected := make([]explorer.Utxo, 0, len(utxos))
	var total uint64

	for i := range utxos {
		selected = append(selected, utxos[i])
		total += utxos[i].Value

		fee := EstimateFee(len(selected), 2, satsPerVByte)
		if total >= target+fee {
			return selected, fee, nil
		}
	}

	return nil, 0, ErrInsufficientFunds
}
