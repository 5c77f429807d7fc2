package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crosswap-network/crosswap-daemon/pkg/explorer"
)

func makeUtxos(values ...uint64) []explorer.Utxo {
	utxos := make([]explorer.Utxo, 0, len(values))
	for i, value := range values {
		utxos = append(utxos, explorer.Utxo{
			TxHash: "tx",
			VOut:   uint32(i),
			Value:  value,
		})
	}
	return utxos
}

func TestGreedySelect(t *testing.T) {
	selector := NewGreedySelector()

	tests := []struct {
		name        string
		utxos       []explorer.Utxo
		target      uint64
		expectedIns int
		expectedFee uint64
	}{
		{
			name:        "single_utxo_covers_target",
			utxos:       makeUtxos(100000),
			target:      50000,
			expectedIns: 1,
			expectedFee: 141,
		},
		{
			// The fee estimate grows as inputs are accumulated: one or two
			// 600 sat utxos cannot cover 1000 plus their own fee, three can.
			name:        "fee_recomputed_per_input",
			utxos:       makeUtxos(600, 600, 600),
			target:      1000,
			expectedIns: 3,
			expectedFee: 277,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selected, fee, err := selector.Select(tt.utxos, tt.target, 1)
			assert.NoError(t, err)
			assert.Len(t, selected, tt.expectedIns)
			assert.Equal(t, tt.expectedFee, fee)

			var total uint64
			for _, utxo := range selected {
				total += utxo.Value
			}
			assert.GreaterOrEqual(t, total, tt.target+fee)
		})
	}
}

func TestGreedySelectInsufficientFunds(t *testing.T) {
	selector := NewGreedySelector()

	_, _, err := selector.Select(makeUtxos(500, 500), 1000, 1)
	assert.EqualError(t, err, ErrInsufficientFunds.Error())
}
