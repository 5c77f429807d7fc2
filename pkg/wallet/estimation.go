package wallet

import "math"

// Fixed linear virtual-size model for single-signature segwit transactions.
// Precision only needs to be good enough to avoid fee underpayment, so the
// per-input and per-output sizes are rounded up to the worst case for P2WPKH.
const (
	txOverheadVBytes   = 11
	p2wpkhInputVBytes  = 68
	p2wpkhOutputVBytes = 31
)

// EstimateTxSize returns the estimated virtual size in vbytes of a P2WPKH
// transaction with the given number of inputs and outputs.
func EstimateTxSize(numInputs, numOutputs int) int {
	return txOverheadVBytes +
		numInputs*p2wpkhInputVBytes +
		numOutputs*p2wpkhOutputVBytes
}

// EstimateFee returns the fee in sats for a P2WPKH transaction with the given
// number of inputs and outputs at the given fee rate, rounding up.
func EstimateFee(numInputs, numOutputs int, satsPerVByte float64) uint64 {
	size := EstimateTxSize(numInputs, numOutputs)
	return uint64(math.Ceil(float64(size) * satsPerVByte))
}
