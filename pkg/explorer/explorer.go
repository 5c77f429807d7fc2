package explorer

// Utxo represents a spendable transaction output credited to an address.
type Utxo struct {
	TxHash    string
	VOut      uint32
	Value     uint64
	Address   string
	Confirmed bool
}

// TxOut is one output of an observed transaction.
type TxOut struct {
	Address string
	Value   uint64
}

// Tx is a transaction relative to a watched address.
type Tx struct {
	TxHash      string
	Confirmed   bool
	BlockHeight int64
	Outputs     []TxOut
}

// AmountForAddress sums the value of all the outputs paying the given
// address. Summing makes the measure robust to transactions with multiple
// outputs to the same address.
func (t Tx) AmountForAddress(addr string) uint64 {
	var total uint64
	for _, out := range t.Outputs {
		if out.Address == addr {
			total += out.Value
		}
	}
	return total
}

// Service is the representation of an explorer that allows to fetch data
// from a UTXO blockchain and to broadcast transactions to it.
type Service interface {
	// GetUnspents fetches the utxos credited to the given address.
	GetUnspents(addr string) ([]Utxo, error)
	// GetTransactionsForAddress returns the list of all txs relative to the
	// given address.
	GetTransactionsForAddress(addr string) ([]Tx, error)
	// GetFeeRate returns the recommended fee rate in sats per virtual byte.
	// The returned rate targets timely confirmation, not minimal cost.
	GetFeeRate() (float64, error)
	// BroadcastTransaction attempts to add the given tx in hex format to the
	// mempool and returns its tx hash.
	BroadcastTransaction(txHex string) (string, error)
	// GetBlockHeight returns the current tip height of the blockchain.
	GetBlockHeight() (int64, error)
}
