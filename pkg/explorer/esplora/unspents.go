package esplora

import (
	"encoding/json"
	"fmt"

	"github.com/crosswap-network/crosswap-daemon/pkg/explorer"
)

func (e *esplora) GetUnspents(addr string) ([]explorer.Utxo, error) {
	resp, err := e.get(fmt.Sprintf("/address/%s/utxo", addr))
	if err != nil {
		return nil, fmt.Errorf("retrieving utxos: %w", err)
	}

	var outs []utxoJSON
	if err := json.Unmarshal(resp, &outs); err != nil {
		return nil, fmt.Errorf("retrieving utxos: %w", err)
	}

	unspents := make([]explorer.Utxo, 0, len(outs))
	for _, out := range outs {
		unspents = append(unspents, explorer.Utxo{
			TxHash:    out.Txid,
			VOut:      out.Vout,
			Value:     out.Value,
			Address:   addr,
			Confirmed: out.Status.Confirmed,
		})
	}
	return unspents, nil
}
