package esplora

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/crosswap-network/crosswap-daemon/pkg/explorer"
)

func (e *esplora) GetTransactionsForAddress(addr string) ([]explorer.Tx, error) {
	resp, err := e.get(fmt.Sprintf("/address/%s/txs", addr))
	if err != nil {
		return nil, fmt.Errorf("retrieving txs for address: %w", err)
	}

	var rawTxs []txJSON
	if err := json.Unmarshal(resp, &rawTxs); err != nil {
		return nil, fmt.Errorf("retrieving txs for address: %w", err)
	}

	txs := make([]explorer.Tx, 0, len(rawTxs))
	for _, raw := range rawTxs {
		outs := make([]explorer.TxOut, 0, len(raw.Vout))
		for _, out := range raw.Vout {
			outs = append(outs, explorer.TxOut{
				Address: out.ScriptpubkeyAddress,
				Value:   out.Value,
			})
		}
		txs = append(txs, explorer.Tx{
			TxHash:      raw.Txid,
			Confirmed:   raw.Status.Confirmed,
			BlockHeight: raw.Status.BlockHeight,
			Outputs:     outs,
		})
	}
	return txs, nil
}

func (e *esplora) BroadcastTransaction(txHex string) (string, error) {
	resp, err := e.post("/tx", txHex)
	if err != nil {
		return "", fmt.Errorf("broadcasting tx: %w", err)
	}
	return strings.TrimSpace(string(resp)), nil
}

func (e *esplora) GetBlockHeight() (int64, error) {
	resp, err := e.get("/blocks/tip/height")
	if err != nil {
		return 0, fmt.Errorf("retrieving block height: %w", err)
	}
	height, err := strconv.ParseInt(strings.TrimSpace(string(resp)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("retrieving block height: %w", err)
	}
	return height, nil
}
