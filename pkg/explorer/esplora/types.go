package esplora

// JSON shapes returned by the esplora HTTP API.

type txStatus struct {
	Confirmed   bool  `json:"confirmed"`
	BlockHeight int64 `json:"block_height"`
}

type utxoJSON struct {
	Txid   string   `json:"txid"`
	Vout   uint32   `json:"vout"`
	Value  uint64   `json:"value"`
	Status txStatus `json:"status"`
}

type txOutJSON struct {
	ScriptpubkeyAddress string `json:"scriptpubkey_address"`
	Value               uint64 `json:"value"`
}

type txJSON struct {
	Txid   string      `json:"txid"`
	Vout   []txOutJSON `json:"vout"`
	Status txStatus    `json:"status"`
}
