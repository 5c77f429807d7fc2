package evm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/crosswap-network/crosswap-daemon/internal/core/ports"
)

const swapEventABIJSON = `[
	{
		"name": "SwapInitiated",
		"type": "event",
		"inputs": [
			{"name": "sender", "type": "address", "indexed": true},
			{"name": "quoteId", "type": "string", "indexed": false},
			{"name": "amount", "type": "uint256", "indexed": false}
		]
	}
]`

var (
	swapEventABI abi.ABI
	// SwapEventTopic is the topic hash of the settlement contract's
	// SwapInitiated event.
	SwapEventTopic common.Hash
)

func init() {
	parsed, err := abi.JSON(strings.NewReader(swapEventABIJSON))
	if err != nil {
		panic(err)
	}
	swapEventABI = parsed
	SwapEventTopic = crypto.Keccak256Hash(
		[]byte("SwapInitiated(address,string,uint256)"),
	)
}

// decodeSwapEvent turns a raw contract log into a SwapEvent.
func decodeSwapEvent(logEntry types.Log, network string) (*ports.SwapEvent, error) {
	if len(logEntry.Topics) < 2 || logEntry.Topics[0] != SwapEventTopic {
		return nil, fmt.Errorf("log is not a swap event")
	}

	values, err := swapEventABI.Unpack("SwapInitiated", logEntry.Data)
	if err != nil {
		return nil, err
	}
	if len(values) < 2 {
		return nil, fmt.Errorf("malformed swap event data")
	}

	quoteId, ok := values[0].(string)
	if !ok {
		return nil, fmt.Errorf("malformed swap event quote id")
	}

	event := &ports.SwapEvent{
		QuoteId: quoteId,
		TxHash:  logEntry.TxHash.Hex(),
		Network: network,
		Sender:  common.HexToAddress(logEntry.Topics[1].Hex()).Hex(),
	}
	if amount, ok := values[1].(*big.Int); ok {
		event.Amount = amount
	}
	return event, nil
}
