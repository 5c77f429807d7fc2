package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/crosswap-network/crosswap-daemon/internal/core/application"
	"github.com/crosswap-network/crosswap-daemon/internal/core/ports"
)

const (
	// DefaultConfirmationTimeout bounds the wait for one confirmation of
	// every submitted transaction.
	DefaultConfirmationTimeout = 80 * time.Second

	receiptPollInterval = 2 * time.Second

	settlementABIJSON = `[
		{
			"name": "permitTrade",
			"type": "function",
			"inputs": [
				{"name": "quoteId", "type": "string"},
				{"name": "owner", "type": "address"},
				{"name": "amount", "type": "uint256"},
				{"name": "deadline", "type": "uint256"},
				{"name": "v", "type": "uint8"},
				{"name": "r", "type": "bytes32"},
				{"name": "s", "type": "bytes32"}
			],
			"outputs": []
		}
	]`

	forwarderABIJSON = `[
		{
			"name": "execute",
			"type": "function",
			"inputs": [
				{
					"name": "req",
					"type": "tuple",
					"components": [
						{"name": "from", "type": "address"},
						{"name": "to", "type": "address"},
						{"name": "value", "type": "uint256"},
						{"name": "gas", "type": "uint256"},
						{"name": "nonce", "type": "uint256"},
						{"name": "data", "type": "bytes"}
					]
				},
				{"name": "signature", "type": "bytes"}
			],
			"outputs": []
		}
	]`

	erc20ABIJSON = `[
		{
			"name": "transfer",
			"type": "function",
			"inputs": [
				{"name": "to", "type": "address"},
				{"name": "amount", "type": "uint256"}
			],
			"outputs": [{"name": "", "type": "bool"}]
		}
	]`
)

// ChainConfig holds the per-chain endpoints and contract addresses.
type ChainConfig struct {
	ChainId            uint64
	RPCUrl             string
	SettlementContract string
	ForwarderContract  string
}

type chainBackend struct {
	client     *ethclient.Client
	chainId    *big.Int
	settlement common.Address
	forwarder  common.Address
}

type settlementService struct {
	backends            map[uint64]*chainBackend
	privateKey          *ecdsa.PrivateKey
	operatorAddress     common.Address
	settlementABI       abi.ABI
	forwarderABI        abi.ABI
	erc20ABI            abi.ABI
	gasLimits           map[application.GasOperation]uint64
	confirmationTimeout time.Duration
}

// NewSettlementService dials every configured chain and returns an
// EvmSettlement signing with the given operator key.
func NewSettlementService(
	chains []ChainConfig, privateKeyHex string, confirmationTimeout time.Duration,
) (ports.EvmSettlement, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid operator key: %w", err)
	}

	settlementABI, err := abi.JSON(strings.NewReader(settlementABIJSON))
	if err != nil {
		return nil, err
	}
	forwarderABI, err := abi.JSON(strings.NewReader(forwarderABIJSON))
	if err != nil {
		return nil, err
	}
	erc20ABI, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, err
	}

	backends := make(map[uint64]*chainBackend, len(chains))
	for _, chain := range chains {
		client, err := ethclient.Dial(chain.RPCUrl)
		if err != nil {
			return nil, fmt.Errorf("dialing chain %d: %w", chain.ChainId, err)
		}
		backends[chain.ChainId] = &chainBackend{
			client:     client,
			chainId:    new(big.Int).SetUint64(chain.ChainId),
			settlement: common.HexToAddress(chain.SettlementContract),
			forwarder:  common.HexToAddress(chain.ForwarderContract),
		}
	}

	if confirmationTimeout <= 0 {
		confirmationTimeout = DefaultConfirmationTimeout
	}

	return &settlementService{
		backends:            backends,
		privateKey:          privateKey,
		operatorAddress:     crypto.PubkeyToAddress(privateKey.PublicKey),
		settlementABI:       settlementABI,
		forwarderABI:        forwarderABI,
		erc20ABI:            erc20ABI,
		gasLimits:           application.GasLimits(),
		confirmationTimeout: confirmationTimeout,
	}, nil
}

func (s *settlementService) ExecuteContractCall(
	ctx context.Context, quoteId string, permit ports.PermitParams, chainId uint64,
) (*ports.CallResult, error) {
	backend, err := s.backend(chainId)
	if err != nil {
		return nil, err
	}

	calldata, err := s.settlementABI.Pack(
		"permitTrade",
		quoteId,
		common.HexToAddress(permit.Owner),
		permit.Amount,
		permit.Deadline,
		permit.V,
		permit.R,
		permit.S,
	)
	if err != nil {
		return nil, err
	}

	return s.submitAndWait(
		ctx, backend, backend.settlement, nil, calldata,
		s.gasLimits[application.GasOpContractCall],
	)
}

func (s *settlementService) ExecuteMetaTransaction(
	ctx context.Context, chainId uint64, req ports.ForwardRequest, signature []byte,
) (*ports.CallResult, error) {
	backend, err := s.backend(chainId)
	if err != nil {
		return nil, err
	}

	forwardReq := struct {
		From  common.Address
		To    common.Address
		Value *big.Int
		Gas   *big.Int
		Nonce *big.Int
		Data  []byte
	}{
		From:  common.HexToAddress(req.From),
		To:    common.HexToAddress(req.To),
		Value: req.Value,
		Gas:   req.Gas,
		Nonce: req.Nonce,
		Data:  req.Data,
	}

	calldata, err := s.forwarderABI.Pack("execute", forwardReq, signature)
	if err != nil {
		return nil, err
	}

	result, err := s.submitAndWait(
		ctx, backend, backend.forwarder, req.Value, calldata,
		s.gasLimits[application.GasOpMetaTransaction],
	)
	if err != nil {
		return nil, mapForwarderError(err)
	}
	return result, nil
}

func (s *settlementService) PayoutNative(
	ctx context.Context, chainId uint64, to string, amount decimal.Decimal,
) (string, error) {
	backend, err := s.backend(chainId)
	if err != nil {
		return "", err
	}

	value := amount.Shift(18).BigInt()
	toAddr := common.HexToAddress(to)
	result, err := s.submitAndWait(
		ctx, backend, toAddr, value, nil,
		s.gasLimits[application.GasOpTransfer],
	)
	if err != nil {
		return "", err
	}
	return result.TxHash, nil
}

func (s *settlementService) PayoutToken(
	ctx context.Context, chainId uint64, token, to string,
	amount decimal.Decimal, decimals int32,
) (string, error) {
	backend, err := s.backend(chainId)
	if err != nil {
		return "", err
	}

	value := amount.Shift(decimals).BigInt()
	calldata, err := s.erc20ABI.Pack(
		"transfer", common.HexToAddress(to), value,
	)
	if err != nil {
		return "", err
	}

	result, err := s.submitAndWait(
		ctx, backend, common.HexToAddress(token), nil, calldata,
		s.gasLimits[application.GasOpTokenTransfer],
	)
	if err != nil {
		return "", err
	}
	return result.TxHash, nil
}

func (s *settlementService) SuggestGasPrice(
	ctx context.Context, chainId uint64,
) (*big.Int, error) {
	backend, err := s.backend(chainId)
	if err != nil {
		return nil, err
	}
	return backend.client.SuggestGasPrice(ctx)
}

func (s *settlementService) backend(chainId uint64) (*chainBackend, error) {
	backend, ok := s.backends[chainId]
	if !ok {
		return nil, fmt.Errorf("no backend configured for chain %d", chainId)
	}
	return backend, nil
}

// submitAndWait signs and broadcasts a legacy transaction, then polls for
// its receipt until the first confirmation or the timeout elapses. A timed
// out transaction may still confirm later; the tx hash is recorded in the
// returned error for manual reconciliation.
func (s *settlementService) submitAndWait(
	ctx context.Context, backend *chainBackend,
	to common.Address, value *big.Int, calldata []byte, gasLimit uint64,
) (*ports.CallResult, error) {
	nonce, err := backend.client.PendingNonceAt(ctx, s.operatorAddress)
	if err != nil {
		return nil, err
	}

	gasPrice, err := backend.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	// Bump by 15% to reduce the chance of being stuck below the market
	// price for the whole confirmation window.
	gasPrice = new(big.Int).Div(
		new(big.Int).Mul(gasPrice, big.NewInt(115)), big.NewInt(100),
	)

	if value == nil {
		value = big.NewInt(0)
	}
	tx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, calldata)

	signedTx, err := types.SignTx(
		tx, types.NewEIP155Signer(backend.chainId), s.privateKey,
	)
	if err != nil {
		return nil, err
	}

	if err := backend.client.SendTransaction(ctx, signedTx); err != nil {
		return nil, err
	}

	txHash := signedTx.Hash()
	log.WithFields(log.Fields{
		"tx_hash": txHash.Hex(),
		"chain":   backend.chainId.String(),
	}).Debug("transaction submitted")

	receipt, err := s.waitForReceipt(ctx, backend, txHash)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction %s reverted", txHash.Hex())
	}

	return &ports.CallResult{
		TxHash:            txHash.Hex(),
		GasUsed:           receipt.GasUsed,
		EffectiveGasPrice: receipt.EffectiveGasPrice,
	}, nil
}

func (s *settlementService) waitForReceipt(
	ctx context.Context, backend *chainBackend, txHash common.Hash,
) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, s.confirmationTimeout)
	defer cancel()

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf(
				"timed out waiting for confirmation of tx %s", txHash.Hex(),
			)
		case <-ticker.C:
			receipt, err := backend.client.TransactionReceipt(ctx, txHash)
			if err != nil {
				continue
			}
			return receipt, nil
		}
	}
}

// mapForwarderError translates the forwarder's well-known revert reasons to
// application errors the caller can act on.
func mapForwarderError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "signature does not match") ||
		strings.Contains(msg, "invalid signature") {
		return application.ErrInvalidRelaySignature
	}
	if strings.Contains(msg, "nonce mismatch") ||
		strings.Contains(msg, "invalid nonce") {
		return application.ErrInvalidRelayNonce
	}
	return err
}
