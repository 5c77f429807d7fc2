package application

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/crosswap-network/crosswap-daemon/pkg/explorer"
	"github.com/crosswap-network/crosswap-daemon/pkg/wallet"
)

// UtxoPayoutService builds, signs and broadcasts payout transactions from
// the treasury of a UTXO chain.
type UtxoPayoutService interface {
	// Payout pays the given amount in sats to the recipient and returns the
	// broadcast tx hash.
	Payout(ctx context.Context, recipientAddress string, amount uint64) (string, error)
	// EstimatePayoutFee returns the fee in sats of a canonical 1-input,
	// 2-output payout at the current recommended fee rate, without
	// committing any funds.
	EstimatePayoutFee(ctx context.Context) (uint64, error)
}

type utxoPayoutService struct {
	explorerSvc     explorer.Service
	wallet          *wallet.Wallet
	selector        wallet.CoinSelector
	treasuryAddress string
	treasuryPath    string
}

// NewUtxoPayoutService returns a UtxoPayoutService spending from the
// treasury address whose key is derived at the given path.
func NewUtxoPayoutService(
	explorerSvc explorer.Service, w *wallet.Wallet, selector wallet.CoinSelector,
	treasuryAddress, treasuryPath string,
) UtxoPayoutService {
	return &utxoPayoutService{
		explorerSvc:     explorerSvc,
		wallet:          w,
		selector:        selector,
		treasuryAddress: treasuryAddress,
		treasuryPath:    treasuryPath,
	}
}

func (s *utxoPayoutService) Payout(
	ctx context.Context, recipientAddress string, amount uint64,
) (string, error) {
	unspents, err := s.explorerSvc.GetUnspents(s.treasuryAddress)
	if err != nil {
		return "", fmt.Errorf("fetching treasury utxos: %w", err)
	}
	// Unconfirmed change could be replaced or reorged away; only confirmed
	// utxos are spendable.
	utxos := make([]explorer.Utxo, 0, len(unspents))
	for _, utxo := range unspents {
		if utxo.Confirmed {
			utxos = append(utxos, utxo)
		}
	}
	if len(utxos) <= 0 {
		return "", ErrNoSpendableFunds
	}

	feeRate, err := s.explorerSvc.GetFeeRate()
	if err != nil {
		return "", fmt.Errorf("fetching fee rate: %w", err)
	}

	selected, fee, err := s.selector.Select(utxos, amount, feeRate)
	if err != nil {
		return "", err
	}

	var total uint64
	ins := make([]wallet.TxInput, 0, len(selected))
	for _, utxo := range selected {
		total += utxo.Value
		ins = append(ins, wallet.TxInput{
			Utxo:           utxo,
			DerivationPath: s.treasuryPath,
		})
	}

	outs := []wallet.TxOutput{{Address: recipientAddress, Value: amount}}
	// Change below the dust threshold is absorbed into the fee instead of
	// creating an uneconomical output.
	if change := total - amount - fee; change >= wallet.DustThreshold {
		outs = append(outs, wallet.TxOutput{
			Address: s.treasuryAddress,
			Value:   change,
		})
	}

	txHex, txHash, err := s.wallet.CreateAndSignTx(ins, outs)
	if err != nil {
		return "", fmt.Errorf("building payout tx: %w", err)
	}

	if _, err := s.explorerSvc.BroadcastTransaction(txHex); err != nil {
		return "", fmt.Errorf("broadcasting payout tx: %w", err)
	}

	log.WithFields(log.Fields{
		"tx_hash": txHash,
		"inputs":  len(ins),
		"fee":     fee,
	}).Debug("payout broadcast")

	return txHash, nil
}

func (s *utxoPayoutService) EstimatePayoutFee(ctx context.Context) (uint64, error) {
	feeRate, err := s.explorerSvc.GetFeeRate()
	if err != nil {
		return 0, fmt.Errorf("fetching fee rate: %w", err)
	}
	return wallet.EstimateFee(1, 2, feeRate), nil
}
