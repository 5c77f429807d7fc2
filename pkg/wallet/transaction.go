package wallet

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/crosswap-network/crosswap-daemon/pkg/explorer"
)

// TxInput pairs a utxo to spend with the derivation path of the key that
// controls its address.
type TxInput struct {
	Utxo           explorer.Utxo
	DerivationPath string
}

// TxOutput is a payment of the given value to the given address.
type TxOutput struct {
	Address string
	Value   uint64
}

// CreateAndSignTx builds a transaction spending the given inputs to the
// given outputs, signs each input individually with the key derived at its
// path, and returns the finalized transaction in hex format along with its
// tx hash.
func (w *Wallet) CreateAndSignTx(ins []TxInput, outs []TxOutput) (string, string, error) {
	tx := wire.NewMsgTx(wire.TxVersion)
	prevOuts := make(map[wire.OutPoint]*wire.TxOut)

	for _, in := range ins {
		hash, err := chainhash.NewHashFromStr(in.Utxo.TxHash)
		if err != nil {
			return "", "", fmt.Errorf("invalid input tx hash: %w", err)
		}
		outpoint := wire.NewOutPoint(hash, in.Utxo.VOut)
		tx.AddTxIn(wire.NewTxIn(outpoint, nil, nil))

		prevScript, err := w.payToAddrScript(in.Utxo.Address)
		if err != nil {
			return "", "", err
		}
		prevOuts[*outpoint] = wire.NewTxOut(int64(in.Utxo.Value), prevScript)
	}

	for _, out := range outs {
		script, err := w.payToAddrScript(out.Address)
		if err != nil {
			return "", "", err
		}
		tx.AddTxOut(wire.NewTxOut(int64(out.Value), script))
	}

	prevOutFetcher := txscript.NewMultiPrevOutFetcher(prevOuts)
	sigHashes := txscript.NewTxSigHashes(tx, prevOutFetcher)

	for i, in := range ins {
		privateKey, _, err := w.DeriveKeyPair(in.DerivationPath)
		if err != nil {
			return "", "", err
		}

		prevOut := prevOuts[tx.TxIn[i].PreviousOutPoint]
		witness, err := txscript.WitnessSignature(
			tx, sigHashes, i, prevOut.Value, prevOut.PkScript,
			txscript.SigHashAll, privateKey, true,
		)
		if err != nil {
			return "", "", fmt.Errorf("signing input %d: %w", i, err)
		}
		tx.TxIn[i].Witness = witness
	}

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return "", "", err
	}
	return hex.EncodeToString(buf.Bytes()), tx.TxHash().String(), nil
}

func (w *Wallet) payToAddrScript(address string) ([]byte, error) {
	addr, err := btcutil.DecodeAddress(address, w.net)
	if err != nil {
		return nil, fmt.Errorf("invalid address %s: %w", address, err)
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, err
	}
	return script, nil
}
