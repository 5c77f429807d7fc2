package wallet

import (
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

var (
	// ErrNullNetwork ...
	ErrNullNetwork = errors.New("network params are null")
	// ErrInvalidSeed ...
	ErrInvalidSeed = errors.New("seed must be between 16 and 64 bytes")
	// ErrNullDerivationPath ...
	ErrNullDerivationPath = errors.New("derivation path must not be null")
	// ErrMalformedDerivationPath is returned when parsing a path with empty
	// or missing elements.
	ErrMalformedDerivationPath = errors.New("path must not start or end with a '/'")
	// ErrInvalidDerivationPathLength ...
	ErrInvalidDerivationPathLength = errors.New("path must contain at least one element")
)

// Wallet is a hierarchical deterministic wallet over one master key, able to
// derive child keys and single-signature segwit addresses at arbitrary paths.
type Wallet struct {
	masterKey *hdkeychain.ExtendedKey
	net       *chaincfg.Params
}

// NewWalletFromSeed returns a Wallet whose master key is derived from the
// given seed on the given network.
func NewWalletFromSeed(seed []byte, net *chaincfg.Params) (*Wallet, error) {
	if net == nil {
		return nil, ErrNullNetwork
	}
	if len(seed) < hdkeychain.MinSeedBytes || len(seed) > hdkeychain.MaxSeedBytes {
		return nil, ErrInvalidSeed
	}

	masterKey, err := hdkeychain.NewMaster(seed, net)
	if err != nil {
		return nil, err
	}

	return &Wallet{masterKey: masterKey, net: net}, nil
}

// Network returns the chain params the wallet operates on.
func (w *Wallet) Network() *chaincfg.Params {
	return w.net
}

// DeriveKeyPair derives the child key pair at the given derivation path.
func (w *Wallet) DeriveKeyPair(path string) (*btcec.PrivateKey, *btcec.PublicKey, error) {
	derivationPath, err := ParseDerivationPath(path)
	if err != nil {
		return nil, nil, err
	}

	key := w.masterKey
	for _, step := range derivationPath {
		key, err = key.Derive(step)
		if err != nil {
			return nil, nil, err
		}
	}

	privateKey, err := key.ECPrivKey()
	if err != nil {
		return nil, nil, err
	}
	return privateKey, privateKey.PubKey(), nil
}

// DeriveAddress derives the single-signature segwit (P2WPKH) address at the
// given derivation path.
func (w *Wallet) DeriveAddress(path string) (string, error) {
	_, publicKey, err := w.DeriveKeyPair(path)
	if err != nil {
		return "", err
	}

	pubKeyHash := btcutil.Hash160(publicKey.SerializeCompressed())
	addr, err := btcutil.NewAddressWitnessPubKeyHash(pubKeyHash, w.net)
	if err != nil {
		return "", err
	}
	return addr.EncodeAddress(), nil
}
