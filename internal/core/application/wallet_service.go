package application

import (
	"context"
	"fmt"

	"github.com/crosswap-network/crosswap-daemon/internal/core/domain"
	"github.com/crosswap-network/crosswap-daemon/pkg/wallet"
)

// AddressInfo is the outcome of one deposit-address allocation.
type AddressInfo struct {
	Address        string
	DerivationPath string
	Index          uint32
}

// WalletService hands out deterministic, collision-free deposit addresses
// for the managed custodial wallet.
type WalletService interface {
	AllocateNewAddress(ctx context.Context) (*AddressInfo, error)
}

type walletService struct {
	wallet   *wallet.Wallet
	walletId string
	// pathTemplate is the wallet's relative derivation path template with a
	// %d placeholder for the allocation index, eg. "m/84'/0'/0'/0/%d".
	pathTemplate string
	stateRepo    domain.WalletStateRepository
}

// NewWalletService returns a WalletService deriving addresses from the given
// wallet at the given path template, with the allocation cursor persisted in
// the given repository.
func NewWalletService(
	w *wallet.Wallet, walletId, pathTemplate string,
	stateRepo domain.WalletStateRepository,
) WalletService {
	return &walletService{
		wallet:       w,
		walletId:     walletId,
		pathTemplate: pathTemplate,
		stateRepo:    stateRepo,
	}
}

// AllocateNewAddress allocates the next unused derivation index and returns
// the single-signature segwit address derived at it. The cursor increment is
// persisted before the address is handed out, so two concurrent calls can
// never return the same address; a cursor read/write failure is fatal to the
// call and no address is returned.
func (s *walletService) AllocateNewAddress(ctx context.Context) (*AddressInfo, error) {
	index, err := s.stateRepo.AllocateIndex(ctx, s.walletId)
	if err != nil {
		return nil, fmt.Errorf("allocating derivation index: %w", err)
	}

	path := fmt.Sprintf(s.pathTemplate, index)
	address, err := s.wallet.DeriveAddress(path)
	if err != nil {
		return nil, fmt.Errorf("deriving address at %s: %w", path, err)
	}

	return &AddressInfo{
		Address:        address,
		DerivationPath: path,
		Index:          index,
	}, nil
}
