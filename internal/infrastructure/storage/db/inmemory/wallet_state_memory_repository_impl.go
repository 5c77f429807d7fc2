package inmemory

import (
	"context"
	"sync"

	"github.com/crosswap-network/crosswap-daemon/internal/core/domain"
)

type walletStateRepositoryImpl struct {
	states map[string]uint32
	locker *sync.Mutex
}

// NewWalletStateRepositoryImpl returns a new inmemory WalletStateRepository
// implementation.
func NewWalletStateRepositoryImpl() domain.WalletStateRepository {
	return &walletStateRepositoryImpl{
		states: map[string]uint32{},
		locker: &sync.Mutex{},
	}
}

func (r *walletStateRepositoryImpl) AllocateIndex(
	_ context.Context, walletId string,
) (uint32, error) {
	r.locker.Lock()
	defer r.locker.Unlock()

	allocated := r.states[walletId]
	r.states[walletId] = allocated + 1
	return allocated, nil
}

func (r *walletStateRepositoryImpl) GetNextIndex(
	_ context.Context, walletId string,
) (uint32, error) {
	r.locker.Lock()
	defer r.locker.Unlock()

	return r.states[walletId], nil
}

type scanCursorRepositoryImpl struct {
	cursors map[string]uint64
	locker  *sync.Mutex
}

// NewScanCursorRepositoryImpl returns a new inmemory ScanCursorRepository
// implementation.
func NewScanCursorRepositoryImpl() domain.ScanCursorRepository {
	return &scanCursorRepositoryImpl{
		cursors: map[string]uint64{},
		locker:  &sync.Mutex{},
	}
}

func (r *scanCursorRepositoryImpl) GetCursor(
	_ context.Context, network string,
) (uint64, error) {
	r.locker.Lock()
	defer r.locker.Unlock()

	return r.cursors[network], nil
}

func (r *scanCursorRepositoryImpl) SetCursor(
	_ context.Context, network string, lastBlock uint64,
) error {
	r.locker.Lock()
	defer r.locker.Unlock()

	r.cursors[network] = lastBlock
	return nil
}
