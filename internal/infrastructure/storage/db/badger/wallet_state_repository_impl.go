package dbbadger

import (
	"context"

	"github.com/dgraph-io/badger/v3"
	"github.com/timshannon/badgerhold/v4"

	"github.com/crosswap-network/crosswap-daemon/internal/core/domain"
)

type walletStateRepositoryImpl struct {
	db *DbManager
}

func NewWalletStateRepositoryImpl(db *DbManager) domain.WalletStateRepository {
	return walletStateRepositoryImpl{
		db: db,
	}
}

// AllocateIndex reads and bumps the cursor inside a single read-write badger
// transaction. Badger serializes conflicting writes, so two concurrent
// allocations can never observe the same index.
func (w walletStateRepositoryImpl) AllocateIndex(
	ctx context.Context,
	walletId string,
) (uint32, error) {
	var allocated uint32
	if err := w.db.CursorStore.Badger().Update(func(tx *badger.Txn) error {
		var state domain.WalletState
		if err := w.db.CursorStore.TxGet(tx, walletId, &state); err != nil {
			if err != badgerhold.ErrNotFound {
				return err
			}
			state = domain.WalletState{WalletId: walletId}
		}

		allocated = state.NextIndex
		state.NextIndex++
		return w.db.CursorStore.TxUpsert(tx, walletId, &state)
	}); err != nil {
		return 0, err
	}
	return allocated, nil
}

func (w walletStateRepositoryImpl) GetNextIndex(
	ctx context.Context,
	walletId string,
) (uint32, error) {
	var state domain.WalletState
	if err := w.db.CursorStore.Get(walletId, &state); err != nil {
		if err == badgerhold.ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	return state.NextIndex, nil
}
