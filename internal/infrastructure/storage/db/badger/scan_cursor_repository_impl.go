package dbbadger

import (
	"context"

	"github.com/timshannon/badgerhold/v4"

	"github.com/crosswap-network/crosswap-daemon/internal/core/domain"
)

type scanCursorRepositoryImpl struct {
	db *DbManager
}

func NewScanCursorRepositoryImpl(db *DbManager) domain.ScanCursorRepository {
	return scanCursorRepositoryImpl{
		db: db,
	}
}

func (s scanCursorRepositoryImpl) GetCursor(
	ctx context.Context,
	network string,
) (uint64, error) {
	var cursor domain.ScanCursor
	if err := s.db.CursorStore.Get(network, &cursor); err != nil {
		if err == badgerhold.ErrNotFound {
			return 0, nil
		}
		return 0, err
	}
	return cursor.LastBlock, nil
}

func (s scanCursorRepositoryImpl) SetCursor(
	ctx context.Context,
	network string,
	lastBlock uint64,
) error {
	cursor := domain.ScanCursor{
		Network:   network,
		LastBlock: lastBlock,
	}
	return s.db.CursorStore.Upsert(network, &cursor)
}
