package dbbadger

import (
	"context"

	"github.com/timshannon/badgerhold/v4"

	"github.com/crosswap-network/crosswap-daemon/internal/core/domain"
)

type depositAddressRepositoryImpl struct {
	db *DbManager
}

func NewDepositAddressRepositoryImpl(db *DbManager) domain.DepositAddressRepository {
	return depositAddressRepositoryImpl{
		db: db,
	}
}

func (d depositAddressRepositoryImpl) GetDepositAddress(
	ctx context.Context,
	address string,
) (*domain.DepositAddress, error) {
	var addr domain.DepositAddress
	if err := d.db.Store.Get(address, &addr); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrDepositAddressNotFound
		}
		return nil, err
	}
	return &addr, nil
}

func (d depositAddressRepositoryImpl) GetDepositAddressByQuoteId(
	ctx context.Context,
	quoteId string,
) (*domain.DepositAddress, error) {
	query := badgerhold.Where("QuoteId").Eq(quoteId).Index("QuoteId")

	var addrs []domain.DepositAddress
	if err := d.db.Store.Find(&addrs, query); err != nil {
		return nil, err
	}
	if len(addrs) <= 0 {
		return nil, domain.ErrDepositAddressNotFound
	}
	return &addrs[0], nil
}

func (d depositAddressRepositoryImpl) GetAllPendingDepositAddresses(
	ctx context.Context,
) ([]*domain.DepositAddress, error) {
	query := badgerhold.Where("Status").Eq(domain.DepositStatusPending)

	var addrs []domain.DepositAddress
	if err := d.db.Store.Find(&addrs, query); err != nil {
		return nil, err
	}

	pending := make([]*domain.DepositAddress, 0, len(addrs))
	for i := range addrs {
		pending = append(pending, &addrs[i])
	}
	return pending, nil
}

func (d depositAddressRepositoryImpl) UpdateDepositAddress(
	ctx context.Context,
	address string,
	updateFn func(a *domain.DepositAddress) (*domain.DepositAddress, error),
) error {
	currentAddr, err := d.GetDepositAddress(ctx, address)
	if err != nil {
		return err
	}

	updatedAddr, err := updateFn(currentAddr)
	if err != nil {
		return err
	}

	return d.db.Store.Update(updatedAddr.Address, updatedAddr)
}
