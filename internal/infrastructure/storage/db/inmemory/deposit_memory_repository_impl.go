package inmemory

import (
	"context"

	"github.com/crosswap-network/crosswap-daemon/internal/core/domain"
)

type depositAddressRepositoryImpl struct {
	store *quoteInmemoryStore
}

// NewDepositAddressRepositoryImpl returns a new inmemory
// DepositAddressRepository implementation sharing the quote store.
func NewDepositAddressRepositoryImpl(
	store *quoteInmemoryStore,
) domain.DepositAddressRepository {
	return &depositAddressRepositoryImpl{store}
}

func (r depositAddressRepositoryImpl) GetDepositAddress(
	_ context.Context, address string,
) (*domain.DepositAddress, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	return r.getDepositAddress(address)
}

func (r depositAddressRepositoryImpl) GetDepositAddressByQuoteId(
	_ context.Context, quoteId string,
) (*domain.DepositAddress, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	for address := range r.store.addresses {
		addr := r.store.addresses[address]
		if addr.QuoteId == quoteId {
			return &addr, nil
		}
	}
	return nil, domain.ErrDepositAddressNotFound
}

func (r depositAddressRepositoryImpl) GetAllPendingDepositAddresses(
	_ context.Context,
) ([]*domain.DepositAddress, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	pending := make([]*domain.DepositAddress, 0)
	for address := range r.store.addresses {
		addr := r.store.addresses[address]
		if addr.Status == domain.DepositStatusPending {
			pending = append(pending, &addr)
		}
	}
	return pending, nil
}

func (r depositAddressRepositoryImpl) UpdateDepositAddress(
	_ context.Context,
	address string,
	updateFn func(a *domain.DepositAddress) (*domain.DepositAddress, error),
) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	currentAddr, err := r.getDepositAddress(address)
	if err != nil {
		return err
	}

	updatedAddr, err := updateFn(currentAddr)
	if err != nil {
		return err
	}

	r.store.addresses[address] = *updatedAddr
	return nil
}

func (r depositAddressRepositoryImpl) getDepositAddress(
	address string,
) (*domain.DepositAddress, error) {
	addr, ok := r.store.addresses[address]
	if !ok {
		return nil, domain.ErrDepositAddressNotFound
	}
	return &addr, nil
}
