package inmemory

import (
	"github.com/crosswap-network/crosswap-daemon/internal/core/domain"
)

// RepoManager bundles the inmemory repository implementations. It backs the
// unit tests and the dev mode of the daemon, where persistence across
// restarts is not needed.
type RepoManager struct {
	quoteRepository          domain.QuoteRepository
	tradeRepository          domain.TradeRepository
	depositAddressRepository domain.DepositAddressRepository
	walletStateRepository    domain.WalletStateRepository
	scanCursorRepository     domain.ScanCursorRepository
}

func NewRepoManager() *RepoManager {
	quoteStore := newQuoteInmemoryStore()

	return &RepoManager{
		quoteRepository:          NewQuoteRepositoryImpl(quoteStore),
		tradeRepository:          NewTradeRepositoryImpl(),
		depositAddressRepository: NewDepositAddressRepositoryImpl(quoteStore),
		walletStateRepository:    NewWalletStateRepositoryImpl(),
		scanCursorRepository:     NewScanCursorRepositoryImpl(),
	}
}

func (d *RepoManager) QuoteRepository() domain.QuoteRepository {
	return d.quoteRepository
}

func (d *RepoManager) TradeRepository() domain.TradeRepository {
	return d.tradeRepository
}

func (d *RepoManager) DepositAddressRepository() domain.DepositAddressRepository {
	return d.depositAddressRepository
}

func (d *RepoManager) WalletStateRepository() domain.WalletStateRepository {
	return d.walletStateRepository
}

func (d *RepoManager) ScanCursorRepository() domain.ScanCursorRepository {
	return d.scanCursorRepository
}
