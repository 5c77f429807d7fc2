package domain

import "context"

// WalletStateRepository is the abstraction for the durable address-allocation
// cursor of the custodial wallets.
type WalletStateRepository interface {
	// AllocateIndex returns the next unused derivation index for the given
	// wallet and persists the incremented cursor in the same atomic unit.
	// The state is created at index 0 on first use. Concurrent callers must
	// be serialized by the underlying store so that no index is ever handed
	// out twice.
	AllocateIndex(ctx context.Context, walletId string) (uint32, error)
	// GetNextIndex returns the current value of the cursor without
	// allocating.
	GetNextIndex(ctx context.Context, walletId string) (uint32, error)
}

// ScanCursorRepository is the abstraction for the durable last-checked-block
// cursors of the EVM event pollers.
type ScanCursorRepository interface {
	// GetCursor returns the last checked block for the given network, or 0
	// if the network has never been scanned.
	GetCursor(ctx context.Context, network string) (uint64, error)
	// SetCursor persists the last checked block for the given network.
	SetCursor(ctx context.Context, network string, lastBlock uint64) error
}
