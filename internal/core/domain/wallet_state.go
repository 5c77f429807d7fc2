package domain

// WalletState is the durable cursor for deposit-address allocation of one
// custodial wallet. Every index below NextIndex has been allocated at most
// once; the value is only ever incremented, and the increment is persisted
// before the corresponding address is handed out.
type WalletState struct {
	WalletId  string `badgerhold:"key"`
	NextIndex uint32
}

// ScanCursor is the durable last-checked-block cursor of one EVM network
// event poller. Persisting it prevents the poller from silently re-scanning
// only a fixed lookback window after a restart.
type ScanCursor struct {
	Network   string `badgerhold:"key"`
	LastBlock uint64
}
