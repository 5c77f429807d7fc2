package domain

// NetworkType is the tag discriminating the two supported chain families.
type NetworkType string

const (
	// NetworkTypeEvm identifies account-based chains settled via contract calls.
	NetworkTypeEvm NetworkType = "evm"
	// NetworkTypeUtxo identifies Bitcoin-style chains settled via deposit
	// addresses and payout transactions.
	NetworkTypeUtxo NetworkType = "utxo"
)

// IsValid returns whether the network type is one of the supported families.
func (t NetworkType) IsValid() bool {
	return t == NetworkTypeEvm || t == NetworkTypeUtxo
}
