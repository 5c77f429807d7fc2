package ports

import "github.com/shopspring/decimal"

// Pricer converts amounts between assets using point-in-time prices. The
// default implementation is a static lookup table; any price oracle honoring
// this contract can replace it.
type Pricer interface {
	// UsdValue returns the USD value of the given amount of asset.
	UsdValue(asset string, amount decimal.Decimal) (decimal.Decimal, error)
	// Convert returns the given amount of fromAsset expressed in toAsset
	// terms.
	Convert(fromAsset, toAsset string, amount decimal.Decimal) (decimal.Decimal, error)
}
