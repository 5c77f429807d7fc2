package staticpricefeed

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/crosswap-network/crosswap-daemon/internal/core/ports"
)

// service is a Pricer backed by an operator-maintained USD price table.
// Cross rates are derived by pivoting through USD. The table is copied at
// construction and never mutated, so reads need no locking.
type service struct {
	usdPriceFor map[string]decimal.Decimal
}

// NewService returns a static price table Pricer. Prices are expressed in
// USD per whole asset unit.
func NewService(usdPrices map[string]decimal.Decimal) ports.Pricer {
	prices := make(map[string]decimal.Decimal, len(usdPrices))
	for asset, price := range usdPrices {
		prices[asset] = price
	}
	return &service{usdPriceFor: prices}
}

func (s *service) UsdValue(
	asset string, amount decimal.Decimal,
) (decimal.Decimal, error) {
	price, err := s.priceOf(asset)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(price), nil
}

func (s *service) Convert(
	fromAsset, toAsset string, amount decimal.Decimal,
) (decimal.Decimal, error) {
	if fromAsset == toAsset {
		return amount, nil
	}

	fromPrice, err := s.priceOf(fromAsset)
	if err != nil {
		return decimal.Zero, err
	}
	toPrice, err := s.priceOf(toAsset)
	if err != nil {
		return decimal.Zero, err
	}
	if toPrice.IsZero() {
		return decimal.Zero, fmt.Errorf("zero usd price for asset %s", toAsset)
	}

	return amount.Mul(fromPrice).Div(toPrice), nil
}

func (s *service) priceOf(asset string) (decimal.Decimal, error) {
	price, ok := s.usdPriceFor[asset]
	if !ok {
		return decimal.Zero, fmt.Errorf("no usd price for asset %s", asset)
	}
	return price, nil
}
