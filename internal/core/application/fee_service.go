package application

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/crosswap-network/crosswap-daemon/internal/core/ports"
)

// FeeTier binds a platform-fee percent to trades valued below ThresholdUsd.
type FeeTier struct {
	ThresholdUsd decimal.Decimal
	Percent      decimal.Decimal
}

// FeeConfig is the fee table the calculator operates on. Percents are
// expressed as fractions (0.002 means 0.2%). Tiers must be ordered by
// ascending threshold.
type FeeConfig struct {
	ExchangeFeePercent decimal.Decimal
	Tiers              []FeeTier
	// FallbackGasPriceWei keeps gas estimation, and therefore quoting,
	// available while the chain RPC is degraded.
	FallbackGasPriceWei *big.Int
}

// FeeService computes exchange fees, tiered platform fees and chain gas-cost
// estimates. All calculations are pure functions over the explicit inputs
// and the configuration table.
type FeeService struct {
	config     FeeConfig
	settlement ports.EvmSettlement
}

// NewFeeService returns a FeeService over the given fee table, using the
// settlement client for live gas prices.
func NewFeeService(config FeeConfig, settlement ports.EvmSettlement) *FeeService {
	return &FeeService{config: config, settlement: settlement}
}

// CalculateExchangeFee returns the exchange fee on the given gross amount.
func (f *FeeService) CalculateExchangeFee(grossAmount decimal.Decimal) decimal.Decimal {
	return grossAmount.Mul(f.config.ExchangeFeePercent)
}

// CalculatePlatformFee returns the platform fee on the given gross amount,
// picking the tier from the trade's USD value.
func (f *FeeService) CalculatePlatformFee(
	tradeValueUsd, grossAmount decimal.Decimal,
) decimal.Decimal {
	return grossAmount.Mul(f.tierPercent(tradeValueUsd))
}

// tierPercent returns the percent of the first tier whose threshold strictly
// exceeds the trade value. A trade valued exactly at a threshold falls into
// the next tier. Values beyond the last threshold use the last tier; with no
// tiers configured the fee is zero.
func (f *FeeService) tierPercent(tradeValueUsd decimal.Decimal) decimal.Decimal {
	if len(f.config.Tiers) <= 0 {
		return decimal.Zero
	}
	for _, tier := range f.config.Tiers {
		if tradeValueUsd.LessThan(tier.ThresholdUsd) {
			return tier.Percent
		}
	}
	return f.config.Tiers[len(f.config.Tiers)-1].Percent
}

// EstimateGasCost returns the estimated cost of the given operation kind on
// the given chain, expressed in whole units of the chain's native asset. If
// the live gas price cannot be fetched the hardcoded fallback price is used
// so that quoting stays available during RPC degradation.
func (f *FeeService) EstimateGasCost(
	ctx context.Context, chainId uint64, op GasOperation,
) decimal.Decimal {
	gasPrice, err := f.settlement.SuggestGasPrice(ctx, chainId)
	if err != nil {
		log.WithError(err).WithField("chain_id", chainId).
			Warn("could not fetch gas price, using fallback")
		gasPrice = f.config.FallbackGasPriceWei
	}

	costWei := new(big.Int).Mul(gasPrice, big.NewInt(gasLimitByOperation[op]))
	return decimal.NewFromBigInt(costWei, -weiPrecision)
}
