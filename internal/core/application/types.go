package application

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/crosswap-network/crosswap-daemon/internal/core/domain"
)

// NetworkInfo describes one supported network.
type NetworkInfo struct {
	Name        string
	Type        domain.NetworkType
	ChainId     uint64
	NativeAsset string
}

// AssetDeployment describes one deployment of an asset on an EVM network.
// An empty Contract means the asset is the network's native one.
type AssetDeployment struct {
	Asset    string
	Network  string
	Contract string
	Decimals int32
}

// Market maps an asset pair to the canonical symbol quoted by the liquidity
// sources, in BASE/QUOTE form.
type Market struct {
	BaseAsset  string
	QuoteAsset string
	Symbol     string
}

// Registry holds the static market, network and asset-deployment
// configuration every service consults. It is built once at startup from the
// daemon config and passed down explicitly.
type Registry struct {
	markets     []Market
	networks    map[string]NetworkInfo
	deployments map[string][]AssetDeployment
}

// NewRegistry returns a Registry over the given configuration records.
func NewRegistry(
	markets []Market, networks []NetworkInfo, deployments []AssetDeployment,
) *Registry {
	networksByName := make(map[string]NetworkInfo, len(networks))
	for _, n := range networks {
		networksByName[n.Name] = n
	}
	deploymentsByAsset := make(map[string][]AssetDeployment)
	for _, d := range deployments {
		deploymentsByAsset[d.Asset] = append(deploymentsByAsset[d.Asset], d)
	}
	return &Registry{
		markets:     markets,
		networks:    networksByName,
		deployments: deploymentsByAsset,
	}
}

// Network returns the configured network with the given name.
func (r *Registry) Network(name string) (NetworkInfo, bool) {
	n, ok := r.networks[name]
	return n, ok
}

// NetworkByChainId returns the configured EVM network with the given chain
// id.
func (r *Registry) NetworkByChainId(chainId uint64) (NetworkInfo, bool) {
	for _, n := range r.networks {
		if n.Type == domain.NetworkTypeEvm && n.ChainId == chainId {
			return n, true
		}
	}
	return NetworkInfo{}, false
}

// ResolveMarket returns the canonical market for the given asset pair. The
// forward listing is preferred; if only the reverse pair is listed the
// market is returned with inverted set, meaning the request represents the
// quote side of the symbol.
func (r *Registry) ResolveMarket(fromAsset, toAsset string) (mkt Market, inverted, ok bool) {
	for _, m := range r.markets {
		if m.BaseAsset == fromAsset && m.QuoteAsset == toAsset {
			return m, false, true
		}
	}
	for _, m := range r.markets {
		if m.BaseAsset == toAsset && m.QuoteAsset == fromAsset {
			return m, true, true
		}
	}
	return Market{}, false, false
}

// DeploymentsForAsset returns every configured deployment of the given
// asset.
func (r *Registry) DeploymentsForAsset(asset string) []AssetDeployment {
	return r.deployments[asset]
}

// Deployment returns the deployment of the given asset on the given network.
func (r *Registry) Deployment(asset, network string) (AssetDeployment, bool) {
	for _, d := range r.deployments[asset] {
		if d.Network == network {
			return d, true
		}
	}
	return AssetDeployment{}, false
}

// QuoteRequest is a request for converting an amount of a source asset held
// on a source network into a destination asset.
type QuoteRequest struct {
	FromAsset        string
	FromNetwork      string
	ToAsset          string
	ToNetwork        string
	Amount           decimal.Decimal
	RecipientAddress string
}

// ReceiveOption is one settlement choice on a configured destination
// deployment, with its own gas estimate and net amount.
type ReceiveOption struct {
	Network   string
	ChainId   uint64
	GasCost   decimal.Decimal
	NetAmount decimal.Decimal
}

// QuoteResponse is the priced, fee-accounted, time-boxed offer returned to
// the caller.
type QuoteResponse struct {
	QuoteId          string
	CreatedAt        time.Time
	ExpiresAt        time.Time
	FromAsset        string
	FromNetwork      string
	ToAsset          string
	AmountIn         decimal.Decimal
	LiquiditySource  string
	Price            decimal.Decimal
	GrossAmount      decimal.Decimal
	ExchangeFee      decimal.Decimal
	PlatformFee      decimal.Decimal
	GasCost          decimal.Decimal
	NetAmount        decimal.Decimal
	ReceivingOptions []ReceiveOption
	DepositAddress   string
}

// TradeNotification is the payload published on trade terminal states.
type TradeNotification struct {
	TradeId           string    `json:"tradeId"`
	QuoteId           string    `json:"quoteId"`
	Status            string    `json:"status"`
	SourceTxHash      string    `json:"sourceTxHash,omitempty"`
	DestinationTxHash string    `json:"destinationTxHash,omitempty"`
	FailureReason     string    `json:"failureReason,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// DepositNotification is the payload published when a deposit is confirmed.
type DepositNotification struct {
	Address   string    `json:"address"`
	QuoteId   string    `json:"quoteId"`
	TxHash    string    `json:"txHash"`
	Amount    uint64    `json:"amount"`
	Network   string    `json:"network"`
	Timestamp time.Time `json:"timestamp"`
}
