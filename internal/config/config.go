package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/crosswap-network/crosswap-daemon/internal/core/application"
	"github.com/crosswap-network/crosswap-daemon/internal/core/domain"
)

const (
	// DatadirKey is the local data directory to store the internal state of daemon
	DatadirKey = "DATADIR"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// ConfigPathKey is the path of the structured config file holding networks, assets, markets and fee tiers
	ConfigPathKey = "CONFIG_PATH"
	// ExplorerEndpointKey is the endpoint where the esplora REST API is listening
	ExplorerEndpointKey = "EXPLORER_ENDPOINT"
	// ExplorerRequestTimeoutKey are the milliseconds to wait for HTTP responses before timeouts
	ExplorerRequestTimeoutKey = "EXPLORER_REQUEST_TIMEOUT"
	// WalletSeedKey is the hex-encoded seed of the daemon's custodial wallet
	WalletSeedKey = "WALLET_SEED"
	// OperatorKeyKey is the hex-encoded private key signing EVM settlement transactions
	OperatorKeyKey = "OPERATOR_KEY"
	// TreasuryAddressKey is the address holding the spendable payout funds
	TreasuryAddressKey = "TREASURY_ADDRESS"
	// TreasuryDerivationPathKey is the derivation path of the treasury address
	TreasuryDerivationPathKey = "TREASURY_DERIVATION_PATH"
	// QuoteExpiryTimeKey is the duration in seconds between quote creation and expiry
	QuoteExpiryTimeKey = "QUOTE_EXPIRY_TIME"
	// DepositIntervalKey is the interval in seconds between deposit polling runs
	DepositIntervalKey = "DEPOSIT_INTERVAL"
	// MinConfirmationsKey is the number of confirmations a deposit needs before execution
	MinConfirmationsKey = "MIN_CONFIRMATIONS"
	// ExchangeFeeKey is the exchange fee as a fraction of the gross amount
	ExchangeFeeKey = "EXCHANGE_FEE"
	// FallbackGasPriceKey is the gas price in wei used when a chain cannot be queried
	FallbackGasPriceKey = "FALLBACK_GAS_PRICE"
	// ConfirmationTimeoutKey is the duration in seconds to wait for one EVM confirmation
	ConfirmationTimeoutKey = "CONFIRMATION_TIMEOUT"
	// PollIntervalKey is the interval in seconds between EVM log polling runs
	PollIntervalKey = "POLL_INTERVAL"
	// NoEventListenerKey disables the websocket subscription listeners, leaving only the pollers
	NoEventListenerKey = "NO_EVENT_LISTENER"
	// ListeningPortKey is the port where the JSON/HTTP trading interface will listen on
	ListeningPortKey = "LISTENING_PORT"

	// DbLocation is the subdir of the datadir holding the badger stores.
	DbLocation = "db"
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("crosswap-daemon", false)

func init() {
	vip = viper.New()
	vip.SetEnvPrefix("CROSSWAP")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(ExplorerEndpointKey, "https://blockstream.info/api")
	vip.SetDefault(ExplorerRequestTimeoutKey, 15000)
	vip.SetDefault(QuoteExpiryTimeKey, 300)
	vip.SetDefault(DepositIntervalKey, 60)
	vip.SetDefault(MinConfirmationsKey, 1)
	vip.SetDefault(ExchangeFeeKey, 0.002)
	vip.SetDefault(FallbackGasPriceKey, 30000000000)
	vip.SetDefault(ConfirmationTimeoutKey, 80)
	vip.SetDefault(PollIntervalKey, 15)
	vip.SetDefault(NoEventListenerKey, false)
	vip.SetDefault(ListeningPortKey, 9480)

	if err := validate(); err != nil {
		log.WithError(err).Panic("error while validating config")
	}

	if err := initDatadir(); err != nil {
		log.WithError(err).Panic("error while creating datadir")
	}
}

// GetString ...
func GetString(key string) string {
	return vip.GetString(key)
}

// GetInt ...
func GetInt(key string) int {
	return vip.GetInt(key)
}

// GetFloat ...
func GetFloat(key string) float64 {
	return vip.GetFloat64(key)
}

// GetBool ...
func GetBool(key string) bool {
	return vip.GetBool(key)
}

// GetDuration returns the value of the given key, expressed in seconds, as
// a duration.
func GetDuration(key string) time.Duration {
	return time.Duration(vip.GetInt(key)) * time.Second
}

// GetDatadir ...
func GetDatadir() string {
	return GetString(DatadirKey)
}

// Set a value for the given key
func Set(key string, value interface{}) {
	vip.Set(key, value)
}

// IsSet returns whether the given key is set
func IsSet(key string) bool {
	return vip.IsSet(key)
}

// NetworkConfig is the file shape of one supported network.
type NetworkConfig struct {
	Name        string `mapstructure:"name"`
	Type        string `mapstructure:"type"`
	ChainId     uint64 `mapstructure:"chain_id"`
	NativeAsset string `mapstructure:"native_asset"`
	RPCUrl      string `mapstructure:"rpc_url"`
	WsUrl       string `mapstructure:"ws_url"`
	Settlement  string `mapstructure:"settlement_contract"`
	Forwarder   string `mapstructure:"forwarder_contract"`
}

// DeploymentConfig is the file shape of one asset deployment.
type DeploymentConfig struct {
	Asset    string `mapstructure:"asset"`
	Network  string `mapstructure:"network"`
	Contract string `mapstructure:"contract"`
	Decimals int32  `mapstructure:"decimals"`
}

// MarketConfig is the file shape of one supported market.
type MarketConfig struct {
	BaseAsset  string            `mapstructure:"base_asset"`
	QuoteAsset string            `mapstructure:"quote_asset"`
	Symbol     string            `mapstructure:"symbol"`
	Tickers    map[string]string `mapstructure:"tickers"`
}

// FeeTierConfig is the file shape of one platform fee tier.
type FeeTierConfig struct {
	ThresholdUsd float64 `mapstructure:"threshold_usd"`
	Percent      float64 `mapstructure:"percent"`
}

// WebhookConfig is the file shape of one notification endpoint.
type WebhookConfig struct {
	Endpoint string   `mapstructure:"endpoint"`
	Secret   string   `mapstructure:"secret"`
	Topics   []string `mapstructure:"topics"`
}

// PriceConfig is the file shape of one static USD price entry.
type PriceConfig struct {
	Asset    string  `mapstructure:"asset"`
	UsdPrice float64 `mapstructure:"usd_price"`
}

// FileConfig is the structured part of the daemon configuration, read from
// the yaml file pointed by CROSSWAP_CONFIG_PATH.
type FileConfig struct {
	Networks    []NetworkConfig    `mapstructure:"networks"`
	Deployments []DeploymentConfig `mapstructure:"deployments"`
	Markets     []MarketConfig     `mapstructure:"markets"`
	FeeTiers    []FeeTierConfig    `mapstructure:"fee_tiers"`
	Webhooks    []WebhookConfig    `mapstructure:"webhooks"`
	Prices      []PriceConfig      `mapstructure:"prices"`
}

// LoadFileConfig reads and validates the structured config file.
func LoadFileConfig() (*FileConfig, error) {
	path := GetString(ConfigPathKey)
	if path == "" {
		return nil, fmt.Errorf("config file path must not be null")
	}

	fileVip := viper.New()
	fileVip.SetConfigFile(path)
	if err := fileVip.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg FileConfig
	if err := fileVip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *FileConfig) validate() error {
	if len(c.Networks) <= 0 {
		return fmt.Errorf("at least one network must be configured")
	}
	networks := make(map[string]struct{}, len(c.Networks))
	for _, n := range c.Networks {
		if n.Name == "" {
			return fmt.Errorf("network name must not be null")
		}
		if n.Type != "evm" && n.Type != "utxo" {
			return fmt.Errorf("unknown type %s for network %s", n.Type, n.Name)
		}
		if n.Type == "evm" && n.ChainId == 0 {
			return fmt.Errorf("missing chain id for evm network %s", n.Name)
		}
		networks[n.Name] = struct{}{}
	}
	for _, d := range c.Deployments {
		if _, ok := networks[d.Network]; !ok {
			return fmt.Errorf(
				"deployment of %s references unknown network %s",
				d.Asset, d.Network,
			)
		}
	}
	for _, m := range c.Markets {
		if m.BaseAsset == "" || m.QuoteAsset == "" || m.Symbol == "" {
			return fmt.Errorf("markets must specify base asset, quote asset and symbol")
		}
	}
	for _, t := range c.FeeTiers {
		if t.Percent < 0 || t.Percent >= 1 {
			return fmt.Errorf("fee tier percent must be a fraction in [0, 1)")
		}
	}
	return nil
}

// Registry builds the application registry from the file config.
func (c *FileConfig) Registry() *application.Registry {
	markets := make([]application.Market, 0, len(c.Markets))
	for _, m := range c.Markets {
		markets = append(markets, application.Market{
			BaseAsset:  m.BaseAsset,
			QuoteAsset: m.QuoteAsset,
			Symbol:     m.Symbol,
		})
	}
	networks := make([]application.NetworkInfo, 0, len(c.Networks))
	for _, n := range c.Networks {
		networks = append(networks, application.NetworkInfo{
			Name:        n.Name,
			Type:        domainNetworkType(n.Type),
			ChainId:     n.ChainId,
			NativeAsset: n.NativeAsset,
		})
	}
	deployments := make([]application.AssetDeployment, 0, len(c.Deployments))
	for _, d := range c.Deployments {
		deployments = append(deployments, application.AssetDeployment{
			Asset:    d.Asset,
			Network:  d.Network,
			Contract: d.Contract,
			Decimals: d.Decimals,
		})
	}
	return application.NewRegistry(markets, networks, deployments)
}

// FeeConfig builds the application fee configuration from the env and file
// config.
func (c *FileConfig) FeeConfig() application.FeeConfig {
	tiers := make([]application.FeeTier, 0, len(c.FeeTiers))
	for _, t := range c.FeeTiers {
		tiers = append(tiers, application.FeeTier{
			ThresholdUsd: decimal.NewFromFloat(t.ThresholdUsd),
			Percent:      decimal.NewFromFloat(t.Percent),
		})
	}
	return application.FeeConfig{
		ExchangeFeePercent:  decimal.NewFromFloat(GetFloat(ExchangeFeeKey)),
		Tiers:               tiers,
		FallbackGasPriceWei: big.NewInt(int64(GetInt(FallbackGasPriceKey))),
	}
}

// UsdPrices builds the static price table from the file config.
func (c *FileConfig) UsdPrices() map[string]decimal.Decimal {
	prices := make(map[string]decimal.Decimal, len(c.Prices))
	for _, p := range c.Prices {
		prices[p.Asset] = decimal.NewFromFloat(p.UsdPrice)
	}
	return prices
}

// TickersForSource collects the per-market exchange tickers of the given
// liquidity source name.
func (c *FileConfig) TickersForSource(source string) map[string]string {
	tickers := make(map[string]string)
	for _, m := range c.Markets {
		if ticker, ok := m.Tickers[source]; ok {
			tickers[m.Symbol] = ticker
		}
	}
	return tickers
}

func domainNetworkType(t string) domain.NetworkType {
	return domain.NetworkType(t)
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("datadir must not be null")
	}

	exchangeFee := GetFloat(ExchangeFeeKey)
	if exchangeFee < 0 || exchangeFee >= 1 {
		return fmt.Errorf("exchange fee must be a fraction in [0, 1)")
	}
	return nil
}

func initDatadir() error {
	datadir := GetDatadir()
	return makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation))
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
