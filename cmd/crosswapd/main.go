package main

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/ethclient"
	log "github.com/sirupsen/logrus"

	"github.com/crosswap-network/crosswap-daemon/internal/config"
	"github.com/crosswap-network/crosswap-daemon/internal/core/application"
	"github.com/crosswap-network/crosswap-daemon/internal/core/domain"
	"github.com/crosswap-network/crosswap-daemon/internal/core/ports"
	"github.com/crosswap-network/crosswap-daemon/internal/infrastructure/evm"
	bitfinexliquidity "github.com/crosswap-network/crosswap-daemon/internal/infrastructure/liquidity/bitfinex"
	krakenliquidity "github.com/crosswap-network/crosswap-daemon/internal/infrastructure/liquidity/kraken"
	staticpricefeed "github.com/crosswap-network/crosswap-daemon/internal/infrastructure/pricefeed/static"
	webhookpubsub "github.com/crosswap-network/crosswap-daemon/internal/infrastructure/pubsub/webhook"
	dbbadger "github.com/crosswap-network/crosswap-daemon/internal/infrastructure/storage/db/badger"
	httpinterface "github.com/crosswap-network/crosswap-daemon/internal/interfaces/http"
	"github.com/crosswap-network/crosswap-daemon/pkg/explorer"
	"github.com/crosswap-network/crosswap-daemon/pkg/explorer/esplora"
	"github.com/crosswap-network/crosswap-daemon/pkg/wallet"
)

const (
	depositWalletId    = "deposit"
	depositPathPattern = "m/84'/0'/0'/0/%d"
)

func main() {
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	fileConfig, err := config.LoadFileConfig()
	if err != nil {
		log.WithError(err).Panic("error while loading config file")
	}
	registry := fileConfig.Registry()

	dbDir := filepath.Join(config.GetDatadir(), config.DbLocation)
	dbManager, err := dbbadger.NewDbManager(dbDir, nil)
	if err != nil {
		log.WithError(err).Panic("error while opening db")
	}
	defer dbManager.Close()

	quoteRepo := dbbadger.NewQuoteRepositoryImpl(dbManager)
	tradeRepo := dbbadger.NewTradeRepositoryImpl(dbManager)
	addressRepo := dbbadger.NewDepositAddressRepositoryImpl(dbManager)
	walletStateRepo := dbbadger.NewWalletStateRepositoryImpl(dbManager)
	scanCursorRepo := dbbadger.NewScanCursorRepositoryImpl(dbManager)

	seed, err := hex.DecodeString(config.GetString(config.WalletSeedKey))
	if err != nil {
		log.WithError(err).Panic("invalid wallet seed")
	}
	custodialWallet, err := wallet.NewWalletFromSeed(seed, &chaincfg.MainNetParams)
	if err != nil {
		log.WithError(err).Panic("error while initializing wallet")
	}

	explorerSvc, err := esplora.NewService(
		config.GetString(config.ExplorerEndpointKey),
		time.Duration(config.GetInt(config.ExplorerRequestTimeoutKey))*time.Millisecond,
	)
	if err != nil {
		log.WithError(err).Panic("error while initializing explorer")
	}

	settlementSvc, err := evm.NewSettlementService(
		evmChains(fileConfig),
		config.GetString(config.OperatorKeyKey),
		config.GetDuration(config.ConfirmationTimeoutKey),
	)
	if err != nil {
		log.WithError(err).Panic("error while initializing evm settlement")
	}

	pricer := staticpricefeed.NewService(fileConfig.UsdPrices())
	feeSvc := application.NewFeeService(fileConfig.FeeConfig(), settlementSvc)
	walletSvc := application.NewWalletService(
		custodialWallet, depositWalletId, depositPathPattern, walletStateRepo,
	)
	payoutSvc := application.NewUtxoPayoutService(
		explorerSvc, custodialWallet, wallet.NewGreedySelector(),
		config.GetString(config.TreasuryAddressKey),
		config.GetString(config.TreasuryDerivationPathKey),
	)

	pubsubSvc, err := webhookpubsub.NewWebhookPubSubService(
		webhooks(fileConfig), 15*time.Second,
	)
	if err != nil {
		log.WithError(err).Panic("error while initializing webhook service")
	}

	quoteSvc := application.NewQuoteService(
		registry,
		liquiditySources(fileConfig),
		feeSvc,
		pricer,
		walletSvc,
		payoutSvc,
		quoteRepo,
		config.GetDuration(config.QuoteExpiryTimeKey),
	)
	tradeSvc := application.NewTradeService(
		registry,
		feeSvc,
		pricer,
		settlementSvc,
		payoutSvc,
		quoteRepo,
		tradeRepo,
		pubsubSvc,
	)

	depositMonitor := application.NewDepositMonitor(
		utxoExplorers(fileConfig, explorerSvc),
		addressRepo,
		tradeSvc,
		pubsubSvc,
		config.GetDuration(config.DepositIntervalKey),
		int64(config.GetInt(config.MinConfirmationsKey)),
	)
	depositMonitor.Start()
	defer depositMonitor.Stop()

	eventSources, err := swapEventSources(fileConfig, scanCursorRepo)
	if err != nil {
		log.WithError(err).Panic("error while initializing evm event sources")
	}
	eventMonitor := application.NewEvmEventMonitor(eventSources, tradeSvc)
	eventMonitor.Start()
	defer eventMonitor.Stop()

	mux := http.NewServeMux()
	httpinterface.RegisterRoutes(
		mux, httpinterface.NewTradingService(quoteSvc, tradeSvc),
	)
	addr := fmt.Sprintf(":%d", config.GetInt(config.ListeningPortKey))
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("trading interface stopped")
		}
	}()
	defer server.Close()

	log.Info("trading interface is listening on " + addr)
	log.Info("daemon started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	log.Info("shutting down")
}

func evmChains(cfg *config.FileConfig) []evm.ChainConfig {
	chains := make([]evm.ChainConfig, 0)
	for _, n := range cfg.Networks {
		if n.Type != string(domain.NetworkTypeEvm) {
			continue
		}
		chains = append(chains, evm.ChainConfig{
			ChainId:            n.ChainId,
			RPCUrl:             n.RPCUrl,
			SettlementContract: n.Settlement,
			ForwarderContract:  n.Forwarder,
		})
	}
	return chains
}

func utxoExplorers(
	cfg *config.FileConfig, explorerSvc explorer.Service,
) map[string]explorer.Service {
	explorers := make(map[string]explorer.Service)
	for _, n := range cfg.Networks {
		if n.Type == string(domain.NetworkTypeUtxo) {
			explorers[n.Name] = explorerSvc
		}
	}
	return explorers
}

func liquiditySources(cfg *config.FileConfig) []ports.LiquiditySource {
	sources := make([]ports.LiquiditySource, 0, 2)

	krakenSvc, err := krakenliquidity.NewService(
		"", 15*time.Second, cfg.TickersForSource("kraken"),
	)
	if err != nil {
		log.WithError(err).Warn("skipping kraken liquidity source")
	} else {
		sources = append(sources, krakenSvc)
	}

	sources = append(sources, bitfinexliquidity.NewService(
		"", 15*time.Second, cfg.TickersForSource("bitfinex"),
	))
	return sources
}

func webhooks(cfg *config.FileConfig) []*webhookpubsub.Webhook {
	hooks := make([]*webhookpubsub.Webhook, 0, len(cfg.Webhooks))
	for _, h := range cfg.Webhooks {
		hook, err := webhookpubsub.NewWebhook(h.Endpoint, h.Secret, h.Topics)
		if err != nil {
			log.WithError(err).WithField("endpoint", h.Endpoint).
				Warn("skipping invalid webhook")
			continue
		}
		hooks = append(hooks, hook)
	}
	return hooks
}

func swapEventSources(
	cfg *config.FileConfig, cursorRepo domain.ScanCursorRepository,
) ([]ports.SwapEventSource, error) {
	sources := make([]ports.SwapEventSource, 0)
	for _, n := range cfg.Networks {
		if n.Type != string(domain.NetworkTypeEvm) || n.Settlement == "" {
			continue
		}

		if !config.GetBool(config.NoEventListenerKey) && n.WsUrl != "" {
			sources = append(sources, evm.NewSubscriptionListener(
				n.WsUrl, n.Name, n.Settlement,
			))
		}

		client, err := ethclient.Dial(n.RPCUrl)
		if err != nil {
			return nil, err
		}
		sources = append(sources, evm.NewLogPoller(
			client, n.Name, n.Settlement, cursorRepo,
			config.GetDuration(config.PollIntervalKey),
		))
	}
	return sources, nil
}
