package application

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/crosswap-network/crosswap-daemon/internal/core/domain"
	"github.com/crosswap-network/crosswap-daemon/internal/core/ports"
)

// amountEpsilon bounds the rounding error tolerated when checking that a
// book fill covers the full requested amount.
var amountEpsilon = decimal.New(1, -9)

// QuoteService turns a requested conversion into a priced, fee-accounted,
// time-boxed offer persisted as a Quote.
type QuoteService interface {
	GetQuote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error)
}

type quoteService struct {
	registry        *Registry
	sources         []ports.LiquiditySource
	feeSvc          *FeeService
	pricer          ports.Pricer
	walletSvc       WalletService
	payoutSvc       UtxoPayoutService
	quoteRepository domain.QuoteRepository
	expiryWindow    time.Duration
}

// NewQuoteService returns a QuoteService aggregating best-execution price
// across the given liquidity sources.
func NewQuoteService(
	registry *Registry,
	sources []ports.LiquiditySource,
	feeSvc *FeeService,
	pricer ports.Pricer,
	walletSvc WalletService,
	payoutSvc UtxoPayoutService,
	quoteRepository domain.QuoteRepository,
	expiryWindow time.Duration,
) QuoteService {
	if expiryWindow <= 0 {
		expiryWindow = DefaultQuoteExpiry
	}
	return &quoteService{
		registry:        registry,
		sources:         sources,
		feeSvc:          feeSvc,
		pricer:          pricer,
		walletSvc:       walletSvc,
		payoutSvc:       payoutSvc,
		quoteRepository: quoteRepository,
		expiryWindow:    expiryWindow,
	}
}

func (s *quoteService) GetQuote(
	ctx context.Context, req QuoteRequest,
) (*QuoteResponse, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	sourceNetwork, ok := s.registry.Network(req.FromNetwork)
	if !ok || !sourceNetwork.Type.IsValid() {
		return nil, ErrUnsupportedNetworkType
	}
	if sourceNetwork.Type == domain.NetworkTypeUtxo {
		if req.RecipientAddress == "" {
			return nil, ErrMissingRecipient
		}
		// Deposit-triggered execution leaves no later chance to choose, so
		// the destination must be pinned up front.
		if req.ToNetwork == "" {
			return nil, ErrMissingDestination
		}
	}
	if req.ToNetwork != "" {
		destNetwork, ok := s.registry.Network(req.ToNetwork)
		if !ok || !destNetwork.Type.IsValid() {
			return nil, ErrUnsupportedNetworkType
		}
	}

	market, inverted, ok := s.registry.ResolveMarket(req.FromAsset, req.ToAsset)
	if !ok {
		return nil, ErrUnsupportedMarket
	}

	books := s.fetchOrderBooks(ctx, market.Symbol)
	if len(books) <= 0 {
		return nil, ErrInsufficientLiquidity
	}

	bestSource, grossAmount, ok := bestExecution(books, req.Amount, inverted)
	if !ok {
		return nil, ErrInsufficientLiquidity
	}

	price := grossAmount.Div(req.Amount)

	tradeValueUsd, err := s.pricer.UsdValue(req.FromAsset, req.Amount)
	if err != nil {
		return nil, err
	}
	exchangeFee := s.feeSvc.CalculateExchangeFee(grossAmount)
	platformFee := s.feeSvc.CalculatePlatformFee(tradeValueUsd, grossAmount)

	// UTXO sources pay their own on-chain fee to the deposit address, so no
	// source-side gas is accounted there.
	sourceGasCost := decimal.Zero
	if sourceNetwork.Type == domain.NetworkTypeEvm {
		gasNative := s.feeSvc.EstimateGasCost(
			ctx, sourceNetwork.ChainId, GasOpContractCall,
		)
		sourceGasCost, err = s.pricer.Convert(
			sourceNetwork.NativeAsset, req.ToAsset, gasNative,
		)
		if err != nil {
			return nil, err
		}
	}

	baseNet := grossAmount.Sub(exchangeFee).Sub(platformFee).Sub(sourceGasCost)

	quote := &domain.Quote{
		Id:               uuid.New().String(),
		CreatedAt:        time.Now(),
		FromAsset:        req.FromAsset,
		FromNetwork:      req.FromNetwork,
		ToAsset:          req.ToAsset,
		ToNetwork:        req.ToNetwork,
		AmountIn:         req.Amount,
		LiquiditySource:  bestSource,
		Price:            price,
		GrossAmount:      grossAmount,
		ExchangeFee:      exchangeFee,
		PlatformFee:      platformFee,
		RecipientAddress: req.RecipientAddress,
	}
	quote.ExpiresAt = quote.CreatedAt.Add(s.expiryWindow)

	destType, err := s.destinationType(req)
	if err != nil {
		return nil, err
	}

	var receivingOptions []ReceiveOption
	switch destType {
	case domain.NetworkTypeEvm:
		// One receiving option per configured deployment lets the caller
		// choose the settlement network after seeing its costs.
		receivingOptions, err = s.evmReceivingOptions(ctx, req, baseNet)
		if err != nil {
			return nil, err
		}
		quote.GasCost = sourceGasCost
		quote.NetAmount = baseNet

	case domain.NetworkTypeUtxo:
		payoutFeeSats, err := s.payoutSvc.EstimatePayoutFee(ctx)
		if err != nil {
			return nil, err
		}
		payoutFee := decimal.New(int64(payoutFeeSats), -satsPrecision)
		quote.GasCost = sourceGasCost.Add(payoutFee)
		quote.NetAmount = baseNet.Sub(payoutFee)
	}

	var depositAddress *domain.DepositAddress
	if sourceNetwork.Type == domain.NetworkTypeUtxo {
		addrInfo, err := s.walletSvc.AllocateNewAddress(ctx)
		if err != nil {
			return nil, err
		}
		depositAddress = domain.NewDepositAddress(
			addrInfo.Address, addrInfo.DerivationPath, req.FromNetwork, quote.Id,
		)
		quote.DepositAddress = addrInfo.Address
	}

	if err := quote.Validate(); err != nil {
		return nil, err
	}
	if err := s.quoteRepository.AddQuote(ctx, quote, depositAddress); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"quote_id": quote.Id,
		"source":   bestSource,
		"market":   market.Symbol,
	}).Debug("quote created")

	return &QuoteResponse{
		QuoteId:          quote.Id,
		CreatedAt:        quote.CreatedAt,
		ExpiresAt:        quote.ExpiresAt,
		FromAsset:        quote.FromAsset,
		FromNetwork:      quote.FromNetwork,
		ToAsset:          quote.ToAsset,
		AmountIn:         quote.AmountIn,
		LiquiditySource:  quote.LiquiditySource,
		Price:            quote.Price,
		GrossAmount:      quote.GrossAmount,
		ExchangeFee:      quote.ExchangeFee,
		PlatformFee:      quote.PlatformFee,
		GasCost:          quote.GasCost,
		NetAmount:        quote.NetAmount,
		ReceivingOptions: receivingOptions,
		DepositAddress:   quote.DepositAddress,
	}, nil
}

// fetchOrderBooks queries all configured sources concurrently, discarding
// individual failures. Partial results are acceptable.
func (s *quoteService) fetchOrderBooks(
	ctx context.Context, symbol string,
) map[string]*ports.OrderBook {
	var mtx sync.Mutex
	books := make(map[string]*ports.OrderBook)

	eg := &errgroup.Group{}
	for i := range s.sources {
		source := s.sources[i]
		eg.Go(func() error {
			book, err := source.GetOrderBook(ctx, symbol)
			if err != nil {
				log.WithError(err).WithField("source", source.Name()).
					Warn("discarding failed liquidity source")
				return nil
			}
			mtx.Lock()
			books[source.Name()] = book
			mtx.Unlock()
			return nil
		})
	}
	// Sources never return an error here, failures only shrink the map.
	_ = eg.Wait()

	return books
}

// bestExecution walks every book level by level and returns the single
// best-performing source together with the gross destination amount it
// yields. Sources unable to fully fill the requested amount are excluded,
// not partially used; ties are broken by the highest destination amount.
func bestExecution(
	books map[string]*ports.OrderBook, amount decimal.Decimal, inverted bool,
) (string, decimal.Decimal, bool) {
	var bestSource string
	bestGross := decimal.Zero

	for name, book := range books {
		gross, filled := walkBook(book, amount, inverted)
		if !filled {
			continue
		}
		if gross.GreaterThan(bestGross) {
			bestSource = name
			bestGross = gross
		}
	}

	return bestSource, bestGross, bestSource != ""
}

// walkBook accumulates levels until the requested source amount is exactly
// filled within epsilon. For a forward market the source asset is the base,
// so bids are consumed and the gross is the accumulated cost; for an
// inverted one the source asset is the quote, so asks are consumed and the
// gross is the accumulated base quantity.
func walkBook(
	book *ports.OrderBook, amount decimal.Decimal, inverted bool,
) (decimal.Decimal, bool) {
	remaining := amount
	gross := decimal.Zero

	if !inverted {
		for _, level := range book.Bids {
			take := decimal.Min(level.Amount, remaining)
			gross = gross.Add(take.Mul(level.Price))
			remaining = remaining.Sub(take)
			if remaining.LessThanOrEqual(amountEpsilon) {
				return gross, true
			}
		}
		return decimal.Zero, false
	}

	for _, level := range book.Asks {
		levelCost := level.Amount.Mul(level.Price)
		spend := decimal.Min(levelCost, remaining)
		gross = gross.Add(spend.Div(level.Price))
		remaining = remaining.Sub(spend)
		if remaining.LessThanOrEqual(amountEpsilon) {
			return gross, true
		}
	}
	return decimal.Zero, false
}

func (s *quoteService) destinationType(req QuoteRequest) (domain.NetworkType, error) {
	if req.ToNetwork != "" {
		destNetwork, _ := s.registry.Network(req.ToNetwork)
		return destNetwork.Type, nil
	}
	deployments := s.registry.DeploymentsForAsset(req.ToAsset)
	if len(deployments) > 0 {
		return domain.NetworkTypeEvm, nil
	}
	return "", ErrAssetNotConfigured
}

func (s *quoteService) evmReceivingOptions(
	ctx context.Context, req QuoteRequest, baseNet decimal.Decimal,
) ([]ReceiveOption, error) {
	deployments := s.registry.DeploymentsForAsset(req.ToAsset)
	if req.ToNetwork != "" {
		filtered := make([]AssetDeployment, 0, 1)
		for _, d := range deployments {
			if d.Network == req.ToNetwork {
				filtered = append(filtered, d)
			}
		}
		deployments = filtered
	}
	if len(deployments) <= 0 {
		return nil, ErrAssetNotConfigured
	}

	options := make([]ReceiveOption, 0, len(deployments))
	for _, dep := range deployments {
		network, ok := s.registry.Network(dep.Network)
		if !ok {
			continue
		}
		op := GasOpTokenTransfer
		if dep.Contract == "" {
			op = GasOpTransfer
		}
		gasNative := s.feeSvc.EstimateGasCost(ctx, network.ChainId, op)
		gasCost, err := s.pricer.Convert(network.NativeAsset, req.ToAsset, gasNative)
		if err != nil {
			return nil, err
		}
		options = append(options, ReceiveOption{
			Network:   dep.Network,
			ChainId:   network.ChainId,
			GasCost:   gasCost,
			NetAmount: baseNet.Sub(gasCost),
		})
	}
	return options, nil
}
