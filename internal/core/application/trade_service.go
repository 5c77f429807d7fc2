package application

import (
	"context"
	"encoding/json"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/crosswap-network/crosswap-daemon/internal/core/domain"
	"github.com/crosswap-network/crosswap-daemon/internal/core/ports"
)

// TradeService drives a quoted conversion through settlement: it pulls the
// user's funds in (or observes their arrival), recomputes costs against the
// actual execution, and pays the net amount out on the destination network.
type TradeService interface {
	// ExecuteTrade and ExecuteNativeSwap accept a destination network and a
	// recipient address so quotes issued without a pinned destination can be
	// settled on any of their receiving options. Both fall back to what the
	// quote carries when left empty.
	ExecuteTrade(
		ctx context.Context, quoteId, destinationNetwork, recipientAddress string,
		permit ports.PermitParams,
	) (*TradeNotification, error)
	ExecuteNativeSwap(
		ctx context.Context, quoteId, destinationNetwork, recipientAddress string,
		req ports.ForwardRequest, signature []byte,
	) (*TradeNotification, error)
	ExecuteNativeSwapFromEvent(event ports.SwapEvent)
	ExecuteTradeFromDeposit(
		ctx context.Context, address *domain.DepositAddress,
	) error
}

type tradeService struct {
	registry        *Registry
	feeSvc          *FeeService
	pricer          ports.Pricer
	settlement      ports.EvmSettlement
	payoutSvc       UtxoPayoutService
	quoteRepository domain.QuoteRepository
	tradeRepository domain.TradeRepository
	pubsub          ports.PubSubService
}

func NewTradeService(
	registry *Registry,
	feeSvc *FeeService,
	pricer ports.Pricer,
	settlement ports.EvmSettlement,
	payoutSvc UtxoPayoutService,
	quoteRepository domain.QuoteRepository,
	tradeRepository domain.TradeRepository,
	pubsub ports.PubSubService,
) TradeService {
	return &tradeService{
		registry:        registry,
		feeSvc:          feeSvc,
		pricer:          pricer,
		settlement:      settlement,
		payoutSvc:       payoutSvc,
		quoteRepository: quoteRepository,
		tradeRepository: tradeRepository,
		pubsub:          pubsub,
	}
}

// ExecuteTrade settles an ERC-20 origin trade. The permit lets the
// settlement contract pull the user's tokens without a prior approval tx.
func (s *tradeService) ExecuteTrade(
	ctx context.Context, quoteId, destinationNetwork, recipientAddress string,
	permit ports.PermitParams,
) (*TradeNotification, error) {
	quote, err := s.validateQuote(ctx, quoteId)
	if err != nil {
		return nil, err
	}
	sourceNetwork, _ := s.registry.Network(quote.FromNetwork)

	// Settlement is resolved before any funds move so a bad destination or
	// recipient rejects the request without leaving a trade behind.
	plan, err := s.resolveSettlement(ctx, quote, destinationNetwork, recipientAddress)
	if err != nil {
		return nil, err
	}

	trade := domain.NewTrade(quoteId)
	if err := s.tradeRepository.AddTrade(ctx, trade); err != nil {
		if err == domain.ErrTradeAlreadyExists {
			return nil, ErrQuoteAlreadyUsed
		}
		return nil, err
	}

	result, err := s.settlement.ExecuteContractCall(
		ctx, quoteId, permit, sourceNetwork.ChainId,
	)
	if err != nil {
		return nil, s.failTrade(ctx, trade.Id, quoteId, err)
	}

	return s.settle(ctx, trade.Id, quote, sourceNetwork, plan, result)
}

// ExecuteNativeSwap settles a native-coin origin trade relayed through the
// trusted forwarder as a signed meta-transaction.
func (s *tradeService) ExecuteNativeSwap(
	ctx context.Context, quoteId, destinationNetwork, recipientAddress string,
	req ports.ForwardRequest, signature []byte,
) (*TradeNotification, error) {
	quote, err := s.validateQuote(ctx, quoteId)
	if err != nil {
		return nil, err
	}
	sourceNetwork, _ := s.registry.Network(quote.FromNetwork)

	plan, err := s.resolveSettlement(ctx, quote, destinationNetwork, recipientAddress)
	if err != nil {
		return nil, err
	}

	trade := domain.NewTrade(quoteId)
	if err := s.tradeRepository.AddTrade(ctx, trade); err != nil {
		if err == domain.ErrTradeAlreadyExists {
			return nil, ErrQuoteAlreadyUsed
		}
		return nil, err
	}

	result, err := s.settlement.ExecuteMetaTransaction(
		ctx, sourceNetwork.ChainId, req, signature,
	)
	if err != nil {
		return nil, s.failTrade(ctx, trade.Id, quoteId, err)
	}

	return s.settle(ctx, trade.Id, quote, sourceNetwork, plan, result)
}

// ExecuteNativeSwapFromEvent reacts to a swap already confirmed on-chain:
// the deposit leg is done, only the payout remains. The unique index on
// QuoteId makes redelivered events a no-op.
func (s *tradeService) ExecuteNativeSwapFromEvent(event ports.SwapEvent) {
	ctx := context.Background()

	quote, err := s.lookupQuote(ctx, event.QuoteId)
	if err != nil {
		if err == ErrQuoteAlreadyUsed {
			log.WithField("quote_id", event.QuoteId).
				Debug("swap event already handled")
			return
		}
		log.WithError(err).WithField("quote_id", event.QuoteId).
			Warn("dropping swap event")
		return
	}
	sourceNetwork, _ := s.registry.Network(quote.FromNetwork)

	trade := domain.NewProcessingTrade(event.QuoteId, event.TxHash)
	if err := s.tradeRepository.AddTrade(ctx, trade); err != nil {
		if err == domain.ErrTradeAlreadyExists {
			log.WithField("quote_id", event.QuoteId).
				Debug("swap event already handled")
			return
		}
		log.WithError(err).WithField("quote_id", event.QuoteId).
			Error("failed to record trade for swap event")
		return
	}

	// The funds are already on-chain, so a quote that cannot be settled is
	// recorded as a failed trade instead of being silently dropped.
	plan, err := s.resolveSettlement(ctx, quote, "", "")
	if err != nil {
		log.WithError(s.failTrade(ctx, trade.Id, quote.Id, err)).
			WithField("quote_id", event.QuoteId).
			Error("failed to settle swap event")
		return
	}

	result := &ports.CallResult{TxHash: event.TxHash}
	if _, err := s.settle(ctx, trade.Id, quote, sourceNetwork, plan, result); err != nil {
		log.WithError(err).WithField("quote_id", event.QuoteId).
			Error("failed to settle swap event")
	}
}

// ExecuteTradeFromDeposit settles a UTXO-origin trade once the deposit is
// confirmed. The gross amount is recomputed from what actually arrived at
// the locked quote price, then fees are reapplied at the quoted rates.
func (s *tradeService) ExecuteTradeFromDeposit(
	ctx context.Context, address *domain.DepositAddress,
) error {
	quote, err := s.lookupQuote(ctx, address.QuoteId)
	if err != nil {
		// A redelivered confirmation for an already settled deposit is not
		// an error.
		if err == ErrQuoteAlreadyUsed {
			return nil
		}
		return err
	}

	trade := domain.NewProcessingTrade(address.QuoteId, address.TxHash)
	if err := s.tradeRepository.AddTrade(ctx, trade); err != nil {
		if err == domain.ErrTradeAlreadyExists {
			return nil
		}
		return err
	}

	plan, err := s.resolveSettlement(ctx, quote, "", "")
	if err != nil {
		return s.failTrade(ctx, trade.Id, quote.Id, err)
	}

	received := decimal.New(int64(address.ReceivedAmount), -satsPrecision)
	gross := received.Mul(quote.Price)
	exchangeFee := s.feeSvc.CalculateExchangeFee(gross)
	tradeValueUsd, err := s.pricer.UsdValue(quote.FromAsset, received)
	if err != nil {
		return s.failTrade(ctx, trade.Id, quote.Id, err)
	}
	platformFee := s.feeSvc.CalculatePlatformFee(tradeValueUsd, gross)

	net := gross.Sub(exchangeFee).Sub(platformFee)
	destTxHash, err := s.dispatchPayout(ctx, quote, plan, net)
	if err != nil {
		return s.failTrade(ctx, trade.Id, quote.Id, err)
	}

	return s.complete(ctx, trade.Id, quote, address.TxHash, destTxHash)
}

// settle recomputes the net amount with the actual gas burned by the source
// transaction, then dispatches and records the payout.
func (s *tradeService) settle(
	ctx context.Context, tradeId string, quote *domain.Quote,
	sourceNetwork NetworkInfo, plan *settlementPlan, result *ports.CallResult,
) (*TradeNotification, error) {
	net := quote.NetAmount
	if result.GasUsed > 0 && result.EffectiveGasPrice != nil {
		actualGas, err := s.actualGasCost(quote, sourceNetwork, result)
		if err != nil {
			return nil, s.failTrade(ctx, tradeId, quote.Id, err)
		}
		// The quote carried an estimate; swap it for the real cost.
		net = quote.NetAmount.Add(quote.GasCost).Sub(actualGas)
	}
	// Non-zero only when the destination was chosen at execution time.
	net = net.Sub(plan.destGasCost)

	destTxHash, err := s.dispatchPayout(ctx, quote, plan, net)
	if err != nil {
		return nil, s.failTrade(ctx, tradeId, quote.Id, err)
	}

	if err := s.complete(
		ctx, tradeId, quote, result.TxHash, destTxHash,
	); err != nil {
		return nil, err
	}

	return &TradeNotification{
		TradeId:           tradeId,
		QuoteId:           quote.Id,
		Status:            string(domain.TradeStatusCompleted),
		SourceTxHash:      result.TxHash,
		DestinationTxHash: destTxHash,
		Timestamp:         time.Now(),
	}, nil
}

func (s *tradeService) actualGasCost(
	quote *domain.Quote, sourceNetwork NetworkInfo, result *ports.CallResult,
) (decimal.Decimal, error) {
	costWei := new(big.Int).Mul(
		new(big.Int).SetUint64(result.GasUsed), result.EffectiveGasPrice,
	)
	costNative := decimal.NewFromBigInt(costWei, -weiPrecision)
	return s.pricer.Convert(sourceNetwork.NativeAsset, quote.ToAsset, costNative)
}

// settlementPlan pins the destination rail and recipient of one execution.
type settlementPlan struct {
	destNetwork NetworkInfo
	recipient   string
	// destGasCost is the payout gas of a destination chosen at execution
	// time, in units of the destination asset. Zero when the quote already
	// priced the destination in.
	destGasCost decimal.Decimal
}

// resolveSettlement validates the destination network and recipient of an
// execution against the quote. An explicit choice must match a pinned quote
// or, for an open quote, one of its EVM receiving options; the payout gas of
// a late choice is estimated here since the quote could not price it.
func (s *tradeService) resolveSettlement(
	ctx context.Context, quote *domain.Quote,
	destinationNetwork, recipientAddress string,
) (*settlementPlan, error) {
	destination := quote.ToNetwork
	if destinationNetwork != "" {
		if quote.ToNetwork != "" && destinationNetwork != quote.ToNetwork {
			return nil, ErrDestinationNotOffered
		}
		destination = destinationNetwork
	}
	if destination == "" {
		return nil, ErrMissingDestination
	}

	destNetwork, ok := s.registry.Network(destination)
	if !ok {
		return nil, ErrDestinationNotOffered
	}
	// Open quotes only offer the configured EVM deployments.
	if quote.ToNetwork == "" && destNetwork.Type != domain.NetworkTypeEvm {
		return nil, ErrDestinationNotOffered
	}

	recipient := quote.RecipientAddress
	if recipientAddress != "" {
		recipient = recipientAddress
	}
	if recipient == "" {
		return nil, ErrMissingRecipient
	}

	plan := &settlementPlan{destNetwork: destNetwork, recipient: recipient}
	if destNetwork.Type == domain.NetworkTypeEvm {
		deployment, ok := s.registry.Deployment(quote.ToAsset, destination)
		if !ok {
			return nil, ErrDestinationNotOffered
		}
		if quote.ToNetwork == "" {
			op := GasOpTokenTransfer
			if deployment.Contract == "" {
				op = GasOpTransfer
			}
			gasNative := s.feeSvc.EstimateGasCost(ctx, destNetwork.ChainId, op)
			gasCost, err := s.pricer.Convert(
				destNetwork.NativeAsset, quote.ToAsset, gasNative,
			)
			if err != nil {
				return nil, err
			}
			plan.destGasCost = gasCost
		}
	}
	return plan, nil
}

// dispatchPayout sends the net amount over the resolved destination rail.
func (s *tradeService) dispatchPayout(
	ctx context.Context, quote *domain.Quote, plan *settlementPlan,
	net decimal.Decimal,
) (string, error) {
	if net.LessThanOrEqual(decimal.Zero) {
		return "", ErrInvalidAmount
	}

	switch plan.destNetwork.Type {
	case domain.NetworkTypeEvm:
		deployment, ok := s.registry.Deployment(quote.ToAsset, plan.destNetwork.Name)
		if !ok {
			return "", ErrAssetNotConfigured
		}
		if deployment.Contract == "" {
			return s.settlement.PayoutNative(
				ctx, plan.destNetwork.ChainId, plan.recipient, net,
			)
		}
		return s.settlement.PayoutToken(
			ctx, plan.destNetwork.ChainId, deployment.Contract,
			plan.recipient, net, deployment.Decimals,
		)

	case domain.NetworkTypeUtxo:
		sats := net.Shift(satsPrecision).IntPart()
		if sats <= 0 {
			return "", ErrInvalidAmount
		}
		return s.payoutSvc.Payout(ctx, plan.recipient, uint64(sats))
	}

	return "", ErrUnsupportedNetworkType
}

func (s *tradeService) validateQuote(
	ctx context.Context, quoteId string,
) (*domain.Quote, error) {
	quote, err := s.lookupQuote(ctx, quoteId)
	if err != nil {
		return nil, err
	}
	if quote.IsExpired() {
		return nil, ErrQuoteExpired
	}
	return quote, nil
}

// lookupQuote skips the expiry check: it serves the event and deposit
// driven paths, where the user's funds are already in custody and refusing
// to settle would strand them.
func (s *tradeService) lookupQuote(
	ctx context.Context, quoteId string,
) (*domain.Quote, error) {
	quote, err := s.quoteRepository.GetQuote(ctx, quoteId)
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, ErrQuoteNotFound
	}
	if trade, _ := s.tradeRepository.GetTradeByQuoteId(ctx, quoteId); trade != nil {
		return nil, ErrQuoteAlreadyUsed
	}
	return quote, nil
}

func (s *tradeService) complete(
	ctx context.Context, tradeId string, quote *domain.Quote,
	sourceTxHash, destTxHash string,
) error {
	if err := s.tradeRepository.UpdateTrade(
		ctx, tradeId, func(t *domain.Trade) (*domain.Trade, error) {
			if err := t.Complete(sourceTxHash, destTxHash); err != nil {
				return nil, err
			}
			return t, nil
		},
	); err != nil {
		return err
	}

	s.publish(TopicTradeCompleted, TradeNotification{
		TradeId:           tradeId,
		QuoteId:           quote.Id,
		Status:            string(domain.TradeStatusCompleted),
		SourceTxHash:      sourceTxHash,
		DestinationTxHash: destTxHash,
		Timestamp:         time.Now(),
	})
	return nil
}

// failTrade marks the trade FAILED and returns the original error so the
// caller surfaces the settlement failure, not the bookkeeping.
func (s *tradeService) failTrade(
	ctx context.Context, tradeId, quoteId string, cause error,
) error {
	if err := s.tradeRepository.UpdateTrade(
		ctx, tradeId, func(t *domain.Trade) (*domain.Trade, error) {
			if err := t.Fail(cause.Error()); err != nil {
				return nil, err
			}
			return t, nil
		},
	); err != nil {
		log.WithError(err).WithField("trade_id", tradeId).
			Error("failed to mark trade as failed")
	}

	s.publish(TopicTradeFailed, TradeNotification{
		TradeId:       tradeId,
		QuoteId:       quoteId,
		Status:        string(domain.TradeStatusFailed),
		FailureReason: cause.Error(),
		Timestamp:     time.Now(),
	})
	return cause
}

func (s *tradeService) publish(topic string, payload interface{}) {
	if s.pubsub == nil {
		return
	}
	message, err := json.Marshal(payload)
	if err != nil {
		log.WithError(err).Warn("failed to serialize notification")
		return
	}
	if err := s.pubsub.Publish(topic, string(message)); err != nil {
		log.WithError(err).WithField("topic", topic).
			Warn("failed to publish notification")
	}
}
