package application

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/crosswap-network/crosswap-daemon/internal/core/domain"
	"github.com/crosswap-network/crosswap-daemon/internal/core/ports"
	"github.com/crosswap-network/crosswap-daemon/pkg/explorer"
)

// DepositMonitor periodically scans pending deposit addresses against the
// chain explorer and hands confirmed deposits to the trade service.
type DepositMonitor interface {
	Start()
	Stop()
}

type depositMonitor struct {
	explorers        map[string]explorer.Service
	addressRepo      domain.DepositAddressRepository
	tradeSvc         TradeService
	pubsub           ports.PubSubService
	interval         time.Duration
	minConfirmations int64
	limiter          *rate.Limiter

	busy int32
	quit chan struct{}
	done chan struct{}
}

func NewDepositMonitor(
	explorers map[string]explorer.Service,
	addressRepo domain.DepositAddressRepository,
	tradeSvc TradeService,
	pubsub ports.PubSubService,
	interval time.Duration,
	minConfirmations int64,
) DepositMonitor {
	if interval <= 0 {
		interval = DefaultDepositMonitorInterval
	}
	if minConfirmations <= 0 {
		minConfirmations = DefaultMinConfirmations
	}
	return &depositMonitor{
		explorers:        explorers,
		addressRepo:      addressRepo,
		tradeSvc:         tradeSvc,
		pubsub:           pubsub,
		interval:         interval,
		minConfirmations: minConfirmations,
		limiter:          rate.NewLimiter(rate.Limit(4), 1),
		quit:             make(chan struct{}),
		done:             make(chan struct{}),
	}
}

func (m *depositMonitor) Start() {
	go m.loop()
	log.WithField("interval", m.interval.String()).Info("deposit monitor started")
}

func (m *depositMonitor) Stop() {
	close(m.quit)
	<-m.done
	log.Info("deposit monitor stopped")
}

func (m *depositMonitor) loop() {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.scan()
	for {
		select {
		case <-m.quit:
			return
		case <-ticker.C:
			m.scan()
		}
	}
}

// scan is single-flight: if a previous run is still paging through the
// explorer when the ticker fires, the new tick is skipped instead of
// stacking requests.
func (m *depositMonitor) scan() {
	if !atomic.CompareAndSwapInt32(&m.busy, 0, 1) {
		log.Debug("deposit scan still in progress, skipping tick")
		return
	}
	defer atomic.StoreInt32(&m.busy, 0)

	ctx := context.Background()
	pending, err := m.addressRepo.GetAllPendingDepositAddresses(ctx)
	if err != nil {
		log.WithError(err).Error("failed to list pending deposit addresses")
		return
	}
	if len(pending) <= 0 {
		return
	}

	byNetwork := make(map[string][]*domain.DepositAddress)
	for _, addr := range pending {
		byNetwork[addr.Network] = append(byNetwork[addr.Network], addr)
	}

	for network, addresses := range byNetwork {
		svc, ok := m.explorers[network]
		if !ok {
			log.WithField("network", network).
				Warn("no explorer configured for network, skipping addresses")
			continue
		}
		m.scanNetwork(ctx, network, svc, addresses)
	}
}

func (m *depositMonitor) scanNetwork(
	ctx context.Context, network string,
	svc explorer.Service, addresses []*domain.DepositAddress,
) {
	tip, err := svc.GetBlockHeight()
	if err != nil {
		log.WithError(err).WithField("network", network).
			Warn("failed to fetch chain tip, skipping scan")
		return
	}

	for _, addr := range addresses {
		if err := m.limiter.Wait(ctx); err != nil {
			return
		}
		if err := m.checkAddress(ctx, svc, tip, addr); err != nil {
			log.WithError(err).WithField("address", addr.Address).
				Warn("failed to check deposit address")
		}
	}
}

func (m *depositMonitor) checkAddress(
	ctx context.Context, svc explorer.Service,
	tip int64, addr *domain.DepositAddress,
) error {
	txs, err := svc.GetTransactionsForAddress(addr.Address)
	if err != nil {
		return err
	}

	for _, tx := range txs {
		if !tx.Confirmed {
			continue
		}
		confirmations := tip - tx.BlockHeight + 1
		if confirmations < m.minConfirmations {
			continue
		}
		amount := tx.AmountForAddress(addr.Address)
		if amount <= 0 {
			continue
		}
		return m.confirmDeposit(ctx, addr, tx.TxHash, amount)
	}
	return nil
}

func (m *depositMonitor) confirmDeposit(
	ctx context.Context, addr *domain.DepositAddress,
	txHash string, amount uint64,
) error {
	var confirmed *domain.DepositAddress
	if err := m.addressRepo.UpdateDepositAddress(
		ctx, addr.Address,
		func(a *domain.DepositAddress) (*domain.DepositAddress, error) {
			if err := a.Confirm(txHash, amount); err != nil {
				return nil, err
			}
			confirmed = a
			return a, nil
		},
	); err != nil {
		// A concurrent or earlier scan already confirmed this one.
		if err == domain.ErrDepositAlreadyConfirmed {
			return nil
		}
		return err
	}

	log.WithFields(log.Fields{
		"address": addr.Address,
		"tx_hash": txHash,
		"amount":  amount,
	}).Info("deposit confirmed")

	m.publishDeposit(confirmed)

	if err := m.tradeSvc.ExecuteTradeFromDeposit(ctx, confirmed); err != nil {
		log.WithError(err).WithField("quote_id", confirmed.QuoteId).
			Error("failed to execute trade for confirmed deposit")
	}
	return nil
}

func (m *depositMonitor) publishDeposit(addr *domain.DepositAddress) {
	if m.pubsub == nil {
		return
	}
	message, err := json.Marshal(DepositNotification{
		QuoteId:   addr.QuoteId,
		Address:   addr.Address,
		TxHash:    addr.TxHash,
		Amount:    addr.ReceivedAmount,
		Network:   addr.Network,
		Timestamp: time.Now(),
	})
	if err != nil {
		log.WithError(err).Warn("failed to serialize deposit notification")
		return
	}
	if err := m.pubsub.Publish(TopicDepositConfirmed, string(message)); err != nil {
		log.WithError(err).Warn("failed to publish deposit notification")
	}
}
