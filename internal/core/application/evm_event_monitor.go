package application

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/crosswap-network/crosswap-daemon/internal/core/ports"
)

// EvmEventMonitor fans in swap events from every configured on-chain source
// and dispatches them to the trade service.
type EvmEventMonitor interface {
	Start()
	Stop()
}

type evmEventMonitor struct {
	sources  []ports.SwapEventSource
	tradeSvc TradeService

	wg   sync.WaitGroup
	quit chan struct{}
}

func NewEvmEventMonitor(
	sources []ports.SwapEventSource, tradeSvc TradeService,
) EvmEventMonitor {
	return &evmEventMonitor{
		sources:  sources,
		tradeSvc: tradeSvc,
		quit:     make(chan struct{}),
	}
}

func (m *evmEventMonitor) Start() {
	for _, source := range m.sources {
		source.Start()
		m.wg.Add(1)
		go m.consume(source)
	}
	log.WithField("sources", len(m.sources)).Info("evm event monitor started")
}

func (m *evmEventMonitor) Stop() {
	close(m.quit)
	for _, source := range m.sources {
		source.Stop()
	}
	m.wg.Wait()
	log.Info("evm event monitor stopped")
}

func (m *evmEventMonitor) consume(source ports.SwapEventSource) {
	defer m.wg.Done()

	for {
		select {
		case <-m.quit:
			return
		case event, ok := <-source.EventChannel():
			if !ok {
				return
			}
			log.WithFields(log.Fields{
				"quote_id": event.QuoteId,
				"network":  event.Network,
				"tx_hash":  event.TxHash,
			}).Debug("swap event received")
			m.tradeSvc.ExecuteNativeSwapFromEvent(event)
		}
	}
}
