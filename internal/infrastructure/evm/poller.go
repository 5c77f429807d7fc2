package evm

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	log "github.com/sirupsen/logrus"

	"github.com/crosswap-network/crosswap-daemon/internal/core/domain"
	"github.com/crosswap-network/crosswap-daemon/internal/core/ports"
)

const (
	// DefaultPollInterval is the period of the log polling loop.
	DefaultPollInterval = 15 * time.Second
	// maxBlockRange caps how many blocks a single filter query may span, to
	// keep requests within provider limits when catching up after downtime.
	maxBlockRange = 100
)

// logPoller is the polling fallback of the subscription listener. It scans
// settlement contract logs in bounded block ranges, persisting its position
// so that a restart resumes where the last scan stopped.
type logPoller struct {
	client     *ethclient.Client
	network    string
	contract   common.Address
	cursorRepo domain.ScanCursorRepository
	interval   time.Duration

	eventChan chan ports.SwapEvent
	quitChan  chan struct{}
	wg        sync.WaitGroup
}

// NewLogPoller returns a polling SwapEventSource for one network.
func NewLogPoller(
	client *ethclient.Client, network, contract string,
	cursorRepo domain.ScanCursorRepository, interval time.Duration,
) ports.SwapEventSource {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &logPoller{
		client:     client,
		network:    network,
		contract:   common.HexToAddress(contract),
		cursorRepo: cursorRepo,
		interval:   interval,
		eventChan:  make(chan ports.SwapEvent, 16),
		quitChan:   make(chan struct{}),
	}
}

func (p *logPoller) Start() {
	p.wg.Add(1)
	go p.loop()
	log.WithField("network", p.network).Info("evm log poller started")
}

func (p *logPoller) Stop() {
	close(p.quitChan)
	p.wg.Wait()
	close(p.eventChan)
	log.WithField("network", p.network).Info("evm log poller stopped")
}

func (p *logPoller) EventChannel() <-chan ports.SwapEvent {
	return p.eventChan
}

func (p *logPoller) loop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll()
	for {
		select {
		case <-p.quitChan:
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

func (p *logPoller) poll() {
	ctx := context.Background()

	tip, err := p.client.BlockNumber(ctx)
	if err != nil {
		log.WithError(err).WithField("network", p.network).
			Warn("failed to fetch chain tip, skipping poll")
		return
	}

	lastChecked, err := p.cursorRepo.GetCursor(ctx, p.network)
	if err != nil {
		log.WithError(err).WithField("network", p.network).
			Error("failed to load scan cursor")
		return
	}
	if lastChecked == 0 {
		// First run: start from the tip rather than replaying history.
		if err := p.cursorRepo.SetCursor(ctx, p.network, tip); err != nil {
			log.WithError(err).WithField("network", p.network).
				Error("failed to init scan cursor")
		}
		return
	}
	if lastChecked >= tip {
		return
	}

	from := lastChecked + 1
	to := tip
	if to-from+1 > maxBlockRange {
		to = from + maxBlockRange - 1
	}

	logs, err := p.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{p.contract},
		Topics:    [][]common.Hash{{SwapEventTopic}},
	})
	if err != nil {
		log.WithError(err).WithField("network", p.network).
			Warn("failed to filter logs")
		return
	}

	for _, logEntry := range logs {
		event, err := decodeSwapEvent(logEntry, p.network)
		if err != nil {
			log.WithError(err).Warn("skipping malformed swap log")
			continue
		}
		select {
		case p.eventChan <- *event:
		case <-p.quitChan:
			return
		}
	}

	// The cursor only advances after the range is fully processed, so a
	// crash replays the range instead of skipping it.
	if err := p.cursorRepo.SetCursor(ctx, p.network, to); err != nil {
		log.WithError(err).WithField("network", p.network).
			Error("failed to persist scan cursor")
	}
}
