package evm

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/crosswap-network/crosswap-daemon/internal/core/ports"
)

const (
	pingPeriod     = 30 * time.Second
	pongWait       = 60 * time.Second
	reconnectDelay = 5 * time.Second
	writeWait      = 10 * time.Second
)

// subscriptionListener streams settlement contract logs over a websocket
// JSON-RPC subscription. On any connection failure it reconnects and
// resubscribes; events missed in between are recovered by the polling
// fallback.
type subscriptionListener struct {
	wsURL    string
	network  string
	contract common.Address

	conn      *websocket.Conn
	connLock  *sync.Mutex
	eventChan chan ports.SwapEvent
	quitChan  chan struct{}
	wg        sync.WaitGroup
}

// NewSubscriptionListener returns a streaming SwapEventSource for one
// network.
func NewSubscriptionListener(
	wsURL, network, contract string,
) ports.SwapEventSource {
	return &subscriptionListener{
		wsURL:     wsURL,
		network:   network,
		contract:  common.HexToAddress(contract),
		connLock:  &sync.Mutex{},
		eventChan: make(chan ports.SwapEvent, 16),
		quitChan:  make(chan struct{}),
	}
}

func (l *subscriptionListener) Start() {
	l.wg.Add(1)
	go l.run()
	log.WithField("network", l.network).Info("evm subscription listener started")
}

func (l *subscriptionListener) Stop() {
	close(l.quitChan)
	l.closeConn()
	l.wg.Wait()
	close(l.eventChan)
	log.WithField("network", l.network).Info("evm subscription listener stopped")
}

func (l *subscriptionListener) EventChannel() <-chan ports.SwapEvent {
	return l.eventChan
}

func (l *subscriptionListener) run() {
	defer l.wg.Done()

	for {
		select {
		case <-l.quitChan:
			return
		default:
		}

		if err := l.connectAndListen(); err != nil {
			log.WithError(err).WithField("network", l.network).
				Warn("subscription dropped, reconnecting")
		}

		select {
		case <-l.quitChan:
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (l *subscriptionListener) connectAndListen() error {
	conn, _, err := websocket.DefaultDialer.Dial(l.wsURL, nil)
	if err != nil {
		return err
	}
	l.setConn(conn)
	defer l.closeConn()

	if err := l.subscribe(conn); err != nil {
		return err
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Heartbeat: ping periodically, a missed pong fails the read deadline
	// and triggers a reconnect.
	pingDone := make(chan struct{})
	defer close(pingDone)
	go l.keepAlive(conn, pingDone)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		l.handleMessage(message)
	}
}

func (l *subscriptionListener) subscribe(conn *websocket.Conn) error {
	request := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "eth_subscribe",
		"params": []interface{}{
			"logs",
			map[string]interface{}{
				"address": l.contract.Hex(),
				"topics":  []string{SwapEventTopic.Hex()},
			},
		},
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(request); err != nil {
		return err
	}

	var response struct {
		Result string           `json:"result"`
		Error  *json.RawMessage `json:"error"`
	}
	if err := conn.ReadJSON(&response); err != nil {
		return err
	}
	if response.Error != nil {
		return fmt.Errorf("subscription rejected: %s", string(*response.Error))
	}

	log.WithFields(log.Fields{
		"network":      l.network,
		"subscription": response.Result,
	}).Debug("log subscription established")
	return nil
}

func (l *subscriptionListener) keepAlive(
	conn *websocket.Conn, done <-chan struct{},
) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-l.quitChan:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (l *subscriptionListener) handleMessage(message []byte) {
	var notification struct {
		Method string `json:"method"`
		Params struct {
			Result subscriptionLog `json:"result"`
		} `json:"params"`
	}
	if err := json.Unmarshal(message, &notification); err != nil {
		log.WithError(err).Debug("skipping unparsable ws message")
		return
	}
	if notification.Method != "eth_subscription" {
		return
	}

	logEntry, err := notification.Params.Result.toLog()
	if err != nil {
		log.WithError(err).Warn("skipping malformed log notification")
		return
	}

	event, err := decodeSwapEvent(logEntry, l.network)
	if err != nil {
		log.WithError(err).Debug("skipping non-swap log")
		return
	}

	select {
	case l.eventChan <- *event:
	case <-l.quitChan:
	}
}

func (l *subscriptionListener) setConn(conn *websocket.Conn) {
	l.connLock.Lock()
	defer l.connLock.Unlock()
	l.conn = conn
}

func (l *subscriptionListener) closeConn() {
	l.connLock.Lock()
	defer l.connLock.Unlock()
	if l.conn != nil {
		l.conn.Close()
		l.conn = nil
	}
}

// subscriptionLog is the wire shape of a log carried by an eth_subscription
// notification.
type subscriptionLog struct {
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	BlockNumber string   `json:"blockNumber"`
	TxHash      string   `json:"transactionHash"`
}

func (sl subscriptionLog) toLog() (types.Log, error) {
	data, err := hexutil.Decode(sl.Data)
	if err != nil {
		return types.Log{}, err
	}

	topics := make([]common.Hash, 0, len(sl.Topics))
	for _, topic := range sl.Topics {
		topics = append(topics, common.HexToHash(topic))
	}

	var blockNumber uint64
	if sl.BlockNumber != "" {
		blockNumber, err = hexutil.DecodeUint64(sl.BlockNumber)
		if err != nil {
			return types.Log{}, err
		}
	}

	return types.Log{
		Address:     common.HexToAddress(sl.Address),
		Topics:      topics,
		Data:        data,
		BlockNumber: blockNumber,
		TxHash:      common.HexToHash(sl.TxHash),
	}, nil
}
