package httpinterface

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/crosswap-network/crosswap-daemon/internal/core/application"
	"github.com/crosswap-network/crosswap-daemon/internal/core/domain"
	"github.com/crosswap-network/crosswap-daemon/internal/core/ports"
)

// TradingService exposes the quoting and trading operations over plain
// JSON/HTTP.
type TradingService interface {
	QuoteHandler(w http.ResponseWriter, req *http.Request)
	TradeHandler(w http.ResponseWriter, req *http.Request)
	NativeTradeHandler(w http.ResponseWriter, req *http.Request)
}

type tradingService struct {
	quoteSvc application.QuoteService
	tradeSvc application.TradeService
}

func NewTradingService(
	quoteSvc application.QuoteService, tradeSvc application.TradeService,
) TradingService {
	return &tradingService{
		quoteSvc: quoteSvc,
		tradeSvc: tradeSvc,
	}
}

// RegisterRoutes mounts the trading handlers on the given mux.
func RegisterRoutes(mux *http.ServeMux, svc TradingService) {
	mux.HandleFunc("/v1/quote", svc.QuoteHandler)
	mux.HandleFunc("/v1/trade", svc.TradeHandler)
	mux.HandleFunc("/v1/trade/native", svc.NativeTradeHandler)
}

type quoteRequestJSON struct {
	FromAsset        string `json:"fromAsset"`
	FromNetwork      string `json:"fromNetwork"`
	ToAsset          string `json:"toAsset"`
	ToNetwork        string `json:"toNetwork,omitempty"`
	Amount           string `json:"amount"`
	RecipientAddress string `json:"recipientAddress,omitempty"`
}

func (s *tradingService) QuoteHandler(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body quoteRequestJSON
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	quote, err := s.quoteSvc.GetQuote(req.Context(), application.QuoteRequest{
		FromAsset:        body.FromAsset,
		FromNetwork:      body.FromNetwork,
		ToAsset:          body.ToAsset,
		ToNetwork:        body.ToNetwork,
		Amount:           amount,
		RecipientAddress: body.RecipientAddress,
	})
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

type permitJSON struct {
	Owner    string `json:"owner"`
	Amount   string `json:"amount"`
	Deadline int64  `json:"deadline"`
	V        uint8  `json:"v"`
	R        string `json:"r"`
	S        string `json:"s"`
}

type tradeRequestJSON struct {
	QuoteId            string     `json:"quoteId"`
	DestinationNetwork string     `json:"destinationNetwork,omitempty"`
	RecipientAddress   string     `json:"recipientAddress,omitempty"`
	Permit             permitJSON `json:"permit"`
}

func (s *tradingService) TradeHandler(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body tradeRequestJSON
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	permit, err := parsePermit(body.Permit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	notification, err := s.tradeSvc.ExecuteTrade(
		req.Context(), body.QuoteId, body.DestinationNetwork,
		body.RecipientAddress, permit,
	)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, notification)
}

type forwardRequestJSON struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value"`
	Gas   string `json:"gas"`
	Nonce string `json:"nonce"`
	Data  string `json:"data"`
}

type nativeTradeRequestJSON struct {
	QuoteId            string             `json:"quoteId"`
	DestinationNetwork string             `json:"destinationNetwork,omitempty"`
	RecipientAddress   string             `json:"recipientAddress,omitempty"`
	Request            forwardRequestJSON `json:"request"`
	Signature          string             `json:"signature"`
}

func (s *tradingService) NativeTradeHandler(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body nativeTradeRequestJSON
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	forwardReq, err := parseForwardRequest(body.Request)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	signature, err := hexutil.Decode(body.Signature)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	notification, err := s.tradeSvc.ExecuteNativeSwap(
		req.Context(), body.QuoteId, body.DestinationNetwork,
		body.RecipientAddress, forwardReq, signature,
	)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, notification)
}

func parsePermit(p permitJSON) (ports.PermitParams, error) {
	amount, ok := new(big.Int).SetString(p.Amount, 10)
	if !ok {
		return ports.PermitParams{}, errors.New("invalid permit amount")
	}
	r, err := hexutil.Decode(p.R)
	if err != nil || len(r) != 32 {
		return ports.PermitParams{}, errors.New("invalid permit r value")
	}
	s, err := hexutil.Decode(p.S)
	if err != nil || len(s) != 32 {
		return ports.PermitParams{}, errors.New("invalid permit s value")
	}

	permit := ports.PermitParams{
		Owner:    p.Owner,
		Amount:   amount,
		Deadline: big.NewInt(p.Deadline),
		V:        p.V,
	}
	copy(permit.R[:], r)
	copy(permit.S[:], s)
	return permit, nil
}

func parseForwardRequest(r forwardRequestJSON) (ports.ForwardRequest, error) {
	value, ok := new(big.Int).SetString(r.Value, 10)
	if !ok {
		return ports.ForwardRequest{}, errors.New("invalid forward request value")
	}
	gas, ok := new(big.Int).SetString(r.Gas, 10)
	if !ok {
		return ports.ForwardRequest{}, errors.New("invalid forward request gas")
	}
	nonce, ok := new(big.Int).SetString(r.Nonce, 10)
	if !ok {
		return ports.ForwardRequest{}, errors.New("invalid forward request nonce")
	}
	data, err := hexutil.Decode(r.Data)
	if err != nil {
		return ports.ForwardRequest{}, errors.New("invalid forward request data")
	}

	return ports.ForwardRequest{
		From:  r.From,
		To:    r.To,
		Value: value,
		Gas:   gas,
		Nonce: nonce,
		Data:  data,
	}, nil
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, application.ErrQuoteNotFound),
		errors.Is(err, domain.ErrTradeNotFound):
		return http.StatusNotFound
	case errors.Is(err, application.ErrQuoteExpired),
		errors.Is(err, application.ErrQuoteAlreadyUsed):
		return http.StatusConflict
	case errors.Is(err, application.ErrInvalidAmount),
		errors.Is(err, application.ErrMissingRecipient),
		errors.Is(err, application.ErrMissingDestination),
		errors.Is(err, application.ErrDestinationNotOffered),
		errors.Is(err, application.ErrUnsupportedMarket),
		errors.Is(err, application.ErrUnsupportedNetworkType),
		errors.Is(err, application.ErrAssetNotConfigured),
		errors.Is(err, application.ErrInvalidRelaySignature),
		errors.Is(err, application.ErrInvalidRelayNonce):
		return http.StatusBadRequest
	case errors.Is(err, application.ErrInsufficientLiquidity),
		errors.Is(err, application.ErrInsufficientFunds),
		errors.Is(err, application.ErrNoSpendableFunds):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.WithError(err).Warn("failed to write http response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
