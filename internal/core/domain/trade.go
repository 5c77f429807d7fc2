package domain

import (
	"time"

	"github.com/google/uuid"
)

// TradeStatus represents the different statuses that a trade can assume.
type TradeStatus string

const (
	// TradeStatusPending is the initial status of a trade created by a direct
	// execute call, before the source funds have been collected.
	TradeStatusPending TradeStatus = "PENDING"
	// TradeStatusProcessing is the initial status of a trade created by a
	// chain monitor reacting to an already-observed deposit or event.
	TradeStatusProcessing TradeStatus = "PROCESSING"
	// TradeStatusCompleted is the terminal status of a successfully settled
	// trade.
	TradeStatusCompleted TradeStatus = "COMPLETED"
	// TradeStatusFailed is the terminal status of a trade that hit an
	// unrecoverable error during settlement.
	TradeStatusFailed TradeStatus = "FAILED"
)

// Trade is the execution record of one settlement attempt against a quote.
// At most one trade may ever reference a quote, enforced by the unique index
// on QuoteId at the persistence layer.
type Trade struct {
	Id        string `badgerhold:"key"`
	QuoteId   string `badgerhold:"unique"`
	CreatedAt time.Time
	Status    TradeStatus
	// SourceTxHash is the hash of the collection leg on the source chain.
	SourceTxHash string
	// DestinationTxHash is the hash of the payout leg on the destination
	// chain.
	DestinationTxHash string
	// FailureReason holds the settlement error verbatim when the trade is
	// failed, for operator diagnosis.
	FailureReason string
}

// NewTrade returns a pending trade referencing the given quote.
func NewTrade(quoteId string) *Trade {
	return &Trade{
		Id:        uuid.New().String(),
		QuoteId:   quoteId,
		CreatedAt: time.Now(),
		Status:    TradeStatusPending,
	}
}

// NewProcessingTrade returns a trade referencing the given quote whose source
// leg is already a fact established on-chain, identified by its tx hash.
func NewProcessingTrade(quoteId, sourceTxHash string) *Trade {
	return &Trade{
		Id:           uuid.New().String(),
		QuoteId:      quoteId,
		CreatedAt:    time.Now(),
		Status:       TradeStatusProcessing,
		SourceTxHash: sourceTxHash,
	}
}

// Complete brings the trade to the Completed status, recording both legs'
// transaction hashes. It fails if the trade already reached a terminal
// status.
func (t *Trade) Complete(sourceTxHash, destinationTxHash string) error {
	if t.IsTerminal() {
		return ErrTradeTerminalStatus
	}
	if sourceTxHash != "" {
		t.SourceTxHash = sourceTxHash
	}
	t.DestinationTxHash = destinationTxHash
	t.Status = TradeStatusCompleted
	return nil
}

// Fail brings the trade to the Failed status, preserving the given reason
// verbatim. It fails if the trade already reached a terminal status.
func (t *Trade) Fail(reason string) error {
	if t.IsTerminal() {
		return ErrTradeTerminalStatus
	}
	t.FailureReason = reason
	t.Status = TradeStatusFailed
	return nil
}

// IsTerminal returns whether the trade reached a status that admits no
// further transitions.
func (t *Trade) IsTerminal() bool {
	return t.Status == TradeStatusCompleted || t.Status == TradeStatusFailed
}
