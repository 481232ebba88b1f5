package entities

import (
	"strconv"
	"time"

	"github.com/volatiletech/null/v8"
)

// SettlementStatus is the poller's view of a submitted payment
type SettlementStatus string

const (
	SettlementPending SettlementStatus = "pending"
	SettlementSuccess SettlementStatus = "success"
	SettlementFailed  SettlementStatus = "failed"
	SettlementTimeout SettlementStatus = "timeout"
)

// IsTerminal reports whether polling can stop
func (s SettlementStatus) IsTerminal() bool {
	return s == SettlementSuccess || s == SettlementFailed || s == SettlementTimeout
}

// SettlementResult is what an executed payment resolves to
type SettlementResult struct {
	Status               SettlementStatus `json:"status"`
	TransactionReference null.String      `json:"transactionReference"`
	FailureReason        null.String      `json:"failureReason"`
	Attempts             int              `json:"attempts"`
	ExplorerURL          string           `json:"explorerUrl,omitempty"`
}

// TransactionType categorizes a logged payment
type TransactionType string

const (
	TransactionTypePayment     TransactionType = "payment"
	TransactionTypeFHEPayment  TransactionType = "fhe_payment"
	TransactionTypeX402Payment TransactionType = "x402_payment"
)

// TransactionStatus of a logged payment
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusSuccess TransactionStatus = "success"
	TransactionStatusFailed  TransactionStatus = "failed"
	TransactionStatusTimeout TransactionStatus = "timeout"
)

// TransactionStatusFromSettlement maps a poll outcome onto a log status
func TransactionStatusFromSettlement(s SettlementStatus) TransactionStatus {
	switch s {
	case SettlementSuccess:
		return TransactionStatusSuccess
	case SettlementFailed:
		return TransactionStatusFailed
	case SettlementTimeout:
		return TransactionStatusTimeout
	default:
		return TransactionStatusPending
	}
}

// TransactionRecord is a display-only history entry. The backend ledger is authoritative.
type TransactionRecord struct {
	ID              string                 `json:"id"`
	Hash            string                 `json:"hash"`
	Type            TransactionType        `json:"type"`
	From            string                 `json:"from"`
	To              string                 `json:"to"`
	Amount          null.String            `json:"amount,omitempty"`
	EncryptedAmount null.String            `json:"encryptedAmount,omitempty"`
	Status          TransactionStatus      `json:"status"`
	Timestamp       int64                  `json:"timestamp"`
	BlockNumber     null.Uint64            `json:"blockNumber,omitempty"`
	Network         string                 `json:"network"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// NewTransactionRecord stamps a record with its id and creation time
func NewTransactionRecord(hash string, now time.Time) *TransactionRecord {
	ts := now.UnixMilli()
	return &TransactionRecord{
		ID:        hash + "-" + strconv.FormatInt(ts, 10),
		Hash:      hash,
		Status:    TransactionStatusPending,
		Timestamp: ts,
	}
}

// TransactionPatch is a partial update applied by hash
type TransactionPatch struct {
	Status      *TransactionStatus
	BlockNumber null.Uint64
	Metadata    map[string]interface{}
}

// Apply merges the patch into the record
func (p TransactionPatch) Apply(r *TransactionRecord) {
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.BlockNumber.Valid {
		r.BlockNumber = p.BlockNumber
	}
	if len(p.Metadata) > 0 {
		if r.Metadata == nil {
			r.Metadata = make(map[string]interface{}, len(p.Metadata))
		}
		for k, v := range p.Metadata {
			r.Metadata[k] = v
		}
	}
}
