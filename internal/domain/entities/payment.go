package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMode selects how a payment reaches the chain
type PaymentMode string

const (
	// PaymentModeDirect signs and broadcasts an ERC-20 transfer from the payer's wallet
	PaymentModeDirect PaymentMode = "direct"
	// PaymentModeFacilitated hands a signed authorization to a facilitator that pays gas
	PaymentModeFacilitated PaymentMode = "facilitated"
)

// PaymentIntent is a user's request to pay. It is never mutated after creation.
type PaymentIntent struct {
	Amount    decimal.Decimal `json:"amount"`
	Currency  AssetSymbol     `json:"currency"`
	Chain     ChainID         `json:"chain"`
	Recipient string          `json:"recipient"`
	OrderID   string          `json:"orderId"`

	Mode         PaymentMode `json:"mode,omitempty"`
	Resource     string      `json:"resource,omitempty"`
	Confidential bool        `json:"confidential,omitempty"`
}

// EffectiveMode resolves the default mode for the intent's chain family.
// Solana always settles through a facilitator session.
func (i PaymentIntent) EffectiveMode(family ChainFamily) PaymentMode {
	if family == ChainFamilySolana {
		return PaymentModeFacilitated
	}
	if i.Mode == "" {
		return PaymentModeDirect
	}
	return i.Mode
}

// FacilitatorConfig describes how a facilitator accepts gasless payments
type FacilitatorConfig struct {
	FeePayer string `json:"feePayer,omitempty"`
	Asset    string `json:"asset"`
	PayTo    string `json:"payTo"`
	Decimals uint8  `json:"decimals"`
}

// PaymentQuote is the backend's price quote for a payment
type PaymentQuote struct {
	QuoteID     string `json:"quoteId"`
	InputAmount int64  `json:"inputAmount"`
	Currency    string `json:"currency"`
	ExpiresAt   string `json:"expiresAt,omitempty"`
}

// PaymentSession is a settlement session opened on the merchant backend
type PaymentSession struct {
	SessionID       string        `json:"sessionId"`
	MerchantAddress string        `json:"merchantAddress"`
	Nonce           string        `json:"nonce"`
	ExpiresAt       time.Time     `json:"expiresAt"`
	FacilitatorURL  string        `json:"facilitatorUrl,omitempty"`
	Quote           *PaymentQuote `json:"quote,omitempty"`
}

// CreateSessionInput is the body sent when opening a session
type CreateSessionInput struct {
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	QuoteID       string `json:"quoteId"`
	FHECiphertext string `json:"fheCiphertext,omitempty"`
	UseFHE        bool   `json:"useFHE"`
}

// PaymentAttempt registers an intent with the backend before broadcast
// OrderID travels as the orderId query parameter.
type PaymentAttempt struct {
	OrderID    string `json:"-"`
	Blockchain string `json:"blockchain"`
	Sender     string `json:"sender"`
	Receiver   string `json:"receiver"`
	ToToken    string `json:"to_token"`
	ToAmount   string `json:"to_amount"`
	ToDecimals uint8  `json:"to_decimals"`
	AfterBlock uint64 `json:"after_block,string"`
	Deadline   int64  `json:"deadline,string"`
}

// StatusQuery asks the backend whether a transfer has settled
type StatusQuery struct {
	OrderID     string `json:"-"`
	Blockchain  string `json:"blockchain"`
	Transaction string `json:"transaction"`
	Sender      string `json:"sender"`
	Receiver    string `json:"receiver"`
	ToToken     string `json:"to_token"`
	AfterBlock  uint64 `json:"after_block,string"`
	Deadline    int64  `json:"deadline,string"`
}

// StatusReport is the backend's answer to a StatusQuery
type StatusReport struct {
	Status       string `json:"status"`
	FailedReason string `json:"failed_reason,omitempty"`
}

// NotifyInput finalizes an order after on-chain success
type NotifyInput struct {
	TxHash string `json:"txHash"`
	Chain  string `json:"chain"`
}
