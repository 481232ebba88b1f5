package entities

// X402Version is the protocol version placed in every envelope
const X402Version = 1

// PaymentRequirements is one entry of a 402 challenge's accepts list
type PaymentRequirements struct {
	Scheme            string                 `json:"scheme"`
	Network           string                 `json:"network"`
	MaxAmountRequired string                 `json:"maxAmountRequired"`
	Resource          string                 `json:"resource,omitempty"`
	Description       string                 `json:"description,omitempty"`
	MimeType          string                 `json:"mimeType,omitempty"`
	PayTo             string                 `json:"payTo"`
	MaxTimeoutSeconds int                    `json:"maxTimeoutSeconds,omitempty"`
	Asset             string                 `json:"asset"`
	Extra             map[string]interface{} `json:"extra,omitempty"`
}

// ExtraString reads a string field from Extra
func (r *PaymentRequirements) ExtraString(key string) string {
	if r.Extra == nil {
		return ""
	}
	if v, ok := r.Extra[key].(string); ok {
		return v
	}
	return ""
}

// PaymentChallenge is the JSON body of an HTTP 402 response
type PaymentChallenge struct {
	X402Version int                   `json:"x402Version,omitempty"`
	Error       string                `json:"error,omitempty"`
	Accepts     []PaymentRequirements `json:"accepts"`
}

// TransferAuthorization is the EIP-3009 message, with integers as decimal strings
type TransferAuthorization struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	ValidAfter  string `json:"validAfter"`
	ValidBefore string `json:"validBefore"`
	Nonce       string `json:"nonce"`
}

// ExactEVMPayload is a signed TransferWithAuthorization
type ExactEVMPayload struct {
	Signature     string                `json:"signature"`
	Authorization TransferAuthorization `json:"authorization"`
}

// X402Envelope is the JSON carried base64-encoded in the X-PAYMENT header
type X402Envelope struct {
	X402Version int             `json:"x402Version"`
	Scheme      string          `json:"scheme"`
	Network     string          `json:"network"`
	Payload     ExactEVMPayload `json:"payload"`
}

// SettlementResponse is decoded from the X-PAYMENT-RESPONSE header
type SettlementResponse struct {
	Success     bool   `json:"success,omitempty"`
	Transaction string `json:"transaction"`
	Network     string `json:"network"`
	Payer       string `json:"payer"`
	ErrorReason string `json:"errorReason,omitempty"`
}

// SolanaPaymentPayload is the clear-text half of a Solana payment request
type SolanaPaymentPayload struct {
	Amount      string `json:"amount"`
	Recipient   string `json:"recipient"`
	ResourceID  string `json:"resourceId"`
	ResourceURL string `json:"resourceUrl"`
	Nonce       string `json:"nonce"`
	Timestamp   int64  `json:"timestamp"`
	Expiry      int64  `json:"expiry"`
}

// SolanaPaymentRequest pairs the clear-text payload with the partially signed transfer
type SolanaPaymentRequest struct {
	Payload           SolanaPaymentPayload `json:"payload"`
	Signature         string               `json:"signature"`
	ClientPublicKey   string               `json:"clientPublicKey"`
	SignedTransaction string               `json:"signedTransaction"`
}
