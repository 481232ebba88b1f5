package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
)

// Payment settlement errors
var (
	ErrWalletUnavailable          = errors.New("wallet unavailable")
	ErrWrongNetwork               = errors.New("wrong network")
	ErrInsufficientFunds          = errors.New("insufficient funds")
	ErrMalformedRequirements      = errors.New("malformed payment requirements")
	ErrInvalidFacilitatorResponse = errors.New("invalid facilitator response")
	ErrSettlementRejected         = errors.New("settlement rejected")
	ErrSettlementTimeout          = errors.New("settlement timed out")
	ErrChainAdapter               = errors.New("chain adapter error")
	ErrBackendUnavailable         = errors.New("backend unavailable")
	ErrUnsupportedChain           = errors.New("unsupported chain")
	ErrUnsupportedToken           = errors.New("unsupported token")
	ErrInvalidAmount              = errors.New("invalid amount")
	ErrEncryptionFailed           = errors.New("amount encryption failed")
	ErrUnrecognizedChain          = errors.New("unrecognized chain")
)

// Error codes
const (
	CodeBadRequest    = "BAD_REQUEST"
	CodeInvalidInput  = "INVALID_INPUT"
	CodeNotFound      = "NOT_FOUND"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeInternalError = "INTERNAL_ERROR"

	CodeWalletUnavailable          = "WALLET_UNAVAILABLE"
	CodeWrongNetwork               = "WRONG_NETWORK"
	CodeInsufficientFunds          = "INSUFFICIENT_FUNDS"
	CodeMalformedRequirements      = "MALFORMED_REQUIREMENTS"
	CodeInvalidFacilitatorResponse = "INVALID_FACILITATOR_RESPONSE"
	CodeSettlementRejected         = "SETTLEMENT_REJECTED"
	CodeSettlementTimeout          = "SETTLEMENT_TIMEOUT"
	CodeChainAdapter               = "CHAIN_ADAPTER_ERROR"
	CodeBackendUnavailable         = "BACKEND_UNAVAILABLE"
	CodeUnsupportedChain           = "UNSUPPORTED_CHAIN"
	CodeUnsupportedToken           = "UNSUPPORTED_TOKEN"
	CodeInvalidAmount              = "INVALID_AMOUNT"
	CodeEncryptionFailed           = "ENCRYPTION_FAILED"
)

// PaymentError is a settlement failure with a machine code and an optional reason
// reported by a remote party.
type PaymentError struct {
	Code    string
	Message string
	Reason  string
	Err     error
}

func (e *PaymentError) Error() string {
	msg := e.Message
	if e.Reason != "" {
		msg = msg + ": " + e.Reason
	}
	if e.Err != nil && !errors.Is(e.Err, sentinelFor(e.Code)) {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *PaymentError) Unwrap() []error {
	errs := []error{sentinelFor(e.Code)}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

var sentinels = map[string]error{
	CodeWalletUnavailable:          ErrWalletUnavailable,
	CodeWrongNetwork:               ErrWrongNetwork,
	CodeInsufficientFunds:          ErrInsufficientFunds,
	CodeMalformedRequirements:      ErrMalformedRequirements,
	CodeInvalidFacilitatorResponse: ErrInvalidFacilitatorResponse,
	CodeSettlementRejected:         ErrSettlementRejected,
	CodeSettlementTimeout:          ErrSettlementTimeout,
	CodeChainAdapter:               ErrChainAdapter,
	CodeBackendUnavailable:         ErrBackendUnavailable,
	CodeUnsupportedChain:           ErrUnsupportedChain,
	CodeUnsupportedToken:           ErrUnsupportedToken,
	CodeInvalidAmount:              ErrInvalidAmount,
	CodeEncryptionFailed:           ErrEncryptionFailed,
}

func sentinelFor(code string) error {
	if err, ok := sentinels[code]; ok {
		return err
	}
	return ErrInvalidInput
}

func newPaymentError(code, message, reason string, err error) *PaymentError {
	return &PaymentError{Code: code, Message: message, Reason: reason, Err: err}
}

func WalletUnavailable(err error) *PaymentError {
	return newPaymentError(CodeWalletUnavailable, "wallet unavailable", "", err)
}

func WrongNetwork(want, got string) *PaymentError {
	return newPaymentError(CodeWrongNetwork, "wrong network", fmt.Sprintf("wallet on %s, payment requires %s", got, want), nil)
}

func InsufficientFunds(have, need string) *PaymentError {
	return newPaymentError(CodeInsufficientFunds, "insufficient funds", fmt.Sprintf("balance %s below required %s", have, need), nil)
}

func MalformedRequirements(field string) *PaymentError {
	return newPaymentError(CodeMalformedRequirements, "malformed payment requirements", "missing "+field, nil)
}

func InvalidFacilitatorResponse(reason string) *PaymentError {
	return newPaymentError(CodeInvalidFacilitatorResponse, "invalid facilitator response", reason, nil)
}

func SettlementRejected(reason string) *PaymentError {
	return newPaymentError(CodeSettlementRejected, "settlement rejected", reason, nil)
}

func SettlementTimeout(attempts int) *PaymentError {
	return newPaymentError(CodeSettlementTimeout, "settlement not confirmed", fmt.Sprintf("no final status after %d checks", attempts), nil)
}

func ChainAdapterError(err error) *PaymentError {
	return newPaymentError(CodeChainAdapter, "chain adapter error", "", err)
}

func BackendUnavailable(status int, err error) *PaymentError {
	reason := ""
	if status > 0 {
		reason = fmt.Sprintf("status %d", status)
	}
	return newPaymentError(CodeBackendUnavailable, "backend unavailable", reason, err)
}

func UnsupportedChain(chain string) *PaymentError {
	return newPaymentError(CodeUnsupportedChain, "unsupported chain", chain, nil)
}

func UnsupportedToken(symbol, chain string) *PaymentError {
	return newPaymentError(CodeUnsupportedToken, "unsupported token", symbol+" on "+chain, nil)
}

func InvalidAmount(reason string) *PaymentError {
	return newPaymentError(CodeInvalidAmount, "invalid amount", reason, nil)
}

func EncryptionFailed(err error) *PaymentError {
	return newPaymentError(CodeEncryptionFailed, "amount encryption failed", "", err)
}

// UserMessage renders an error for display to the payer, falling back to a generic phrase.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var pe *PaymentError
	if errors.As(err, &pe) {
		switch pe.Code {
		case CodeWalletUnavailable:
			return "Connect a wallet to continue."
		case CodeWrongNetwork:
			return "Switch your wallet to the payment network and try again."
		case CodeInsufficientFunds:
			return "Your balance is too low for this payment."
		case CodeSettlementTimeout:
			return "Payment submitted but not yet confirmed. Check again later."
		case CodeSettlementRejected:
			if pe.Reason != "" {
				return "Payment failed: " + pe.Reason
			}
			return "Payment failed."
		}
		return pe.Error()
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Payment failed, please try again."
}

// AppError represents application error with HTTP status
type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new app error
func NewAppError(status int, code, message string, err error) *AppError {
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func NotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, CodeNotFound, message, ErrNotFound)
}

func BadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeInvalidInput, message, ErrInvalidInput)
}

func Unauthorized(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, CodeUnauthorized, message, ErrUnauthorized)
}

func InternalError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, "internal server error", err)
}

// FromPaymentError maps a settlement failure onto an HTTP error
func FromPaymentError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var pe *PaymentError
	if !errors.As(err, &pe) {
		return InternalError(err)
	}
	status := http.StatusInternalServerError
	switch pe.Code {
	case CodeInvalidAmount, CodeMalformedRequirements, CodeUnsupportedChain, CodeUnsupportedToken, CodeWrongNetwork:
		status = http.StatusBadRequest
	case CodeInsufficientFunds:
		status = http.StatusPaymentRequired
	case CodeWalletUnavailable:
		status = http.StatusPreconditionFailed
	case CodeSettlementRejected:
		status = http.StatusUnprocessableEntity
	case CodeSettlementTimeout:
		status = http.StatusAccepted
	case CodeBackendUnavailable, CodeInvalidFacilitatorResponse, CodeChainAdapter:
		status = http.StatusBadGateway
	}
	return NewAppError(status, pe.Code, UserMessage(pe), pe)
}
