package fhe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domainerrors "onepay.payagent/internal/domain/errors"
	"onepay.payagent/pkg/httpjson"
	"onepay.payagent/pkg/logger"
)

var maxAmount = decimal.RequireFromString("999999.99")

// Client talks to the homomorphic encryption service that hides payment amounts
type Client struct {
	baseURL string
	http    *httpjson.Client
}

// NewClient creates an encryption service client
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpjson.New(timeout),
	}
}

type encryptRequest struct {
	Amount json.Number `json:"amount"`
}

type encryptResponse struct {
	Ciphertext string  `json:"ciphertext"`
	PublicKey  *string `json:"public_key,omitempty"`
}

type decryptRequest struct {
	Ciphertext string `json:"ciphertext"`
}

type decryptResponse struct {
	Amount decimal.Decimal `json:"amount"`
}

// ValidateAmount checks an amount is in (0, 999999.99] with at most two decimals
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domainerrors.InvalidAmount("amount must be greater than 0")
	}
	if amount.GreaterThan(maxAmount) {
		return domainerrors.InvalidAmount("amount must be less than or equal to 999,999.99")
	}
	if !amount.Equal(amount.Truncate(2)) {
		return domainerrors.InvalidAmount("amount must have at most 2 decimal places")
	}
	return nil
}

// Encrypt returns the base64 ciphertext for amount
func (c *Client) Encrypt(ctx context.Context, amount decimal.Decimal) (string, error) {
	if err := ValidateAmount(amount); err != nil {
		return "", err
	}

	var out encryptResponse
	err := c.http.Do(ctx, http.MethodPost, c.baseURL+"/api/fhe/encrypt", nil,
		encryptRequest{Amount: json.Number(amount.String())}, &out)
	if err != nil {
		logger.Error(ctx, "Amount encryption failed", zap.Error(err))
		return "", domainerrors.EncryptionFailed(serviceError(err))
	}
	if out.Ciphertext == "" {
		return "", domainerrors.EncryptionFailed(errors.New("empty ciphertext"))
	}
	return out.Ciphertext, nil
}

// Decrypt recovers the amount behind a ciphertext
func (c *Client) Decrypt(ctx context.Context, ciphertext string) (decimal.Decimal, error) {
	if ciphertext == "" {
		return decimal.Zero, domainerrors.InvalidAmount("ciphertext cannot be empty")
	}

	var out decryptResponse
	err := c.http.Do(ctx, http.MethodPost, c.baseURL+"/api/fhe/decrypt", nil,
		decryptRequest{Ciphertext: ciphertext}, &out)
	if err != nil {
		return decimal.Zero, domainerrors.EncryptionFailed(serviceError(err))
	}
	return out.Amount, nil
}

// Healthy reports whether the service answers /health with status "healthy"
func (c *Client) Healthy(ctx context.Context) bool {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.http.Do(ctx, http.MethodGet, c.baseURL+"/health", nil, nil, &out); err != nil {
		return false
	}
	return out.Status == "healthy"
}

func serviceError(err error) error {
	var se *httpjson.StatusError
	if errors.As(err, &se) {
		return fmt.Errorf("status %d: %s", se.StatusCode, httpjson.ErrorDetail(se.Body, "detail", "error", "message"))
	}
	return err
}
