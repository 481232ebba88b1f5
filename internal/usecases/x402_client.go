package usecases

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"onepay.payagent/internal/domain/entities"
	domainerrors "onepay.payagent/internal/domain/errors"
	"onepay.payagent/pkg/httpjson"
	"onepay.payagent/pkg/logger"
)

const (
	HeaderPayment         = "X-PAYMENT"
	HeaderPaymentResponse = "X-PAYMENT-RESPONSE"
)

// PaymentSignFunc turns the server's requirements into an X-PAYMENT header value
type PaymentSignFunc func(ctx context.Context, requirements *entities.PaymentRequirements) (string, error)

// X402Result is the outcome of a paid request
type X402Result struct {
	StatusCode int
	Body       []byte
	// Settlement is nil when the resource did not require payment
	Settlement *entities.SettlementResponse
}

// X402Client performs the 402 challenge, signed retry and settlement decode exchange
type X402Client struct {
	http *http.Client
}

func NewX402Client(timeout time.Duration) *X402Client {
	return &X402Client{http: &http.Client{Timeout: timeout}}
}

func (c *X402Client) send(ctx context.Context, method, url string, body []byte, payment string) (*http.Response, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := requestHeaders(ctx).Get("X-Request-ID"); id != "" {
		req.Header.Set("X-Request-ID", id)
	}
	if payment != "" {
		req.Header.Set(HeaderPayment, payment)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, domainerrors.BackendUnavailable(0, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, nil, domainerrors.BackendUnavailable(resp.StatusCode, err)
	}
	return resp, raw, nil
}

// Do requests url; on 402 it signs the first accepted requirement with sign and retries once
func (c *X402Client) Do(ctx context.Context, method, url string, body interface{}, sign PaymentSignFunc) (*X402Result, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
	}

	resp, raw, err := c.send(ctx, method, url, payload, "")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusPaymentRequired {
		return &X402Result{StatusCode: resp.StatusCode, Body: raw}, nil
	}

	requirements, err := parseChallenge(raw)
	if err != nil {
		return nil, err
	}
	header, err := sign(ctx, &requirements[0])
	if err != nil {
		return nil, err
	}

	resp, raw, err = c.send(ctx, method, url, payload, header)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domainerrors.SettlementRejected(rejectionReason(&httpjson.StatusError{StatusCode: resp.StatusCode, Body: raw}))
	}

	settlementHeader := resp.Header.Get(HeaderPaymentResponse)
	if settlementHeader == "" {
		logger.Warn(ctx, "Paid request succeeded without settlement header", zap.String("url", url))
		return nil, domainerrors.SettlementRejected("missing settlement response")
	}
	var settlement entities.SettlementResponse
	if err := DecodeHeader(settlementHeader, &settlement); err != nil {
		return nil, domainerrors.SettlementRejected(fmt.Sprintf("unreadable settlement response: %v", err))
	}
	if settlement.Transaction == "" {
		reason := settlement.ErrorReason
		if reason == "" {
			reason = "settlement response missing transaction"
		}
		return nil, domainerrors.SettlementRejected(reason)
	}
	return &X402Result{StatusCode: resp.StatusCode, Body: raw, Settlement: &settlement}, nil
}

// parseChallenge accepts both {accepts:[...]} and a bare array
func parseChallenge(raw []byte) ([]entities.PaymentRequirements, error) {
	var requirements []entities.PaymentRequirements
	if err := json.Unmarshal(raw, &requirements); err != nil {
		var challenge entities.PaymentChallenge
		if err := json.Unmarshal(raw, &challenge); err != nil {
			return nil, domainerrors.MalformedRequirements("accepts")
		}
		requirements = challenge.Accepts
	}
	if len(requirements) == 0 {
		return nil, domainerrors.MalformedRequirements("accepts")
	}
	return requirements, nil
}
