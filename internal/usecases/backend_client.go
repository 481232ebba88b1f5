package usecases

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"onepay.payagent/internal/domain/entities"
	domainerrors "onepay.payagent/internal/domain/errors"
	"onepay.payagent/pkg/httpjson"
	"onepay.payagent/pkg/logger"
)

// PaymentBackend is the merchant payment API the orchestrator talks to
type PaymentBackend interface {
	RegisterAttempt(ctx context.Context, attempt entities.PaymentAttempt) error
	CheckStatus(ctx context.Context, query entities.StatusQuery) (*entities.StatusReport, error)
	Notify(ctx context.Context, orderID string, input entities.NotifyInput) error
	CreateQuote(ctx context.Context, amount int64, currency string) (*entities.PaymentQuote, error)
	CreateSession(ctx context.Context, input entities.CreateSessionInput) (*entities.PaymentSession, error)
}

// BackendClient is the REST client for the merchant payment API
type BackendClient struct {
	baseURL string
	http    *httpjson.Client
}

func NewBackendClient(baseURL, apiKey string, timeout time.Duration) *BackendClient {
	c := httpjson.New(timeout)
	if apiKey != "" {
		c.Headers["X-API-Key"] = apiKey
	}
	return &BackendClient{baseURL: strings.TrimRight(baseURL, "/"), http: c}
}

func requestHeaders(ctx context.Context) http.Header {
	h := http.Header{}
	if id := logger.RequestID(ctx); id != "" {
		h.Set("X-Request-ID", id)
	}
	return h
}

func (c *BackendClient) post(ctx context.Context, path string, in, out interface{}) error {
	err := c.http.Do(ctx, http.MethodPost, c.baseURL+path, requestHeaders(ctx), in, out)
	if err == nil {
		return nil
	}
	var se *httpjson.StatusError
	if errors.As(err, &se) {
		return domainerrors.BackendUnavailable(se.StatusCode, errors.New(httpjson.ErrorDetail(se.Body, "error", "message")))
	}
	return domainerrors.BackendUnavailable(0, err)
}

// RegisterAttempt tells the backend to expect a transfer before it is broadcast
func (c *BackendClient) RegisterAttempt(ctx context.Context, attempt entities.PaymentAttempt) error {
	return c.post(ctx, withOrderID("/api/payments/attempts", attempt.OrderID), attempt, nil)
}

// CheckStatus asks whether a transfer has settled
func (c *BackendClient) CheckStatus(ctx context.Context, query entities.StatusQuery) (*entities.StatusReport, error) {
	var report entities.StatusReport
	if err := c.post(ctx, withOrderID("/api/payments/status", query.OrderID), query, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// withOrderID links a call to its order so the backend can match on-chain events
func withOrderID(path, orderID string) string {
	if orderID == "" {
		return path
	}
	return path + "?" + url.Values{"orderId": {orderID}}.Encode()
}

// Notify finalizes an order once its payment succeeded
func (c *BackendClient) Notify(ctx context.Context, orderID string, input entities.NotifyInput) error {
	if orderID == "" {
		return fmt.Errorf("order id is required")
	}
	return c.post(ctx, "/api/orders/"+url.PathEscape(orderID)+"/payments/notify", input, nil)
}

// CreateQuote prices an amount given in minor units
func (c *BackendClient) CreateQuote(ctx context.Context, amount int64, currency string) (*entities.PaymentQuote, error) {
	var quote entities.PaymentQuote
	body := map[string]interface{}{"amount": amount, "currency": currency}
	if err := c.post(ctx, "/api/payments/quotes", body, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

// CreateSession opens a settlement session for a quote
func (c *BackendClient) CreateSession(ctx context.Context, input entities.CreateSessionInput) (*entities.PaymentSession, error) {
	var session entities.PaymentSession
	if err := c.post(ctx, "/api/payments/sessions", input, &session); err != nil {
		return nil, err
	}
	if session.SessionID == "" {
		return nil, domainerrors.BackendUnavailable(0, errors.New("session response missing sessionId"))
	}
	return &session, nil
}
