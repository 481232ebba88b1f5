package usecases

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onepay.payagent/internal/domain/entities"
	domainerrors "onepay.payagent/internal/domain/errors"
	"onepay.payagent/pkg/logger"
)

type recordedRequest struct {
	Path      string
	OrderID   string
	APIKey    string
	RequestID string
	Body      map[string]interface{}
}

func backendServer(t *testing.T, routes map[string]func(w http.ResponseWriter)) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var seen []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Path: r.URL.Path, OrderID: r.URL.Query().Get("orderId"), APIKey: r.Header.Get("X-API-Key"), RequestID: r.Header.Get("X-Request-ID")}
		_ = json.NewDecoder(r.Body).Decode(&rec.Body)
		seen = append(seen, rec)

		handler, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		handler(w)
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func writeJSON(body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) { _, _ = w.Write([]byte(body)) }
}

func TestBackendClient_Endpoints(t *testing.T) {
	srv, seen := backendServer(t, map[string]func(http.ResponseWriter){
		"/api/payments/attempts":              writeJSON(`{}`),
		"/api/payments/status":                writeJSON(`{"status":"failed","failed_reason":"expired"}`),
		"/api/orders/order-1/payments/notify": writeJSON(`{}`),
		"/api/payments/quotes":                writeJSON(`{"quoteId":"q1","inputAmount":20000000,"currency":"USDC"}`),
		"/api/payments/sessions":              writeJSON(`{"sessionId":"s1","merchantAddress":"M","nonce":"n","expiresAt":"2030-01-01T00:00:00Z"}`),
	})
	c := NewBackendClient(srv.URL+"/", "secret", 5*time.Second)
	ctx := logger.WithRequestID(context.Background(), "req-42")

	require.NoError(t, c.RegisterAttempt(ctx, entities.PaymentAttempt{OrderID: "order-1", Blockchain: "bsc", AfterBlock: 10, Deadline: 99}))

	report, err := c.CheckStatus(ctx, entities.StatusQuery{OrderID: "order-1", Blockchain: "bsc", Transaction: "0x1", AfterBlock: 10, Deadline: 99})
	require.NoError(t, err)
	assert.Equal(t, "failed", report.Status)
	assert.Equal(t, "expired", report.FailedReason)

	require.NoError(t, c.Notify(ctx, "order-1", entities.NotifyInput{TxHash: "0x1", Chain: "bsc"}))

	quote, err := c.CreateQuote(ctx, 20000000, "USDC")
	require.NoError(t, err)
	assert.Equal(t, "q1", quote.QuoteID)
	assert.Equal(t, int64(20000000), quote.InputAmount)

	session, err := c.CreateSession(ctx, entities.CreateSessionInput{Amount: 20000000, Currency: "USDC", QuoteID: "q1"})
	require.NoError(t, err)
	assert.Equal(t, "s1", session.SessionID)
	assert.Equal(t, 2030, session.ExpiresAt.Year())

	require.Len(t, *seen, 5)
	for _, r := range *seen {
		assert.Equal(t, "secret", r.APIKey, r.Path)
		assert.Equal(t, "req-42", r.RequestID, r.Path)
	}
	attempt := (*seen)[0].Body
	assert.Equal(t, "bsc", attempt["blockchain"])
	assert.Equal(t, "order-1", (*seen)[0].OrderID)
	assert.Equal(t, "10", attempt["after_block"])
	assert.Equal(t, "99", attempt["deadline"])
	assert.NotContains(t, attempt, "OrderID")
	status := (*seen)[1]
	assert.Equal(t, "order-1", status.OrderID)
	assert.Equal(t, "10", status.Body["after_block"])
	assert.Equal(t, "99", status.Body["deadline"])
	assert.Empty(t, (*seen)[2].OrderID)
	assert.Equal(t, map[string]interface{}{"txHash": "0x1", "chain": "bsc"}, (*seen)[2].Body)
	assert.Equal(t, map[string]interface{}{"amount": float64(20000000), "currency": "USDC"}, (*seen)[3].Body)
}

func TestBackendClient_Errors(t *testing.T) {
	srv, _ := backendServer(t, map[string]func(http.ResponseWriter){
		"/api/payments/status": func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"maintenance"}`))
		},
		"/api/payments/sessions": writeJSON(`{}`),
	})
	c := NewBackendClient(srv.URL, "", 5*time.Second)

	_, err := c.CheckStatus(context.Background(), entities.StatusQuery{})
	require.ErrorIs(t, err, domainerrors.ErrBackendUnavailable)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "maintenance")

	_, err = c.CreateSession(context.Background(), entities.CreateSessionInput{})
	assert.ErrorIs(t, err, domainerrors.ErrBackendUnavailable)

	assert.Error(t, c.Notify(context.Background(), "", entities.NotifyInput{}))

	srv.Close()
	err = c.RegisterAttempt(context.Background(), entities.PaymentAttempt{})
	assert.ErrorIs(t, err, domainerrors.ErrBackendUnavailable)
}
