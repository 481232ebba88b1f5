package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"onepay.payagent/internal/domain/entities"
)

type executorStub struct {
	executeFn func(ctx context.Context, intent entities.PaymentIntent) (*entities.SettlementResult, error)
	got       []entities.PaymentIntent
}

func (s *executorStub) Execute(ctx context.Context, intent entities.PaymentIntent) (*entities.SettlementResult, error) {
	s.got = append(s.got, intent)
	return s.executeFn(ctx, intent)
}

type decryptorStub struct {
	amount decimal.Decimal
	err    error
}

func (s decryptorStub) Decrypt(context.Context, string) (decimal.Decimal, error) {
	return s.amount, s.err
}

type checkerStub bool

func (p checkerStub) Healthy(context.Context) bool { return bool(p) }

func serveJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}
