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
)

func x402Server(t *testing.T, challenge interface{}, paid func(w http.ResponseWriter, payment string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payment := r.Header.Get(HeaderPayment)
		if payment == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusPaymentRequired)
			_ = json.NewEncoder(w).Encode(challenge)
			return
		}
		paid(w, payment)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func settledHeader(t *testing.T, tx string) string {
	t.Helper()
	h, err := EncodeHeader(entities.SettlementResponse{Success: true, Transaction: tx, Network: "ethereum", Payer: "0xpayer"})
	require.NoError(t, err)
	return h
}

func TestX402Client_PaysAndDecodesSettlement(t *testing.T) {
	var gotPayment string
	srv := x402Server(t, entities.PaymentChallenge{X402Version: 1, Accepts: []entities.PaymentRequirements{*baseRequirements()}},
		func(w http.ResponseWriter, payment string) {
			gotPayment = payment
			w.Header().Set(HeaderPaymentResponse, settledHeader(t, "0xsettled"))
			_, _ = w.Write([]byte(`{"data":"premium"}`))
		})

	var signedFor *entities.PaymentRequirements
	res, err := NewX402Client(5*time.Second).Do(context.Background(), http.MethodGet, srv.URL+"/premium", nil,
		func(_ context.Context, r *entities.PaymentRequirements) (string, error) {
			signedFor = r
			return "signed-header", nil
		})
	require.NoError(t, err)

	assert.Equal(t, "signed-header", gotPayment)
	assert.Equal(t, testRecipient, signedFor.PayTo)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"data":"premium"}`, string(res.Body))
	require.NotNil(t, res.Settlement)
	assert.Equal(t, "0xsettled", res.Settlement.Transaction)
	assert.Equal(t, "0xpayer", res.Settlement.Payer)
}

func TestX402Client_BareArrayChallenge(t *testing.T) {
	srv := x402Server(t, []entities.PaymentRequirements{*baseRequirements()}, func(w http.ResponseWriter, _ string) {
		w.Header().Set(HeaderPaymentResponse, settledHeader(t, "0xabc"))
	})
	res, err := NewX402Client(5*time.Second).Do(context.Background(), http.MethodGet, srv.URL, nil,
		func(context.Context, *entities.PaymentRequirements) (string, error) { return "h", nil })
	require.NoError(t, err)
	assert.Equal(t, "0xabc", res.Settlement.Transaction)
}

func TestX402Client_EmptyChallenge(t *testing.T) {
	srv := x402Server(t, entities.PaymentChallenge{}, nil)
	signed := false
	_, err := NewX402Client(5*time.Second).Do(context.Background(), http.MethodGet, srv.URL, nil,
		func(context.Context, *entities.PaymentRequirements) (string, error) { signed = true; return "", nil })
	assert.ErrorIs(t, err, domainerrors.ErrMalformedRequirements)
	assert.False(t, signed)
}

func TestX402Client_MissingSettlementHeader(t *testing.T) {
	srv := x402Server(t, []entities.PaymentRequirements{*baseRequirements()}, func(w http.ResponseWriter, _ string) {
		w.WriteHeader(http.StatusOK)
	})
	_, err := NewX402Client(5*time.Second).Do(context.Background(), http.MethodGet, srv.URL, nil,
		func(context.Context, *entities.PaymentRequirements) (string, error) { return "h", nil })
	require.ErrorIs(t, err, domainerrors.ErrSettlementRejected)
	assert.Contains(t, err.Error(), "missing settlement response")
}

func TestX402Client_PaidRetryRejected(t *testing.T) {
	srv := x402Server(t, []entities.PaymentRequirements{*baseRequirements()}, func(w http.ResponseWriter, _ string) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error":"invalid signature","accepts":[{"scheme":"exact"}]}`))
	})
	_, err := NewX402Client(5*time.Second).Do(context.Background(), http.MethodGet, srv.URL, nil,
		func(context.Context, *entities.PaymentRequirements) (string, error) { return "h", nil })
	require.ErrorIs(t, err, domainerrors.ErrSettlementRejected)
	assert.Contains(t, err.Error(), "invalid signature")
}

func TestX402Client_FreeResource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	res, err := NewX402Client(5*time.Second).Do(context.Background(), http.MethodGet, srv.URL, nil,
		func(context.Context, *entities.PaymentRequirements) (string, error) {
			t.Fatal("sign must not be called")
			return "", nil
		})
	require.NoError(t, err)
	assert.Nil(t, res.Settlement)
	assert.Equal(t, "ok", string(res.Body))
}
