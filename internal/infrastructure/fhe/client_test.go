package fhe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "onepay.payagent/internal/domain/errors"
)

func newFHEServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/fhe/encrypt", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]json.Number
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"ciphertext": "enc_" + in["amount"].String(), "public_key": nil})
	})
	mux.HandleFunc("/api/fhe/decrypt", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		if in["ciphertext"] == "garbage" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"detail":"Invalid ciphertext"}`))
			return
		}
		_, _ = w.Write([]byte(`{"amount":100.5}`))
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})
	return httptest.NewServer(mux)
}

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		amount string
		valid  bool
	}{
		{"100.50", true},
		{"0.01", true},
		{"999999.99", true},
		{"0", false},
		{"-5", false},
		{"1000000", false},
		{"10.123", false},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			err := ValidateAmount(decimal.RequireFromString(tt.amount))
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domainerrors.ErrInvalidAmount)
			}
		})
	}
}

func TestClient_EncryptDecrypt(t *testing.T) {
	srv := newFHEServer(t)
	defer srv.Close()
	c := NewClient(srv.URL+"/", time.Second)
	ctx := context.Background()

	ct, err := c.Encrypt(ctx, decimal.RequireFromString("100.5"))
	require.NoError(t, err)
	assert.Equal(t, "enc_100.5", ct)

	amount, err := c.Decrypt(ctx, ct)
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.RequireFromString("100.5")))

	_, err = c.Decrypt(ctx, "garbage")
	require.ErrorIs(t, err, domainerrors.ErrEncryptionFailed)
	assert.Contains(t, err.Error(), "Invalid ciphertext")

	_, err = c.Decrypt(ctx, "")
	require.ErrorIs(t, err, domainerrors.ErrInvalidAmount)

	assert.True(t, c.Healthy(ctx))
}

func TestClient_Encrypt_ValidationSkipsService(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Encrypt(context.Background(), decimal.RequireFromString("1.001"))
	require.ErrorIs(t, err, domainerrors.ErrInvalidAmount)
	assert.False(t, called)
}

func TestClient_ServiceDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, time.Second)

	_, err := c.Encrypt(context.Background(), decimal.NewFromInt(5))
	require.ErrorIs(t, err, domainerrors.ErrEncryptionFailed)
	assert.False(t, c.Healthy(context.Background()))
}
