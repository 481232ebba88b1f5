package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	cases := []struct {
		name    string
		checker HealthChecker
		fhe     interface{}
	}{
		{"no checker", nil, nil},
		{"fhe up", checkerStub(true), "ok"},
		{"fhe down", checkerStub(false), "unavailable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter()
			r.GET("/health", NewHealthHandler("payagent", "1.0.0", tc.checker).Health)

			rec := serveJSON(t, r, http.MethodGet, "/health", nil)
			require.Equal(t, http.StatusOK, rec.Code)
			body := decodeBody(t, rec)
			require.Equal(t, "ok", body["status"])
			require.Equal(t, "payagent", body["service"])
			require.Equal(t, tc.fhe, body["fhe"])
		})
	}
}
