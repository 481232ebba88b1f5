package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"onepay.payagent/internal/domain/entities"
	domainerrors "onepay.payagent/internal/domain/errors"
	"onepay.payagent/internal/metrics"
	"onepay.payagent/pkg/httpjson"
	"onepay.payagent/pkg/logger"
	"onepay.payagent/pkg/redis"
)

const (
	// DevnetUSDCMint is used when the facilitator does not name an asset
	DevnetUSDCMint       = "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU"
	defaultAssetDecimals = 6
)

// FacilitatorConfigSource resolves facilitator settings
type FacilitatorConfigSource interface {
	FetchConfig(ctx context.Context, facilitatorURL string) (*entities.FacilitatorConfig, error)
}

// SettlementSubmitter hands a signed Solana payment to the settlement endpoint
type SettlementSubmitter interface {
	Submit(ctx context.Context, sessionID string, payload *entities.SolanaPaymentRequest) (string, error)
}

// FacilitatorClient reads facilitator configuration and submits session settlements
type FacilitatorClient struct {
	http       *httpjson.Client
	settleBase string
}

// NewFacilitatorClient creates a client. settleBaseURL hosts /api/payments/sessions/{id}/settle.
func NewFacilitatorClient(settleBaseURL, apiKey string, timeout time.Duration) *FacilitatorClient {
	c := httpjson.New(timeout)
	if apiKey != "" {
		c.Headers["X-API-Key"] = apiKey
	}
	return &FacilitatorClient{http: c, settleBase: strings.TrimRight(settleBaseURL, "/")}
}

type supportedResponse struct {
	Kinds []struct {
		Scheme  string                   `json:"scheme,omitempty"`
		Network string                   `json:"network,omitempty"`
		Extra   *supportedKindExtraField `json:"extra"`
	} `json:"kinds"`
}

type supportedKindExtraField struct {
	FeePayer string `json:"feePayer"`
	Asset    string `json:"asset"`
	PayTo    string `json:"payTo"`
	Decimals *int   `json:"decimals"`
}

// FetchConfig reads GET {facilitatorURL}/supported
func (c *FacilitatorClient) FetchConfig(ctx context.Context, facilitatorURL string) (*entities.FacilitatorConfig, error) {
	var out supportedResponse
	err := c.http.Do(ctx, http.MethodGet, strings.TrimRight(facilitatorURL, "/")+"/supported", requestHeaders(ctx), nil, &out)
	if err != nil {
		var se *httpjson.StatusError
		if errors.As(err, &se) {
			return nil, domainerrors.InvalidFacilitatorResponse(fmt.Sprintf("status %d", se.StatusCode))
		}
		return nil, domainerrors.InvalidFacilitatorResponse(err.Error())
	}
	if len(out.Kinds) == 0 || out.Kinds[0].Extra == nil {
		return nil, domainerrors.InvalidFacilitatorResponse("kinds[0].extra missing")
	}

	extra := out.Kinds[0].Extra
	cfg := &entities.FacilitatorConfig{
		FeePayer: extra.FeePayer,
		Asset:    extra.Asset,
		PayTo:    extra.PayTo,
		Decimals: defaultAssetDecimals,
	}
	if cfg.Asset == "" {
		cfg.Asset = DevnetUSDCMint
	}
	if extra.Decimals != nil && *extra.Decimals > 0 {
		if *extra.Decimals > 255 {
			return nil, domainerrors.InvalidFacilitatorResponse(fmt.Sprintf("decimals out of range: %d", *extra.Decimals))
		}
		cfg.Decimals = uint8(*extra.Decimals)
	}
	return cfg, nil
}

type settleResponse struct {
	Transaction string `json:"transaction"`
	Signature   string `json:"signature"`
	TxSignature string `json:"txSignature"`
	Network     string `json:"network"`
	Payer       string `json:"payer"`
}

// Submit posts a signed payment to the session's settle endpoint and returns the chain signature
func (c *FacilitatorClient) Submit(ctx context.Context, sessionID string, payload *entities.SolanaPaymentRequest) (string, error) {
	endpoint := fmt.Sprintf("%s/api/payments/sessions/%s/settle", c.settleBase, url.PathEscape(sessionID))

	var out settleResponse
	err := c.http.Do(ctx, http.MethodPost, endpoint, requestHeaders(ctx), payload, &out)
	if err != nil {
		var se *httpjson.StatusError
		if errors.As(err, &se) {
			return "", domainerrors.SettlementRejected(rejectionReason(se))
		}
		return "", domainerrors.BackendUnavailable(0, err)
	}

	for _, ref := range []string{out.Transaction, out.TxSignature, out.Signature} {
		if ref != "" {
			return ref, nil
		}
	}
	return "", domainerrors.SettlementRejected("settlement response carried no transaction")
}

func rejectionReason(se *httpjson.StatusError) string {
	if se.StatusCode == http.StatusPaymentRequired {
		var challenge entities.PaymentChallenge
		if err := json.Unmarshal(se.Body, &challenge); err == nil && len(challenge.Accepts) > 0 {
			if challenge.Error != "" {
				return challenge.Error
			}
			return "payment required"
		}
	}
	reason := httpjson.ErrorDetail(se.Body, "error", "errorReason", "invalidReason", "message")
	if reason == "" {
		return fmt.Sprintf("status %d", se.StatusCode)
	}
	return reason
}

// CachedFacilitator keeps facilitator configs in Redis for a short time
type CachedFacilitator struct {
	next  FacilitatorConfigSource
	cache *redis.JSONCache
}

func NewCachedFacilitator(next FacilitatorConfigSource, ttl time.Duration) *CachedFacilitator {
	return &CachedFacilitator{next: next, cache: redis.NewJSONCache("payagent:facilitator", ttl)}
}

func (c *CachedFacilitator) FetchConfig(ctx context.Context, facilitatorURL string) (*entities.FacilitatorConfig, error) {
	var cached entities.FacilitatorConfig
	hit, err := c.cache.Get(ctx, facilitatorURL, &cached)
	if err != nil {
		logger.Warn(ctx, "Facilitator config cache read failed", zap.Error(err))
	}
	if hit {
		metrics.FacilitatorCacheHitsTotal.Inc()
		return &cached, nil
	}

	cfg, err := c.next.FetchConfig(ctx, facilitatorURL)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, facilitatorURL, cfg); err != nil {
		logger.Warn(ctx, "Facilitator config cache write failed", zap.Error(err))
	}
	return cfg, nil
}
