package usecases

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"onepay.payagent/internal/domain/entities"
	domainerrors "onepay.payagent/internal/domain/errors"
)

const schemeExact = "exact"

// PaymentRequestBuilder assembles signed payment payloads for each settlement path
type PaymentRequestBuilder struct {
	now func() time.Time
}

func NewPaymentRequestBuilder() *PaymentRequestBuilder {
	return &PaymentRequestBuilder{now: time.Now}
}

// validateRequirements checks the fields needed before anything is signed
func validateRequirements(r *entities.PaymentRequirements) (*big.Int, error) {
	if r == nil {
		return nil, domainerrors.MalformedRequirements("requirements")
	}
	if strings.TrimSpace(r.PayTo) == "" {
		return nil, domainerrors.MalformedRequirements("payTo")
	}
	if strings.TrimSpace(r.Asset) == "" {
		return nil, domainerrors.MalformedRequirements("asset")
	}
	value, ok := new(big.Int).SetString(strings.TrimSpace(r.MaxAmountRequired), 10)
	if !ok || value.Sign() <= 0 {
		return nil, domainerrors.MalformedRequirements("maxAmountRequired")
	}
	if !common.IsHexAddress(r.PayTo) {
		return nil, domainerrors.MalformedRequirements("payTo")
	}
	if !common.IsHexAddress(r.Asset) {
		return nil, domainerrors.MalformedRequirements("asset")
	}
	return value, nil
}

// BuildX402 signs an EIP-3009 authorization for the requirements and returns the envelope
// together with its X-PAYMENT header encoding.
func (b *PaymentRequestBuilder) BuildX402(ctx context.Context, requirements *entities.PaymentRequirements, wallet EVMWallet, adapter EVMPaymentAdapter) (*entities.X402Envelope, string, error) {
	value, err := validateRequirements(requirements)
	if err != nil {
		return nil, "", err
	}
	chain := adapter.Chain()
	if requirements.Network != "" && !strings.EqualFold(requirements.Network, chain.Network) {
		return nil, "", domainerrors.WrongNetwork(requirements.Network, chain.Network)
	}

	payload, err := adapter.SignAuthorization(ctx, wallet, AuthorizationParams{
		Asset:             requirements.Asset,
		To:                requirements.PayTo,
		Value:             value,
		TokenName:         requirements.ExtraString("name"),
		TokenVersion:      requirements.ExtraString("version"),
		MaxTimeoutSeconds: requirements.MaxTimeoutSeconds,
	})
	if err != nil {
		return nil, "", err
	}

	scheme := requirements.Scheme
	if scheme == "" {
		scheme = schemeExact
	}
	network := requirements.Network
	if network == "" {
		network = chain.Network
	}
	envelope := &entities.X402Envelope{
		X402Version: entities.X402Version,
		Scheme:      scheme,
		Network:     network,
		Payload:     *payload,
	}
	header, err := EncodeHeader(envelope)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode payment header: %w", err)
	}
	return envelope, header, nil
}

// BuildSolana converts the amount into minor units of the facilitator's asset and
// returns the session payload with the wallet-signed transfer attached.
func (b *PaymentRequestBuilder) BuildSolana(ctx context.Context, amount decimal.Decimal, session *entities.PaymentSession, cfg *entities.FacilitatorConfig, wallet SolanaWallet, adapter SolanaPaymentAdapter) (*entities.SolanaPaymentRequest, error) {
	if session == nil || session.SessionID == "" {
		return nil, domainerrors.MalformedRequirements("sessionId")
	}
	if session.MerchantAddress == "" {
		return nil, domainerrors.MalformedRequirements("merchantAddress")
	}
	if cfg == nil {
		return nil, domainerrors.InvalidFacilitatorResponse("missing facilitator config")
	}
	if wallet == nil {
		return nil, domainerrors.WalletUnavailable(nil)
	}

	units, err := ToMinorUnits(amount, cfg.Decimals)
	if err != nil {
		return nil, err
	}
	if !units.IsUint64() {
		return nil, domainerrors.InvalidAmount("amount exceeds token range")
	}

	owner, err := wallet.PublicKey(ctx)
	if err != nil {
		return nil, domainerrors.WalletUnavailable(err)
	}

	signed, err := adapter.SignTransfer(ctx, wallet, SolanaTransfer{
		Mint:      cfg.Asset,
		Recipient: session.MerchantAddress,
		Amount:    units.Uint64(),
		Decimals:  cfg.Decimals,
		FeePayer:  cfg.FeePayer,
	})
	if err != nil {
		return nil, err
	}

	resource := "/api/payments/" + session.SessionID
	var expiry int64
	if !session.ExpiresAt.IsZero() {
		expiry = session.ExpiresAt.UnixMilli()
	}
	return &entities.SolanaPaymentRequest{
		Payload: entities.SolanaPaymentPayload{
			Amount:      units.String(),
			Recipient:   session.MerchantAddress,
			ResourceID:  resource,
			ResourceURL: resource,
			Nonce:       session.Nonce,
			Timestamp:   b.now().UnixMilli(),
			Expiry:      expiry,
		},
		// the signature travels inside SignedTransaction
		Signature:         "",
		ClientPublicKey:   owner.String(),
		SignedTransaction: signed,
	}, nil
}
