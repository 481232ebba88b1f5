package usecases

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"onepay.payagent/internal/domain/entities"
	domainerrors "onepay.payagent/internal/domain/errors"
	"onepay.payagent/internal/metrics"
	"onepay.payagent/pkg/logger"
)

// Encryptor hides payment amounts from the history log
type Encryptor interface {
	Encrypt(ctx context.Context, amount decimal.Decimal) (string, error)
	Decrypt(ctx context.Context, ciphertext string) (decimal.Decimal, error)
}

// AdapterResolver maps a chain id onto its adapter
type AdapterResolver interface {
	Resolve(id entities.ChainID) (ChainAdapter, error)
}

// PaymentExchanger performs a paid HTTP request
type PaymentExchanger interface {
	Do(ctx context.Context, method, url string, body interface{}, sign PaymentSignFunc) (*X402Result, error)
}

// OrchestratorConfig tunes PaymentOrchestrator
type OrchestratorConfig struct {
	FacilitatorURL    string
	X402ServerURL     string
	PollMaxAttempts   int
	PollInterval      time.Duration
	AttemptDeadline   time.Duration
	AutoSwitchNetwork bool
}

// OrchestratorDeps are the collaborators of PaymentOrchestrator. Encryptor may be nil.
type OrchestratorDeps struct {
	Chains      AdapterResolver
	Wallets     WalletContext
	Facilitator FacilitatorConfigSource
	Submitter   SettlementSubmitter
	Backend     PaymentBackend
	X402        PaymentExchanger
	Builder     *PaymentRequestBuilder
	Poller      *SettlementPoller
	Log         *TransactionLog
	Encryptor   Encryptor
}

// PaymentOrchestrator runs one payment from intent to a final settlement state
type PaymentOrchestrator struct {
	deps OrchestratorDeps
	cfg  OrchestratorConfig
	now  func() time.Time
}

func NewPaymentOrchestrator(deps OrchestratorDeps, cfg OrchestratorConfig) *PaymentOrchestrator {
	if deps.Builder == nil {
		deps.Builder = NewPaymentRequestBuilder()
	}
	if deps.Poller == nil {
		deps.Poller = NewSettlementPoller()
	}
	if cfg.PollMaxAttempts <= 0 {
		cfg.PollMaxAttempts = DefaultPollMaxAttempts
	}
	if cfg.PollInterval < 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.AttemptDeadline <= 0 {
		cfg.AttemptDeadline = 10 * time.Minute
	}
	return &PaymentOrchestrator{deps: deps, cfg: cfg, now: time.Now}
}

// submission is what every settlement path hands to the common tail of Execute
type submission struct {
	chain      *entities.ChainConfig
	txType     entities.TransactionType
	query      entities.StatusQuery
	ciphertext string
}

// Execute settles intent and returns the final state. A failed or unconfirmed settlement
// returns both the result and an error.
func (o *PaymentOrchestrator) Execute(ctx context.Context, intent entities.PaymentIntent) (*entities.SettlementResult, error) {
	ctx = logger.WithCorrelationID(ctx, uuid.NewString())
	if logger.RequestID(ctx) == "" {
		ctx = logger.WithRequestID(ctx, uuid.NewString())
	}
	start := o.now()

	if !intent.Amount.IsPositive() {
		return nil, domainerrors.InvalidAmount("amount must be greater than 0")
	}
	if intent.Currency == "" {
		intent.Currency = entities.AssetUSDC
	}

	adapter, err := o.deps.Chains.Resolve(intent.Chain)
	if err != nil {
		o.observe(intent, "", "error", start)
		return nil, err
	}
	mode := intent.EffectiveMode(adapter.Family())
	logger.Info(ctx, "Executing payment",
		zap.String("chain", string(intent.Chain)),
		zap.String("mode", string(mode)),
		zap.String("amount", intent.Amount.String()),
		zap.String("orderId", intent.OrderID),
	)

	var sub *submission
	switch a := adapter.(type) {
	case SolanaPaymentAdapter:
		sub, err = o.submitSolana(ctx, intent, a)
	case EVMPaymentAdapter:
		if mode == entities.PaymentModeFacilitated {
			sub, err = o.submitX402(ctx, intent, a)
		} else {
			sub, err = o.submitDirect(ctx, intent, a)
		}
	default:
		err = domainerrors.UnsupportedChain(string(intent.Chain))
	}
	if err != nil {
		logger.Error(ctx, "Payment failed before settlement", zap.String("chain", string(intent.Chain)), zap.Error(err))
		o.observe(intent, mode, "error", start)
		return nil, err
	}

	result := o.deps.Poller.Poll(ctx, func(ctx context.Context) (*entities.StatusReport, error) {
		return o.deps.Backend.CheckStatus(ctx, sub.query)
	}, o.cfg.PollMaxAttempts, o.cfg.PollInterval)
	result.TransactionReference = null.StringFrom(sub.query.Transaction)
	result.ExplorerURL = sub.chain.TxURL(sub.query.Transaction)

	if result.Status == entities.SettlementSuccess {
		o.notify(ctx, intent, sub)
	}
	o.record(ctx, intent, sub, &result)
	o.observe(intent, mode, string(result.Status), start)

	logger.Info(ctx, "Payment settled",
		zap.String("tx", sub.query.Transaction),
		zap.String("status", string(result.Status)),
		zap.Int("attempts", result.Attempts),
	)

	switch result.Status {
	case entities.SettlementFailed:
		return &result, domainerrors.SettlementRejected(result.FailureReason.String)
	case entities.SettlementTimeout:
		return &result, domainerrors.SettlementTimeout(result.Attempts)
	}
	return &result, nil
}

func (o *PaymentOrchestrator) submitSolana(ctx context.Context, intent entities.PaymentIntent, adapter SolanaPaymentAdapter) (*submission, error) {
	wallet := o.deps.Wallets.Solana
	if wallet == nil {
		return nil, domainerrors.WalletUnavailable(nil)
	}
	owner, err := wallet.PublicKey(ctx)
	if err != nil {
		return nil, domainerrors.WalletUnavailable(err)
	}

	cfg, err := o.deps.Facilitator.FetchConfig(ctx, o.cfg.FacilitatorURL)
	if err != nil {
		return nil, err
	}
	units, err := ToMinorUnits(intent.Amount, cfg.Decimals)
	if err != nil {
		return nil, err
	}
	if !units.IsInt64() {
		return nil, domainerrors.InvalidAmount("amount exceeds token range")
	}
	if err := o.checkBalance(ctx, adapter, owner.String(), cfg.Asset, units); err != nil {
		return nil, err
	}

	ciphertext, err := o.encrypt(ctx, intent)
	if err != nil {
		return nil, err
	}

	quote, err := o.deps.Backend.CreateQuote(ctx, units.Int64(), string(intent.Currency))
	if err != nil {
		return nil, err
	}
	session, err := o.deps.Backend.CreateSession(ctx, entities.CreateSessionInput{
		Amount:        quote.InputAmount,
		Currency:      string(intent.Currency),
		QuoteID:       quote.QuoteID,
		FHECiphertext: ciphertext,
		UseFHE:        ciphertext != "",
	})
	if err != nil {
		return nil, err
	}
	if session.MerchantAddress == "" {
		session.MerchantAddress = firstNonEmpty(intent.Recipient, cfg.PayTo)
	}

	height, err := adapter.CurrentHeight(ctx)
	if err != nil {
		return nil, err
	}
	deadline := o.deadline(session.ExpiresAt)
	o.registerAttempt(ctx, entities.PaymentAttempt{
		OrderID:    intent.OrderID,
		Blockchain: string(adapter.Chain().ID),
		Sender:     owner.String(),
		Receiver:   session.MerchantAddress,
		ToToken:    cfg.Asset,
		ToAmount:   units.String(),
		ToDecimals: cfg.Decimals,
		AfterBlock: height,
		Deadline:   deadline,
	})

	request, err := o.deps.Builder.BuildSolana(ctx, intent.Amount, session, cfg, wallet, adapter)
	if err != nil {
		return nil, err
	}
	signature, err := o.deps.Submitter.Submit(ctx, session.SessionID, request)
	if err != nil {
		return nil, err
	}

	return &submission{
		chain:  adapter.Chain(),
		txType: txTypeFor(intent, entities.TransactionTypePayment),
		query: entities.StatusQuery{
			OrderID:     intent.OrderID,
			Blockchain:  string(adapter.Chain().ID),
			Transaction: signature,
			Sender:      owner.String(),
			Receiver:    session.MerchantAddress,
			ToToken:     cfg.Asset,
			AfterBlock:  height,
			Deadline:    deadline,
		},
		ciphertext: ciphertext,
	}, nil
}

func (o *PaymentOrchestrator) submitDirect(ctx context.Context, intent entities.PaymentIntent, adapter EVMPaymentAdapter) (*submission, error) {
	chain := adapter.Chain()
	wallet, from, err := o.evmWallet(ctx, adapter)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(intent.Recipient, "0x") {
		return nil, domainerrors.MalformedRequirements("recipient")
	}
	token, ok := chain.Token(intent.Currency)
	if !ok {
		return nil, domainerrors.UnsupportedToken(string(intent.Currency), chain.Name)
	}
	decimals, err := adapter.Decimals(ctx, token.Address)
	if err != nil {
		return nil, err
	}
	units, err := ToMinorUnits(intent.Amount, decimals)
	if err != nil {
		return nil, err
	}
	if err := o.checkBalance(ctx, adapter, from, token.Address, units); err != nil {
		return nil, err
	}
	ciphertext, err := o.encrypt(ctx, intent)
	if err != nil {
		return nil, err
	}

	height, err := adapter.CurrentHeight(ctx)
	if err != nil {
		return nil, err
	}
	deadline := o.deadline(time.Time{})
	o.registerAttempt(ctx, entities.PaymentAttempt{
		OrderID:    intent.OrderID,
		Blockchain: string(chain.ID),
		Sender:     from,
		Receiver:   intent.Recipient,
		ToToken:    token.Address,
		ToAmount:   units.String(),
		ToDecimals: decimals,
		AfterBlock: height,
		Deadline:   deadline,
	})

	hash, err := adapter.Transfer(ctx, wallet, token.Address, intent.Recipient, units)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "Transfer broadcast", zap.String("tx", hash), zap.String("chain", string(chain.ID)))

	return &submission{
		chain:  chain,
		txType: txTypeFor(intent, entities.TransactionTypePayment),
		query: entities.StatusQuery{
			OrderID:     intent.OrderID,
			Blockchain:  string(chain.ID),
			Transaction: hash,
			Sender:      from,
			Receiver:    intent.Recipient,
			ToToken:     token.Address,
			AfterBlock:  height,
			Deadline:    deadline,
		},
		ciphertext: ciphertext,
	}, nil
}

func (o *PaymentOrchestrator) submitX402(ctx context.Context, intent entities.PaymentIntent, adapter EVMPaymentAdapter) (*submission, error) {
	if intent.Resource == "" {
		return nil, domainerrors.MalformedRequirements("resource")
	}
	chain := adapter.Chain()
	wallet, from, err := o.evmWallet(ctx, adapter)
	if err != nil {
		return nil, err
	}
	ciphertext, err := o.encrypt(ctx, intent)
	if err != nil {
		return nil, err
	}

	var query entities.StatusQuery
	sign := func(ctx context.Context, requirements *entities.PaymentRequirements) (string, error) {
		value, err := validateRequirements(requirements)
		if err != nil {
			return "", err
		}
		if err := o.checkBalance(ctx, adapter, from, requirements.Asset, value); err != nil {
			return "", err
		}
		decimals, err := requirementDecimals(ctx, requirements, adapter)
		if err != nil {
			return "", err
		}
		height, err := adapter.CurrentHeight(ctx)
		if err != nil {
			return "", err
		}
		query = entities.StatusQuery{
			OrderID:    intent.OrderID,
			Blockchain: string(chain.ID),
			Sender:     from,
			Receiver:   requirements.PayTo,
			ToToken:    requirements.Asset,
			AfterBlock: height,
			Deadline:   o.deadline(time.Time{}),
		}
		o.registerAttempt(ctx, entities.PaymentAttempt{
			OrderID:    intent.OrderID,
			Blockchain: query.Blockchain,
			Sender:     from,
			Receiver:   requirements.PayTo,
			ToToken:    requirements.Asset,
			ToAmount:   value.String(),
			ToDecimals: decimals,
			AfterBlock: height,
			Deadline:   query.Deadline,
		})
		_, header, err := o.deps.Builder.BuildX402(ctx, requirements, wallet, adapter)
		return header, err
	}

	res, err := o.deps.X402.Do(ctx, http.MethodGet, resourceURL(o.cfg.X402ServerURL, intent.Resource), nil, sign)
	if err != nil {
		return nil, err
	}
	if res.Settlement == nil {
		return nil, domainerrors.MalformedRequirements("payment challenge")
	}
	query.Transaction = res.Settlement.Transaction

	return &submission{
		chain:      chain,
		txType:     entities.TransactionTypeX402Payment,
		query:      query,
		ciphertext: ciphertext,
	}, nil
}

// evmWallet returns the connected wallet on the adapter's chain and its address
func (o *PaymentOrchestrator) evmWallet(ctx context.Context, adapter EVMPaymentAdapter) (EVMWallet, string, error) {
	wallet := o.deps.Wallets.EVM
	if wallet == nil {
		return nil, "", domainerrors.WalletUnavailable(nil)
	}
	if o.cfg.AutoSwitchNetwork {
		if err := adapter.EnsureNetwork(ctx, wallet); err != nil {
			return nil, "", err
		}
	}
	addr, err := wallet.Address(ctx)
	if err != nil {
		return nil, "", domainerrors.WalletUnavailable(err)
	}
	chainID, err := wallet.ChainID(ctx)
	if err != nil {
		return nil, "", domainerrors.WalletUnavailable(err)
	}
	if chainID.Cmp(adapter.Chain().BigChainID()) != 0 {
		return nil, "", domainerrors.WrongNetwork(adapter.Chain().Name, "chain "+chainID.String())
	}
	return wallet, addr.Hex(), nil
}

func (o *PaymentOrchestrator) checkBalance(ctx context.Context, adapter ChainAdapter, owner, asset string, need *big.Int) error {
	have, err := adapter.Balance(ctx, owner, asset)
	if err != nil {
		return err
	}
	if have.Cmp(need) < 0 {
		return domainerrors.InsufficientFunds(have.String(), need.String())
	}
	return nil
}

func (o *PaymentOrchestrator) encrypt(ctx context.Context, intent entities.PaymentIntent) (string, error) {
	if !intent.Confidential {
		return "", nil
	}
	if o.deps.Encryptor == nil {
		return "", domainerrors.EncryptionFailed(errors.New("no encryptor configured"))
	}
	return o.deps.Encryptor.Encrypt(ctx, intent.Amount)
}

func (o *PaymentOrchestrator) deadline(expiresAt time.Time) int64 {
	if !expiresAt.IsZero() {
		return expiresAt.Unix()
	}
	return o.now().Add(o.cfg.AttemptDeadline).Unix()
}

func (o *PaymentOrchestrator) registerAttempt(ctx context.Context, attempt entities.PaymentAttempt) {
	if err := o.deps.Backend.RegisterAttempt(ctx, attempt); err != nil {
		metrics.BestEffortFailuresTotal.WithLabelValues("attempt").Inc()
		logger.Warn(ctx, "Failed to register payment attempt", zap.String("chain", attempt.Blockchain), zap.Error(err))
	}
}

func (o *PaymentOrchestrator) notify(ctx context.Context, intent entities.PaymentIntent, sub *submission) {
	if intent.OrderID == "" {
		return
	}
	err := o.deps.Backend.Notify(ctx, intent.OrderID, entities.NotifyInput{
		TxHash: sub.query.Transaction,
		Chain:  sub.query.Blockchain,
	})
	if err != nil {
		metrics.BestEffortFailuresTotal.WithLabelValues("notify").Inc()
		logger.Warn(ctx, "Failed to notify order payment", zap.String("orderId", intent.OrderID), zap.Error(err))
	}
}

// requirementDecimals prefers extra.decimals from the challenge and falls back to the token contract
func requirementDecimals(ctx context.Context, requirements *entities.PaymentRequirements, adapter ChainAdapter) (uint8, error) {
	if d, ok := requirements.Extra["decimals"].(float64); ok && d > 0 && d <= 255 && d == float64(uint8(d)) {
		return uint8(d), nil
	}
	return adapter.Decimals(ctx, requirements.Asset)
}

func (o *PaymentOrchestrator) record(ctx context.Context, intent entities.PaymentIntent, sub *submission, result *entities.SettlementResult) {
	if o.deps.Log == nil {
		return
	}
	meta := statusQueryMetadata(sub.query)
	meta[metaChain] = string(sub.chain.ID)
	meta[metaExplorer] = result.ExplorerURL
	if intent.OrderID != "" {
		meta[metaOrderID] = intent.OrderID
	}
	if result.FailureReason.Valid {
		meta[metaFailure] = result.FailureReason.String
	}

	rec := &entities.TransactionRecord{
		Hash:     sub.query.Transaction,
		Type:     sub.txType,
		From:     sub.query.Sender,
		To:       sub.query.Receiver,
		Status:   entities.TransactionStatusFromSettlement(result.Status),
		Network:  sub.chain.Network,
		Metadata: meta,
	}
	if sub.ciphertext != "" {
		rec.EncryptedAmount = null.StringFrom(sub.ciphertext)
	} else {
		rec.Amount = nullIfEmpty(intent.Amount.String())
	}
	if _, err := o.deps.Log.Add(ctx, rec); err != nil {
		metrics.BestEffortFailuresTotal.WithLabelValues("log").Inc()
		logger.Error(ctx, "Failed to record transaction", zap.String("tx", rec.Hash), zap.Error(err))
	}
}

func (o *PaymentOrchestrator) observe(intent entities.PaymentIntent, mode entities.PaymentMode, status string, start time.Time) {
	metrics.PaymentsTotal.WithLabelValues(string(intent.Chain), string(mode), status).Inc()
	metrics.PaymentDuration.WithLabelValues(string(intent.Chain), string(mode)).Observe(o.now().Sub(start).Seconds())
}

func txTypeFor(intent entities.PaymentIntent, base entities.TransactionType) entities.TransactionType {
	if intent.Confidential {
		return entities.TransactionTypeFHEPayment
	}
	return base
}

func resourceURL(base, resource string) string {
	if strings.HasPrefix(resource, "http://") || strings.HasPrefix(resource, "https://") {
		return resource
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(resource, "/")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
