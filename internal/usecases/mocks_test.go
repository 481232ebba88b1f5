package usecases

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"onepay.payagent/internal/domain/entities"
)

// MockEVMWallet
type MockEVMWallet struct {
	mock.Mock
}

func (m *MockEVMWallet) Address(ctx context.Context) (common.Address, error) {
	args := m.Called(ctx)
	return args.Get(0).(common.Address), args.Error(1)
}

func (m *MockEVMWallet) ChainID(ctx context.Context) (*big.Int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *MockEVMWallet) SignTypedData(ctx context.Context, typedData apitypes.TypedData) ([]byte, error) {
	args := m.Called(ctx, typedData)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockEVMWallet) SendTransaction(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error) {
	args := m.Called(ctx, to, data, value)
	return args.Get(0).(common.Hash), args.Error(1)
}

// MockEVMChainReader
type MockEVMChainReader struct {
	mock.Mock
}

func (m *MockEVMChainReader) GetTokenBalance(ctx context.Context, tokenAddress, ownerAddress string) (*big.Int, error) {
	args := m.Called(ctx, tokenAddress, ownerAddress)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *MockEVMChainReader) GetTokenDecimals(ctx context.Context, tokenAddress string) (uint8, error) {
	args := m.Called(ctx, tokenAddress)
	return args.Get(0).(uint8), args.Error(1)
}

func (m *MockEVMChainReader) GetBlockNumber(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

// MockPaymentBackend
type MockPaymentBackend struct {
	mock.Mock
}

func (m *MockPaymentBackend) RegisterAttempt(ctx context.Context, attempt entities.PaymentAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockPaymentBackend) CheckStatus(ctx context.Context, query entities.StatusQuery) (*entities.StatusReport, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.StatusReport), args.Error(1)
}

func (m *MockPaymentBackend) Notify(ctx context.Context, orderID string, input entities.NotifyInput) error {
	args := m.Called(ctx, orderID, input)
	return args.Error(0)
}

func (m *MockPaymentBackend) CreateQuote(ctx context.Context, amount int64, currency string) (*entities.PaymentQuote, error) {
	args := m.Called(ctx, amount, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PaymentQuote), args.Error(1)
}

func (m *MockPaymentBackend) CreateSession(ctx context.Context, input entities.CreateSessionInput) (*entities.PaymentSession, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PaymentSession), args.Error(1)
}

// MockFacilitator
type MockFacilitator struct {
	mock.Mock
}

func (m *MockFacilitator) FetchConfig(ctx context.Context, facilitatorURL string) (*entities.FacilitatorConfig, error) {
	args := m.Called(ctx, facilitatorURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.FacilitatorConfig), args.Error(1)
}

func (m *MockFacilitator) Submit(ctx context.Context, sessionID string, payload *entities.SolanaPaymentRequest) (string, error) {
	args := m.Called(ctx, sessionID, payload)
	return args.String(0), args.Error(1)
}

// MockEncryptor
type MockEncryptor struct {
	mock.Mock
}

func (m *MockEncryptor) Encrypt(ctx context.Context, amount decimal.Decimal) (string, error) {
	args := m.Called(ctx, amount)
	return args.String(0), args.Error(1)
}

func (m *MockEncryptor) Decrypt(ctx context.Context, ciphertext string) (decimal.Decimal, error) {
	args := m.Called(ctx, ciphertext)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// stubSolanaReader answers Solana RPC reads from fixed values
type stubSolanaReader struct {
	blockhash solana.Hash
	existing  map[solana.PublicKey]bool
	balances  map[solana.PublicKey]uint64
	slot      uint64
	err       error
}

func (s *stubSolanaReader) GetLatestBlockhash(context.Context, rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &rpc.GetLatestBlockhashResult{Value: &rpc.LatestBlockhashResult{Blockhash: s.blockhash, LastValidBlockHeight: 1000}}, nil
}

func (s *stubSolanaReader) AccountExists(_ context.Context, account solana.PublicKey) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.existing[account], nil
}

func (s *stubSolanaReader) GetTokenAccountBalance(_ context.Context, account solana.PublicKey) (uint64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.balances[account], nil
}

func (s *stubSolanaReader) GetSlot(context.Context) (uint64, error) {
	return s.slot, s.err
}
