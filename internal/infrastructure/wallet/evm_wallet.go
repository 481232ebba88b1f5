package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"onepay.payagent/internal/domain/entities"
	domainerrors "onepay.payagent/internal/domain/errors"
)

// EVMChainClient is the RPC surface the local wallet needs to broadcast
type EVMChainClient interface {
	ChainID() *big.Int
	PendingNonceAt(ctx context.Context, address common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// EVMDialer returns a client for an RPC endpoint
type EVMDialer func(rpcURL string) (EVMChainClient, error)

// LocalEVMWallet signs with a private key held in process memory.
// It tracks a selected network the way an injected browser wallet does.
type LocalEVMWallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
	dial    EVMDialer

	mu     sync.RWMutex
	known  map[int64]string
	client EVMChainClient
}

// NewLocalEVMWallet parses a hex private key (with or without 0x)
func NewLocalEVMWallet(hexKey string, dial EVMDialer) (*LocalEVMWallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid evm private key: %w", err)
	}
	return &LocalEVMWallet{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		dial:    dial,
		known:   make(map[int64]string),
	}, nil
}

// Address returns the account address
func (w *LocalEVMWallet) Address(_ context.Context) (common.Address, error) {
	return w.address, nil
}

// ChainID returns the chain id of the selected network
func (w *LocalEVMWallet) ChainID(_ context.Context) (*big.Int, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.client == nil {
		return nil, domainerrors.WalletUnavailable(fmt.Errorf("no network selected"))
	}
	return w.client.ChainID(), nil
}

// AddChain makes a chain selectable
func (w *LocalEVMWallet) AddChain(_ context.Context, chain *entities.ChainConfig) error {
	if chain == nil || chain.RPCURL == "" {
		return fmt.Errorf("chain has no rpc url")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.known[chain.EVMChainID] = chain.RPCURL
	return nil
}

// SwitchChain selects a previously added chain
func (w *LocalEVMWallet) SwitchChain(_ context.Context, chainID *big.Int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	rpcURL, ok := w.known[chainID.Int64()]
	if !ok {
		return domainerrors.ErrUnrecognizedChain
	}
	client, err := w.dial(rpcURL)
	if err != nil {
		return fmt.Errorf("connect %s: %w", rpcURL, err)
	}
	w.client = client
	return nil
}

// SignTypedData signs EIP-712 typed data and returns a 65 byte signature with v in {27,28}
func (w *LocalEVMWallet) SignTypedData(_ context.Context, typedData apitypes.TypedData) ([]byte, error) {
	digest, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("hash typed data: %w", err)
	}
	sig, err := crypto.Sign(digest, w.key)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}

// SendTransaction signs a legacy transaction for the selected network and broadcasts it
func (w *LocalEVMWallet) SendTransaction(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error) {
	w.mu.RLock()
	client := w.client
	w.mu.RUnlock()
	if client == nil {
		return common.Hash{}, domainerrors.WalletUnavailable(fmt.Errorf("no network selected"))
	}
	if value == nil {
		value = big.NewInt(0)
	}

	nonce, err := client.PendingNonceAt(ctx, w.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get nonce: %w", err)
	}
	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get gas price: %w", err)
	}
	gas, err := client.EstimateGas(ctx, ethereum.CallMsg{From: w.address, To: &to, Data: data, Value: value})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(client.ChainID()), w.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}
	if err := client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("broadcast transaction: %w", err)
	}
	return signed.Hash(), nil
}
