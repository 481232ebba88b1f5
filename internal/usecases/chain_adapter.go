package usecases

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"onepay.payagent/internal/domain/entities"
	domainerrors "onepay.payagent/internal/domain/errors"
	"onepay.payagent/internal/infrastructure/blockchain"
)

// EVMWallet is the signing capability of a connected EVM wallet
type EVMWallet interface {
	Address(ctx context.Context) (common.Address, error)
	ChainID(ctx context.Context) (*big.Int, error)
	SignTypedData(ctx context.Context, typedData apitypes.TypedData) ([]byte, error)
	// SendTransaction signs and broadcasts a call, returning its hash
	SendTransaction(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error)
}

// ChainSwitcher is implemented by wallets that can change their selected network
type ChainSwitcher interface {
	// SwitchChain returns domainerrors.ErrUnrecognizedChain when the wallet does not know the chain
	SwitchChain(ctx context.Context, chainID *big.Int) error
	AddChain(ctx context.Context, chain *entities.ChainConfig) error
}

// SolanaWallet is the signing capability of a connected Solana wallet
type SolanaWallet interface {
	PublicKey(ctx context.Context) (solana.PublicKey, error)
	// SignTransaction adds the wallet's signature in place
	SignTransaction(ctx context.Context, tx *solana.Transaction) error
}

// WalletContext carries the wallets the host application discovered
type WalletContext struct {
	EVM    EVMWallet
	Solana SolanaWallet
}

// ChainAdapter is the chain-family specific half of a payment
type ChainAdapter interface {
	Chain() *entities.ChainConfig
	Family() entities.ChainFamily
	// Balance returns owner's balance of asset in base units
	Balance(ctx context.Context, owner, asset string) (*big.Int, error)
	Decimals(ctx context.Context, asset string) (uint8, error)
	// CurrentHeight is the block number or slot used to scope settlement searches
	CurrentHeight(ctx context.Context) (uint64, error)
}

// EVMPaymentAdapter signs EIP-3009 authorizations and ERC-20 transfers
type EVMPaymentAdapter interface {
	ChainAdapter
	EnsureNetwork(ctx context.Context, wallet EVMWallet) error
	SignAuthorization(ctx context.Context, wallet EVMWallet, params AuthorizationParams) (*entities.ExactEVMPayload, error)
	Transfer(ctx context.Context, wallet EVMWallet, asset, to string, value *big.Int) (string, error)
}

// SolanaPaymentAdapter builds partially signed SPL transfers
type SolanaPaymentAdapter interface {
	ChainAdapter
	SignTransfer(ctx context.Context, wallet SolanaWallet, transfer SolanaTransfer) (string, error)
}

// EVMChainReader is the RPC read surface the EVM adapter needs
type EVMChainReader interface {
	GetTokenBalance(ctx context.Context, tokenAddress, ownerAddress string) (*big.Int, error)
	GetTokenDecimals(ctx context.Context, tokenAddress string) (uint8, error)
	GetBlockNumber(ctx context.Context) (uint64, error)
}

// SolanaChainReader is the RPC read surface the Solana adapter needs
type SolanaChainReader interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	AccountExists(ctx context.Context, account solana.PublicKey) (bool, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
	GetSlot(ctx context.Context) (uint64, error)
}

// ChainRegistry maps chain ids to adapters, creating RPC-backed adapters on first use
type ChainRegistry struct {
	mu         sync.Mutex
	chains     map[entities.ChainID]*entities.ChainConfig
	adapters   map[entities.ChainID]ChainAdapter
	factory    *blockchain.ClientFactory
	maxTimeout int
}

func NewChainRegistry(chains map[entities.ChainID]*entities.ChainConfig, factory *blockchain.ClientFactory, maxTimeoutSeconds int) *ChainRegistry {
	return &ChainRegistry{
		chains:     chains,
		adapters:   make(map[entities.ChainID]ChainAdapter),
		factory:    factory,
		maxTimeout: maxTimeoutSeconds,
	}
}

// Register installs an adapter for its chain, replacing any cached one
func (r *ChainRegistry) Register(adapter ChainAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chain := adapter.Chain()
	r.chains[chain.ID] = chain
	r.adapters[chain.ID] = adapter
}

// Chain returns the configuration of a supported chain
func (r *ChainRegistry) Chain(id entities.ChainID) (*entities.ChainConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chain, ok := r.chains[id]
	if !ok {
		return nil, domainerrors.UnsupportedChain(string(id))
	}
	return chain, nil
}

// Chains lists every configured chain
func (r *ChainRegistry) Chains() []*entities.ChainConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entities.ChainConfig, 0, len(r.chains))
	for _, id := range entities.AllChainIDs() {
		if c, ok := r.chains[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Resolve returns the adapter for a chain
func (r *ChainRegistry) Resolve(id entities.ChainID) (ChainAdapter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if adapter, ok := r.adapters[id]; ok {
		return adapter, nil
	}
	chain, ok := r.chains[id]
	if !ok {
		return nil, domainerrors.UnsupportedChain(string(id))
	}
	if r.factory == nil {
		return nil, domainerrors.ChainAdapterError(fmt.Errorf("no rpc client for %s", id))
	}

	var adapter ChainAdapter
	switch chain.Family {
	case entities.ChainFamilyEVM:
		client, err := r.factory.GetEVMClient(chain.RPCURL)
		if err != nil {
			return nil, domainerrors.ChainAdapterError(err)
		}
		adapter = NewEVMAdapter(chain, client, r.maxTimeout)
	case entities.ChainFamilySolana:
		adapter = NewSolanaAdapter(chain, r.factory.GetSolanaClient(chain.RPCURL))
	default:
		return nil, domainerrors.UnsupportedChain(string(id))
	}
	r.adapters[id] = adapter
	return adapter, nil
}
