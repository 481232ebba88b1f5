package usecases

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"go.uber.org/zap"

	"onepay.payagent/internal/domain/entities"
	domainerrors "onepay.payagent/internal/domain/errors"
	"onepay.payagent/pkg/logger"
)

const (
	// validAfterSkew backdates authorizations to tolerate clock drift between payer and verifier
	validAfterSkew           = 600
	defaultMaxTimeoutSeconds = 3600

	defaultTokenName    = "USD Coin"
	defaultTokenVersion = "2"
)

var transferSelector = common.Hex2Bytes("a9059cbb")

// AuthorizationParams describes one EIP-3009 TransferWithAuthorization
type AuthorizationParams struct {
	Asset             string
	To                string
	Value             *big.Int
	TokenName         string
	TokenVersion      string
	MaxTimeoutSeconds int
}

// EVMAdapter implements payments on EVM chains
type EVMAdapter struct {
	chain      *entities.ChainConfig
	client     EVMChainReader
	maxTimeout int

	now       func() time.Time
	readNonce func([]byte) (int, error)
}

func NewEVMAdapter(chain *entities.ChainConfig, client EVMChainReader, maxTimeoutSeconds int) *EVMAdapter {
	if maxTimeoutSeconds <= 0 {
		maxTimeoutSeconds = defaultMaxTimeoutSeconds
	}
	return &EVMAdapter{
		chain:      chain,
		client:     client,
		maxTimeout: maxTimeoutSeconds,
		now:        time.Now,
		readNonce:  rand.Read,
	}
}

func (a *EVMAdapter) Chain() *entities.ChainConfig { return a.chain }

func (a *EVMAdapter) Family() entities.ChainFamily { return entities.ChainFamilyEVM }

func (a *EVMAdapter) Balance(ctx context.Context, owner, asset string) (*big.Int, error) {
	bal, err := a.client.GetTokenBalance(ctx, asset, owner)
	if err != nil {
		return nil, domainerrors.ChainAdapterError(fmt.Errorf("read balance: %w", err))
	}
	return bal, nil
}

func (a *EVMAdapter) Decimals(ctx context.Context, asset string) (uint8, error) {
	d, err := a.client.GetTokenDecimals(ctx, asset)
	if err != nil {
		return 0, domainerrors.ChainAdapterError(fmt.Errorf("read decimals: %w", err))
	}
	return d, nil
}

func (a *EVMAdapter) CurrentHeight(ctx context.Context) (uint64, error) {
	n, err := a.client.GetBlockNumber(ctx)
	if err != nil {
		return 0, domainerrors.ChainAdapterError(fmt.Errorf("read block number: %w", err))
	}
	return n, nil
}

// walletAccount returns the wallet address after checking it is on this chain
func (a *EVMAdapter) walletAccount(ctx context.Context, wallet EVMWallet) (common.Address, error) {
	if wallet == nil {
		return common.Address{}, domainerrors.WalletUnavailable(nil)
	}
	from, err := wallet.Address(ctx)
	if err != nil {
		return common.Address{}, domainerrors.WalletUnavailable(err)
	}
	got, err := wallet.ChainID(ctx)
	if err != nil {
		return common.Address{}, domainerrors.WalletUnavailable(err)
	}
	if got.Cmp(a.chain.BigChainID()) != 0 {
		return common.Address{}, domainerrors.WrongNetwork(a.chain.Name, "chain "+got.String())
	}
	return from, nil
}

// EnsureNetwork asks a switch-capable wallet to select this chain, adding it when unknown
func (a *EVMAdapter) EnsureNetwork(ctx context.Context, wallet EVMWallet) error {
	if wallet == nil {
		return domainerrors.WalletUnavailable(nil)
	}
	current, err := wallet.ChainID(ctx)
	if err == nil && current.Cmp(a.chain.BigChainID()) == 0 {
		return nil
	}
	switcher, ok := wallet.(ChainSwitcher)
	if !ok {
		return nil
	}

	logger.Info(ctx, "Switching wallet network", zap.String("chain", string(a.chain.ID)), zap.String("chainId", a.chain.HexChainID()))
	err = switcher.SwitchChain(ctx, a.chain.BigChainID())
	if errors.Is(err, domainerrors.ErrUnrecognizedChain) {
		if err := switcher.AddChain(ctx, a.chain); err != nil {
			return domainerrors.ChainAdapterError(fmt.Errorf("add chain %s: %w", a.chain.Name, err))
		}
		err = switcher.SwitchChain(ctx, a.chain.BigChainID())
	}
	if err != nil {
		return domainerrors.ChainAdapterError(fmt.Errorf("switch to %s: %w", a.chain.Name, err))
	}
	return nil
}

// SignAuthorization asks the wallet to sign an EIP-3009 TransferWithAuthorization
func (a *EVMAdapter) SignAuthorization(ctx context.Context, wallet EVMWallet, p AuthorizationParams) (*entities.ExactEVMPayload, error) {
	from, err := a.walletAccount(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if p.Value == nil || p.Value.Sign() <= 0 {
		return nil, domainerrors.InvalidAmount("authorization value must be positive")
	}

	var nonce [32]byte
	if _, err := a.readNonce(nonce[:]); err != nil {
		return nil, domainerrors.ChainAdapterError(fmt.Errorf("generate nonce: %w", err))
	}

	timeout := p.MaxTimeoutSeconds
	if timeout <= 0 {
		timeout = a.maxTimeout
	}
	now := a.now().Unix()
	auth := entities.TransferAuthorization{
		From:        from.Hex(),
		To:          common.HexToAddress(p.To).Hex(),
		Value:       p.Value.String(),
		ValidAfter:  big.NewInt(now - validAfterSkew).String(),
		ValidBefore: big.NewInt(now + int64(timeout)).String(),
		Nonce:       common.BytesToHash(nonce[:]).Hex(),
	}

	name := p.TokenName
	if name == "" {
		name = defaultTokenName
	}
	version := p.TokenVersion
	if version == "" {
		version = defaultTokenVersion
	}

	typedData, err := transferWithAuthorizationTypedData(a.chain.BigChainID(), common.HexToAddress(p.Asset), name, version, auth)
	if err != nil {
		return nil, domainerrors.ChainAdapterError(err)
	}
	sig, err := wallet.SignTypedData(ctx, typedData)
	if err != nil {
		return nil, domainerrors.ChainAdapterError(fmt.Errorf("sign authorization: %w", err))
	}

	return &entities.ExactEVMPayload{
		Signature:     "0x" + hex.EncodeToString(sig),
		Authorization: auth,
	}, nil
}

// Transfer sends an ERC-20 transfer(to, value) from the wallet and returns the tx hash
func (a *EVMAdapter) Transfer(ctx context.Context, wallet EVMWallet, asset, to string, value *big.Int) (string, error) {
	from, err := a.walletAccount(ctx, wallet)
	if err != nil {
		return "", err
	}
	if !common.IsHexAddress(to) {
		return "", domainerrors.ChainAdapterError(fmt.Errorf("invalid recipient %q", to))
	}

	bal, err := a.Balance(ctx, from.Hex(), asset)
	if err != nil {
		return "", err
	}
	if bal.Cmp(value) < 0 {
		return "", domainerrors.InsufficientFunds(bal.String(), value.String())
	}

	hash, err := wallet.SendTransaction(ctx, common.HexToAddress(asset), encodeTransfer(common.HexToAddress(to), value), big.NewInt(0))
	if err != nil {
		if reason, ok := decodeRevertReason(err); ok {
			return "", domainerrors.ChainAdapterError(fmt.Errorf("transfer reverted: %s: %w", reason.Message, err))
		}
		return "", domainerrors.ChainAdapterError(fmt.Errorf("send transfer: %w", err))
	}
	return hash.Hex(), nil
}

func encodeTransfer(to common.Address, value *big.Int) []byte {
	data := append([]byte{}, transferSelector...)
	data = append(data, common.LeftPadBytes(to.Bytes(), 32)...)
	return append(data, common.LeftPadBytes(value.Bytes(), 32)...)
}

func transferWithAuthorizationTypedData(chainID *big.Int, token common.Address, name, version string, auth entities.TransferAuthorization) (apitypes.TypedData, error) {
	value, ok := new(big.Int).SetString(auth.Value, 10)
	if !ok {
		return apitypes.TypedData{}, fmt.Errorf("invalid value %q", auth.Value)
	}
	validAfter, _ := new(big.Int).SetString(auth.ValidAfter, 10)
	validBefore, _ := new(big.Int).SetString(auth.ValidBefore, 10)

	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"TransferWithAuthorization": []apitypes.Type{
				{Name: "from", Type: "address"},
				{Name: "to", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "validAfter", Type: "uint256"},
				{Name: "validBefore", Type: "uint256"},
				{Name: "nonce", Type: "bytes32"},
			},
		},
		PrimaryType: "TransferWithAuthorization",
		Domain: apitypes.TypedDataDomain{
			Name:              name,
			Version:           version,
			ChainId:           (*math.HexOrDecimal256)(chainID),
			VerifyingContract: token.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"from":        auth.From,
			"to":          auth.To,
			"value":       (*math.HexOrDecimal256)(value),
			"validAfter":  (*math.HexOrDecimal256)(validAfter),
			"validBefore": (*math.HexOrDecimal256)(validBefore),
			"nonce":       auth.Nonce,
		},
	}, nil
}
