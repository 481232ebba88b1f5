package entities

import (
	"fmt"
	"math/big"
	"strings"
)

// ChainID identifies one of the supported settlement chains
type ChainID string

const (
	ChainEthereum ChainID = "ethereum"
	ChainBSC      ChainID = "bsc"
	ChainArbitrum ChainID = "arbitrum"
	ChainSolana   ChainID = "solana"
)

// AllChainIDs lists the supported chains in display order
func AllChainIDs() []ChainID {
	return []ChainID{ChainEthereum, ChainBSC, ChainArbitrum, ChainSolana}
}

// ChainFamily represents the signing family of a chain
type ChainFamily string

const (
	ChainFamilyEVM    ChainFamily = "EVM"
	ChainFamilySolana ChainFamily = "SVM"
)

// AssetSymbol is a token ticker accepted for payment
type AssetSymbol string

const (
	AssetUSDC AssetSymbol = "USDC"
	AssetUSDT AssetSymbol = "USDT"
)

// NativeCurrency describes the gas token of a chain
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// TokenInfo is a token deployment on a chain
type TokenInfo struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
}

// ChainConfig carries everything needed to talk to a chain
type ChainConfig struct {
	ID             ChainID                   `json:"id"`
	Name           string                    `json:"name"`
	Family         ChainFamily               `json:"family"`
	EVMChainID     int64                     `json:"evmChainId,omitempty"`
	Network        string                    `json:"network"`
	RPCURL         string                    `json:"rpcUrl"`
	ExplorerURL    string                    `json:"explorerUrl"`
	NativeCurrency NativeCurrency            `json:"nativeCurrency"`
	Tokens         map[AssetSymbol]TokenInfo `json:"tokens"`
}

// IsEVM reports whether the chain signs with secp256k1 EVM accounts
func (c *ChainConfig) IsEVM() bool {
	return c.Family == ChainFamilyEVM
}

// BigChainID returns the EIP-155 chain id
func (c *ChainConfig) BigChainID() *big.Int {
	return big.NewInt(c.EVMChainID)
}

// HexChainID returns the chain id in the 0x form wallets expect
func (c *ChainConfig) HexChainID() string {
	return fmt.Sprintf("0x%x", c.EVMChainID)
}

// Token looks up the deployment of an asset on this chain
func (c *ChainConfig) Token(symbol AssetSymbol) (TokenInfo, bool) {
	t, ok := c.Tokens[AssetSymbol(strings.ToUpper(string(symbol)))]
	return t, ok
}

// TxURL returns the explorer link for a transaction
func (c *ChainConfig) TxURL(hash string) string {
	if c.Family == ChainFamilySolana {
		return strings.TrimRight(c.ExplorerURL, "/") + "/tx/" + hash + "?cluster=devnet"
	}
	return strings.TrimRight(c.ExplorerURL, "/") + "/tx/" + hash
}

// ParseChainID validates a user supplied chain name
func ParseChainID(s string) (ChainID, error) {
	switch id := ChainID(strings.ToLower(strings.TrimSpace(s))); id {
	case ChainEthereum, ChainBSC, ChainArbitrum, ChainSolana:
		return id, nil
	default:
		return "", fmt.Errorf("unknown chain %q", s)
	}
}

// DefaultChains returns the built-in chain table. RPC URLs can be overridden from config.
func DefaultChains() map[ChainID]*ChainConfig {
	return map[ChainID]*ChainConfig{
		ChainEthereum: {
			ID:             ChainEthereum,
			Name:           "Ethereum Mainnet",
			Family:         ChainFamilyEVM,
			EVMChainID:     1,
			Network:        "ethereum",
			RPCURL:         "https://cloudflare-eth.com",
			ExplorerURL:    "https://etherscan.io",
			NativeCurrency: NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18},
			Tokens: map[AssetSymbol]TokenInfo{
				AssetUSDC: {Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Decimals: 6},
				AssetUSDT: {Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7", Decimals: 6},
			},
		},
		ChainBSC: {
			ID:             ChainBSC,
			Name:           "BNB Smart Chain",
			Family:         ChainFamilyEVM,
			EVMChainID:     56,
			Network:        "bsc",
			RPCURL:         "https://bsc-dataseed1.binance.org",
			ExplorerURL:    "https://bscscan.com",
			NativeCurrency: NativeCurrency{Name: "BNB", Symbol: "BNB", Decimals: 18},
			Tokens: map[AssetSymbol]TokenInfo{
				AssetUSDT: {Address: "0x55d398326f99059fF775485246999027B3197955", Decimals: 18},
				AssetUSDC: {Address: "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d", Decimals: 18},
			},
		},
		ChainArbitrum: {
			ID:             ChainArbitrum,
			Name:           "Arbitrum One",
			Family:         ChainFamilyEVM,
			EVMChainID:     42161,
			Network:        "arbitrum",
			RPCURL:         "https://arb1.arbitrum.io/rpc",
			ExplorerURL:    "https://arbiscan.io",
			NativeCurrency: NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18},
			Tokens: map[AssetSymbol]TokenInfo{
				AssetUSDC: {Address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", Decimals: 6},
				AssetUSDT: {Address: "0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9", Decimals: 6},
			},
		},
		ChainSolana: {
			ID:             ChainSolana,
			Name:           "Solana Devnet",
			Family:         ChainFamilySolana,
			Network:        "solana-devnet",
			RPCURL:         "https://api.devnet.solana.com",
			ExplorerURL:    "https://explorer.solana.com",
			NativeCurrency: NativeCurrency{Name: "Solana", Symbol: "SOL", Decimals: 9},
			Tokens: map[AssetSymbol]TokenInfo{
				AssetUSDC: {Address: "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU", Decimals: 6},
			},
		},
	}
}
