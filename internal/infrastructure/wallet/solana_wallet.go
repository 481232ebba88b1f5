package wallet

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// LocalSolanaWallet signs Solana transactions with an in-memory keypair
type LocalSolanaWallet struct {
	key solana.PrivateKey
}

// NewLocalSolanaWallet parses a base58 encoded 64 byte keypair
func NewLocalSolanaWallet(base58Key string) (*LocalSolanaWallet, error) {
	key, err := solana.PrivateKeyFromBase58(strings.TrimSpace(base58Key))
	if err != nil {
		return nil, fmt.Errorf("invalid solana private key: %w", err)
	}
	return &LocalSolanaWallet{key: key}, nil
}

// NewLocalSolanaWalletFromKey wraps an existing keypair
func NewLocalSolanaWalletFromKey(key solana.PrivateKey) *LocalSolanaWallet {
	return &LocalSolanaWallet{key: key}
}

// PublicKey returns the wallet address
func (w *LocalSolanaWallet) PublicKey(_ context.Context) (solana.PublicKey, error) {
	return w.key.PublicKey(), nil
}

// SignTransaction adds this wallet's signature, leaving other signers' slots empty
func (w *LocalSolanaWallet) SignTransaction(_ context.Context, tx *solana.Transaction) error {
	pub := w.key.PublicKey()
	_, err := tx.PartialSign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(pub) {
			return &w.key
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sign transaction: %w", err)
	}
	return nil
}
