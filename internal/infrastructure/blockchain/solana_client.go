package blockchain

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// SolanaClient provides the Solana RPC reads the payment flow needs
type SolanaClient struct {
	client *rpc.Client
	rpcURL string
}

// NewSolanaClient creates a new Solana RPC client
func NewSolanaClient(rpcURL string) *SolanaClient {
	return &SolanaClient{
		client: rpc.New(rpcURL),
		rpcURL: rpcURL,
	}
}

// RPCURL returns the endpoint the client talks to
func (c *SolanaClient) RPCURL() string {
	return c.rpcURL
}

// GetLatestBlockhash fetches a recent blockhash for transaction building
func (c *SolanaClient) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	return c.client.GetLatestBlockhash(ctx, commitment)
}

// AccountExists reports whether an account has been created on chain
func (c *SolanaClient) AccountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	_, err := c.client.GetAccountInfo(ctx, account)
	if errors.Is(err, rpc.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetTokenAccountBalance returns the raw amount held by an SPL token account.
// A missing account has a zero balance.
func (c *SolanaClient) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	out, err := c.client.GetTokenAccountBalance(ctx, account, rpc.CommitmentConfirmed)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if out == nil || out.Value == nil {
		return 0, nil
	}
	amount, err := strconv.ParseUint(out.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid token amount %q: %w", out.Value.Amount, err)
	}
	return amount, nil
}

// GetSlot returns the current confirmed slot
func (c *SolanaClient) GetSlot(ctx context.Context) (uint64, error) {
	return c.client.GetSlot(ctx, rpc.CommitmentConfirmed)
}

// Close releases the underlying transport
func (c *SolanaClient) Close() {
	if c.client != nil {
		_ = c.client.Close()
	}
}
