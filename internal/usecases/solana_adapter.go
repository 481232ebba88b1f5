package usecases

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	"onepay.payagent/internal/domain/entities"
	domainerrors "onepay.payagent/internal/domain/errors"
)

// SolanaTransfer describes one SPL transferChecked
type SolanaTransfer struct {
	Mint      string
	Recipient string
	Amount    uint64
	Decimals  uint8
	// FeePayer co-signs later; the sender pays fees when empty
	FeePayer string
}

// SolanaAdapter implements payments on Solana
type SolanaAdapter struct {
	chain  *entities.ChainConfig
	client SolanaChainReader
}

func NewSolanaAdapter(chain *entities.ChainConfig, client SolanaChainReader) *SolanaAdapter {
	return &SolanaAdapter{chain: chain, client: client}
}

func (a *SolanaAdapter) Chain() *entities.ChainConfig { return a.chain }

func (a *SolanaAdapter) Family() entities.ChainFamily { return entities.ChainFamilySolana }

func (a *SolanaAdapter) Balance(ctx context.Context, owner, asset string) (*big.Int, error) {
	ownerKey, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return nil, domainerrors.ChainAdapterError(fmt.Errorf("invalid owner %q: %w", owner, err))
	}
	mint, err := solana.PublicKeyFromBase58(asset)
	if err != nil {
		return nil, domainerrors.ChainAdapterError(fmt.Errorf("invalid mint %q: %w", asset, err))
	}
	ata, _, err := solana.FindAssociatedTokenAddress(ownerKey, mint)
	if err != nil {
		return nil, domainerrors.ChainAdapterError(fmt.Errorf("derive token account: %w", err))
	}
	amount, err := a.client.GetTokenAccountBalance(ctx, ata)
	if err != nil {
		return nil, domainerrors.ChainAdapterError(fmt.Errorf("read balance: %w", err))
	}
	return new(big.Int).SetUint64(amount), nil
}

// Decimals reads the declared precision of a mint from the chain's token table
func (a *SolanaAdapter) Decimals(_ context.Context, asset string) (uint8, error) {
	for _, t := range a.chain.Tokens {
		if strings.EqualFold(t.Address, asset) {
			return t.Decimals, nil
		}
	}
	return 0, domainerrors.ChainAdapterError(fmt.Errorf("unknown mint %s on %s", asset, a.chain.Name))
}

func (a *SolanaAdapter) CurrentHeight(ctx context.Context) (uint64, error) {
	slot, err := a.client.GetSlot(ctx)
	if err != nil {
		return 0, domainerrors.ChainAdapterError(fmt.Errorf("read slot: %w", err))
	}
	return slot, nil
}

// SignTransfer builds an SPL transferChecked, creating the recipient's token account first
// when it does not exist, and returns the wallet-signed transaction as base64.
// Other signatures (the fee payer's) are left empty.
func (a *SolanaAdapter) SignTransfer(ctx context.Context, wallet SolanaWallet, t SolanaTransfer) (string, error) {
	if wallet == nil {
		return "", domainerrors.WalletUnavailable(nil)
	}
	sender, err := wallet.PublicKey(ctx)
	if err != nil {
		return "", domainerrors.WalletUnavailable(err)
	}

	mint, err := solana.PublicKeyFromBase58(t.Mint)
	if err != nil {
		return "", domainerrors.ChainAdapterError(fmt.Errorf("invalid mint %q: %w", t.Mint, err))
	}
	recipient, err := solana.PublicKeyFromBase58(t.Recipient)
	if err != nil {
		return "", domainerrors.ChainAdapterError(fmt.Errorf("invalid recipient %q: %w", t.Recipient, err))
	}
	feePayer := sender
	if t.FeePayer != "" {
		feePayer, err = solana.PublicKeyFromBase58(t.FeePayer)
		if err != nil {
			return "", domainerrors.ChainAdapterError(fmt.Errorf("invalid fee payer %q: %w", t.FeePayer, err))
		}
	}

	sourceATA, _, err := solana.FindAssociatedTokenAddress(sender, mint)
	if err != nil {
		return "", domainerrors.ChainAdapterError(fmt.Errorf("derive source token account: %w", err))
	}
	destATA, _, err := solana.FindAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return "", domainerrors.ChainAdapterError(fmt.Errorf("derive destination token account: %w", err))
	}

	exists, err := a.client.AccountExists(ctx, destATA)
	if err != nil {
		return "", domainerrors.ChainAdapterError(fmt.Errorf("look up destination token account: %w", err))
	}

	var instructions []solana.Instruction
	if !exists {
		instructions = append(instructions, createAssociatedTokenAccountInstruction(sender, destATA, recipient, mint))
	}
	instructions = append(instructions, token.NewTransferCheckedInstructionBuilder().
		SetAmount(t.Amount).
		SetDecimals(t.Decimals).
		SetSourceAccount(sourceATA).
		SetMintAccount(mint).
		SetDestinationAccount(destATA).
		SetOwnerAccount(sender).
		Build())

	latest, err := a.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", domainerrors.ChainAdapterError(fmt.Errorf("get latest blockhash: %w", err))
	}

	tx, err := solana.NewTransaction(instructions, latest.Value.Blockhash, solana.TransactionPayer(feePayer))
	if err != nil {
		return "", domainerrors.ChainAdapterError(fmt.Errorf("build transaction: %w", err))
	}
	if err := wallet.SignTransaction(ctx, tx); err != nil {
		return "", domainerrors.ChainAdapterError(fmt.Errorf("sign transaction: %w", err))
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", domainerrors.ChainAdapterError(fmt.Errorf("serialize transaction: %w", err))
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// createAssociatedTokenAccountInstruction is the associated token program's CreateIdempotent instruction
func createAssociatedTokenAccountInstruction(payer, ata, owner, mint solana.PublicKey) solana.Instruction {
	accounts := solana.AccountMetaSlice{
		{PublicKey: payer, IsSigner: true, IsWritable: true},
		{PublicKey: ata, IsSigner: false, IsWritable: true},
		{PublicKey: owner, IsSigner: false, IsWritable: false},
		{PublicKey: mint, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
	}
	return solana.NewInstruction(solana.SPLAssociatedTokenAccountProgramID, accounts, []byte{1})
}
