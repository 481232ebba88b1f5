package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onepay.payagent/internal/domain/entities"
	domainerrors "onepay.payagent/internal/domain/errors"
	"onepay.payagent/internal/infrastructure/blockchain"
	"onepay.payagent/internal/infrastructure/wallet"
)

func TestChainRegistry(t *testing.T) {
	factory := blockchain.NewClientFactory()
	defer factory.Close()
	registry := NewChainRegistry(entities.DefaultChains(), factory, 0)

	chains := registry.Chains()
	require.Len(t, chains, 4)
	assert.Equal(t, entities.ChainEthereum, chains[0].ID)
	assert.Equal(t, entities.ChainSolana, chains[3].ID)

	_, err := registry.Resolve("polygon")
	assert.ErrorIs(t, err, domainerrors.ErrUnsupportedChain)
	_, err = registry.Chain("polygon")
	assert.ErrorIs(t, err, domainerrors.ErrUnsupportedChain)

	sol, err := registry.Resolve(entities.ChainSolana)
	require.NoError(t, err)
	assert.Equal(t, entities.ChainFamilySolana, sol.Family())
	again, err := registry.Resolve(entities.ChainSolana)
	require.NoError(t, err)
	assert.Same(t, sol, again)

	custom := NewEVMAdapter(entities.DefaultChains()[entities.ChainBSC], &MockEVMChainReader{}, 0)
	registry.Register(custom)
	got, err := registry.Resolve(entities.ChainBSC)
	require.NoError(t, err)
	assert.Same(t, custom, got)
}

func TestChainRegistry_NoFactory(t *testing.T) {
	registry := NewChainRegistry(entities.DefaultChains(), nil, 0)
	_, err := registry.Resolve(entities.ChainArbitrum)
	assert.ErrorIs(t, err, domainerrors.ErrChainAdapter)
}

func TestSolanaAdapter_SignTransfer_ExistingAccount(t *testing.T) {
	ctx := context.Background()
	payer := wallet.NewLocalSolanaWalletFromKey(solana.NewWallet().PrivateKey)
	sender, _ := payer.PublicKey(ctx)
	recipient := solana.NewWallet().PublicKey()
	mint := solana.MustPublicKeyFromBase58(DevnetUSDCMint)
	destATA, _, err := solana.FindAssociatedTokenAddress(recipient, mint)
	require.NoError(t, err)

	adapter := NewSolanaAdapter(entities.DefaultChains()[entities.ChainSolana], &stubSolanaReader{
		blockhash: solana.Hash{9},
		existing:  map[solana.PublicKey]bool{destATA: true},
	})
	encoded, err := adapter.SignTransfer(ctx, payer, SolanaTransfer{
		Mint: DevnetUSDCMint, Recipient: recipient.String(), Amount: 1500000, Decimals: 6,
	})
	require.NoError(t, err)

	var tx solana.Transaction
	require.NoError(t, tx.UnmarshalBase64(encoded))
	require.Len(t, tx.Message.Instructions, 1)
	assert.Equal(t, sender, tx.Message.AccountKeys[0])
	assert.Equal(t, solana.Hash{9}, tx.Message.RecentBlockhash)
	require.Len(t, tx.Signatures, 1)

	msg, err := tx.Message.MarshalBinary()
	require.NoError(t, err)
	assert.True(t, tx.Signatures[0].Verify(sender, msg))
}

func TestSolanaAdapter_SignTransfer_CreatesRecipientAccount(t *testing.T) {
	ctx := context.Background()
	payer := wallet.NewLocalSolanaWalletFromKey(solana.NewWallet().PrivateKey)
	sender, _ := payer.PublicKey(ctx)
	feePayer := solana.NewWallet().PublicKey()
	recipient := solana.NewWallet().PublicKey()

	adapter := NewSolanaAdapter(entities.DefaultChains()[entities.ChainSolana], &stubSolanaReader{
		blockhash: solana.Hash{3},
		existing:  map[solana.PublicKey]bool{},
	})
	encoded, err := adapter.SignTransfer(ctx, payer, SolanaTransfer{
		Mint: DevnetUSDCMint, Recipient: recipient.String(), Amount: 20000000, Decimals: 6, FeePayer: feePayer.String(),
	})
	require.NoError(t, err)

	var tx solana.Transaction
	require.NoError(t, tx.UnmarshalBase64(encoded))
	require.Len(t, tx.Message.Instructions, 2)
	createATA := tx.Message.Instructions[0]
	assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, tx.Message.AccountKeys[createATA.ProgramIDIndex])
	assert.Equal(t, []byte{1}, []byte(createATA.Data))
	assert.Equal(t, solana.TokenProgramID, tx.Message.AccountKeys[tx.Message.Instructions[1].ProgramIDIndex])
	assert.Equal(t, feePayer, tx.Message.AccountKeys[0])
	assert.Equal(t, sender, tx.Message.AccountKeys[1])

	require.Len(t, tx.Signatures, 2)
	assert.Equal(t, solana.Signature{}, tx.Signatures[0])
	msg, err := tx.Message.MarshalBinary()
	require.NoError(t, err)
	assert.True(t, tx.Signatures[1].Verify(sender, msg))

	_, err = tx.MarshalBinary()
	require.NoError(t, err)
}

func TestSolanaAdapter_Errors(t *testing.T) {
	ctx := context.Background()
	chain := entities.DefaultChains()[entities.ChainSolana]
	payer := wallet.NewLocalSolanaWalletFromKey(solana.NewWallet().PrivateKey)
	transfer := SolanaTransfer{Mint: DevnetUSDCMint, Recipient: solana.NewWallet().PublicKey().String(), Amount: 1, Decimals: 6}

	_, err := NewSolanaAdapter(chain, &stubSolanaReader{}).SignTransfer(ctx, nil, transfer)
	assert.ErrorIs(t, err, domainerrors.ErrWalletUnavailable)

	_, err = NewSolanaAdapter(chain, &stubSolanaReader{err: errors.New("rpc down")}).SignTransfer(ctx, payer, transfer)
	assert.ErrorIs(t, err, domainerrors.ErrChainAdapter)

	bad := transfer
	bad.Recipient = "not-base58!"
	_, err = NewSolanaAdapter(chain, &stubSolanaReader{}).SignTransfer(ctx, payer, bad)
	assert.ErrorIs(t, err, domainerrors.ErrChainAdapter)

	adapter := NewSolanaAdapter(chain, &stubSolanaReader{slot: 77})
	d, err := adapter.Decimals(ctx, DevnetUSDCMint)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), d)
	_, err = adapter.Decimals(ctx, solana.NewWallet().PublicKey().String())
	assert.ErrorIs(t, err, domainerrors.ErrChainAdapter)

	h, err := adapter.CurrentHeight(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(77), h)

	_, err = adapter.Balance(ctx, "bad owner", DevnetUSDCMint)
	assert.ErrorIs(t, err, domainerrors.ErrChainAdapter)
}
