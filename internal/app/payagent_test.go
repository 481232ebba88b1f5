package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gagliardetto/solana-go"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"onepay.payagent/internal/config"
	"onepay.payagent/internal/domain/entities"
	"onepay.payagent/pkg/redis"
)

const testEVMKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func withHooks(t *testing.T) {
	t.Helper()
	origRedis, origOpen, origMigrate := initRedis, openDB, migrateDB
	t.Cleanup(func() {
		initRedis, openDB, migrateDB = origRedis, origOpen, origMigrate
	})
	initRedis = func(string, string) error { return errors.New("redis down") }
}

func useMiniredis(t *testing.T) {
	t.Helper()
	mr := miniredis.RunT(t)
	initRedis = func(string, string) error {
		redis.SetClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
		return nil
	}
}

func testConfig(backend string) *config.Config {
	return &config.Config{
		Backend:     config.BackendConfig{BaseURL: "http://backend.local", Timeout: time.Second},
		Facilitator: config.FacilitatorConfig{URL: "http://facilitator.local", CacheTTL: time.Minute},
		FHE:         config.FHEConfig{URL: "http://fhe.local", Timeout: time.Second},
		Settlement:  config.SettlementConfig{PollMaxAttempts: 3, PollInterval: time.Millisecond, MaxTimeoutSeconds: 3600},
		TxLog:       config.TxLogConfig{Backend: backend, RedisKey: "x402_fhe_transactions"},
	}
}

func addRecord(t *testing.T, a *PayAgent) {
	t.Helper()
	_, err := a.History.Add(context.Background(), &entities.TransactionRecord{
		Hash: "0xabc",
		Type: entities.TransactionTypePayment,
	})
	require.NoError(t, err)
	rec, err := a.History.GetByHash(context.Background(), "0xabc")
	require.NoError(t, err)
	require.Equal(t, entities.TransactionStatusPending, rec.Status)
}

func TestNew_MemoryBackendWithoutRedis(t *testing.T) {
	withHooks(t)

	cfg := testConfig("")
	cfg.Wallet.EVMPrivateKey = testEVMKey
	cfg.Wallet.SolanaPrivateKey = solana.NewWallet().PrivateKey.String()

	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Orchestrator)
	require.NotNil(t, a.Reconciler)
	require.NotNil(t, a.Encryptor)
	require.NotNil(t, a.Wallets.EVM)
	require.NotNil(t, a.Wallets.Solana)
	require.Len(t, a.Chains.Chains(), 4)
	addRecord(t, a)
}

func TestNew_RedisBackend(t *testing.T) {
	withHooks(t)
	useMiniredis(t)

	a, err := New(testConfig(TxLogRedis))
	require.NoError(t, err)
	defer a.Close()

	require.Nil(t, a.Wallets.EVM)
	addRecord(t, a)
	raw, err := redis.Get(context.Background(), "x402_fhe_transactions")
	require.NoError(t, err)
	require.Contains(t, raw, "0xabc")
}

func TestNew_RedisBackendRequiresRedis(t *testing.T) {
	withHooks(t)

	_, err := New(testConfig(TxLogRedis))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to initialize redis")
}

func TestNew_PostgresBackend(t *testing.T) {
	withHooks(t)

	var migrated bool
	openDB = func(config.DatabaseConfig) (*gorm.DB, error) {
		dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
		return gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	}
	orig := migrateDB
	migrateDB = func(db *gorm.DB) error {
		migrated = true
		return orig(db)
	}

	a, err := New(testConfig(TxLogPostgres))
	require.NoError(t, err)
	defer a.Close()
	require.True(t, migrated)
	addRecord(t, a)
}

func TestNew_Errors(t *testing.T) {
	withHooks(t)

	_, err := New(testConfig("mongo"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown transaction log backend")

	openDB = func(config.DatabaseConfig) (*gorm.DB, error) { return nil, errors.New("failed to ping database") }
	_, err = New(testConfig(TxLogPostgres))
	require.Error(t, err)

	cfg := testConfig(TxLogMemory)
	cfg.Wallet.EVMPrivateKey = "not-hex"
	_, err = New(cfg)
	require.Error(t, err)

	cfg = testConfig(TxLogMemory)
	cfg.Wallet.SolanaPrivateKey = "0OIl"
	_, err = New(cfg)
	require.Error(t, err)
}
