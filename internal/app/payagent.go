package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"onepay.payagent/internal/config"
	"onepay.payagent/internal/domain/repositories"
	"onepay.payagent/internal/infrastructure/blockchain"
	"onepay.payagent/internal/infrastructure/datasources/postgres"
	"onepay.payagent/internal/infrastructure/fhe"
	infrarepos "onepay.payagent/internal/infrastructure/repositories"
	"onepay.payagent/internal/infrastructure/wallet"
	"onepay.payagent/internal/usecases"
	"onepay.payagent/pkg/logger"
	"onepay.payagent/pkg/redis"
)

// Transaction log backends
const (
	TxLogMemory   = "memory"
	TxLogRedis    = "redis"
	TxLogPostgres = "postgres"
)

var (
	initRedis = redis.Init
	openDB    = postgres.NewConnection
	migrateDB = postgres.Migrate
)

// PayAgent holds the wired payment stack shared by the CLI and the server
type PayAgent struct {
	Orchestrator *usecases.PaymentOrchestrator
	History      *usecases.TransactionLog
	Chains       *usecases.ChainRegistry
	Encryptor    *fhe.Client
	Reconciler   *usecases.TransactionReconciler
	Wallets      usecases.WalletContext

	factory *blockchain.ClientFactory
	closers []func() error
}

// New builds the payment stack from configuration
func New(cfg *config.Config) (*PayAgent, error) {
	ctx := context.Background()
	a := &PayAgent{factory: blockchain.NewClientFactory()}

	wallets, err := a.loadWallets(cfg.Wallet)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Wallets = wallets

	redisReady := false
	if err := initRedis(cfg.Redis.URL, cfg.Redis.Password); err != nil {
		if cfg.TxLog.Backend == TxLogRedis {
			a.Close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		logger.Warn(ctx, "Redis unavailable, facilitator config cache disabled", zap.Error(err))
	} else {
		redisReady = true
		a.closers = append(a.closers, func() error { return redis.GetClient().Close() })
	}

	repo, err := a.transactionRepository(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Chains = usecases.NewChainRegistry(cfg.Blockchain.Chains(), a.factory, cfg.Settlement.MaxTimeoutSeconds)
	a.History = usecases.NewTransactionLog(repo)
	a.Encryptor = fhe.NewClient(cfg.FHE.URL, cfg.FHE.Timeout)

	facilitator := usecases.NewFacilitatorClient(cfg.Backend.BaseURL, cfg.Backend.APIKey, cfg.Backend.Timeout)
	var source usecases.FacilitatorConfigSource = facilitator
	if redisReady && cfg.Facilitator.CacheTTL > 0 {
		source = usecases.NewCachedFacilitator(facilitator, cfg.Facilitator.CacheTTL)
	}
	backend := usecases.NewBackendClient(cfg.Backend.BaseURL, cfg.Backend.APIKey, cfg.Backend.Timeout)

	a.Orchestrator = usecases.NewPaymentOrchestrator(usecases.OrchestratorDeps{
		Chains:      a.Chains,
		Wallets:     wallets,
		Facilitator: source,
		Submitter:   facilitator,
		Backend:     backend,
		X402:        usecases.NewX402Client(cfg.Backend.Timeout),
		Log:         a.History,
		Encryptor:   a.Encryptor,
	}, usecases.OrchestratorConfig{
		FacilitatorURL:    cfg.Facilitator.URL,
		X402ServerURL:     cfg.Facilitator.X402ServerURL,
		PollMaxAttempts:   cfg.Settlement.PollMaxAttempts,
		PollInterval:      cfg.Settlement.PollInterval,
		AttemptDeadline:   cfg.Settlement.AttemptDeadline,
		AutoSwitchNetwork: cfg.Wallet.AutoSwitchNetwork,
	})
	a.Reconciler = usecases.NewTransactionReconciler(a.History, backend)

	logger.Info(ctx, "PayAgent initialized",
		zap.String("txLog", cfg.TxLog.Backend),
		zap.Bool("evmWallet", wallets.EVM != nil),
		zap.Bool("solanaWallet", wallets.Solana != nil),
		zap.Bool("facilitatorCache", redisReady && cfg.Facilitator.CacheTTL > 0),
	)
	return a, nil
}

func (a *PayAgent) loadWallets(cfg config.WalletConfig) (usecases.WalletContext, error) {
	var wallets usecases.WalletContext
	if cfg.EVMPrivateKey != "" {
		w, err := wallet.NewLocalEVMWallet(cfg.EVMPrivateKey, a.dialEVM)
		if err != nil {
			return wallets, err
		}
		wallets.EVM = w
	}
	if cfg.SolanaPrivateKey != "" {
		w, err := wallet.NewLocalSolanaWallet(cfg.SolanaPrivateKey)
		if err != nil {
			return wallets, err
		}
		wallets.Solana = w
	}
	return wallets, nil
}

func (a *PayAgent) dialEVM(rpcURL string) (wallet.EVMChainClient, error) {
	client, err := a.factory.GetEVMClient(rpcURL)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (a *PayAgent) transactionRepository(cfg *config.Config) (repositories.TransactionLogRepository, error) {
	switch cfg.TxLog.Backend {
	case "", TxLogMemory:
		return infrarepos.NewMemoryTransactionLogRepository(), nil
	case TxLogRedis:
		return infrarepos.NewRedisTransactionLogRepository(cfg.TxLog.RedisKey), nil
	case TxLogPostgres:
		db, err := openDB(cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closeDB(db))
		if err := migrateDB(db); err != nil {
			return nil, err
		}
		return infrarepos.NewTransactionLogRepository(db), nil
	default:
		return nil, fmt.Errorf("unknown transaction log backend %q", cfg.TxLog.Backend)
	}
}

func closeDB(db *gorm.DB) func() error {
	return func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
}

// Close releases RPC clients and storage connections
func (a *PayAgent) Close() {
	a.factory.Close()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn(context.Background(), "Close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
