package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"onepay.payagent/internal/domain/entities"
)

// Config holds all configuration values
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Backend     BackendConfig
	Facilitator FacilitatorConfig
	FHE         FHEConfig
	Blockchain  BlockchainConfig
	Wallet      WalletConfig
	Settlement  SettlementConfig
	TxLog       TxLogConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port       string
	Env        string
	APIKeyHash string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// URL returns the database connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	Password string
}

// BackendConfig points at the merchant payment API
type BackendConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// FacilitatorConfig points at the gasless settlement service
type FacilitatorConfig struct {
	URL           string
	X402ServerURL string
	CacheTTL      time.Duration
}

// FHEConfig points at the remote amount encryption service
type FHEConfig struct {
	URL     string
	Timeout time.Duration
}

// BlockchainConfig holds per-chain RPC overrides
type BlockchainConfig struct {
	EthereumRPC string
	BSCRPC      string
	ArbitrumRPC string
	SolanaRPC   string
}

// WalletConfig holds the locally held payer keys
type WalletConfig struct {
	EVMPrivateKey     string
	SolanaPrivateKey  string
	AutoSwitchNetwork bool
}

// SettlementConfig tunes the payment flow
type SettlementConfig struct {
	PollMaxAttempts   int
	PollInterval      time.Duration
	MaxTimeoutSeconds int
	AttemptDeadline   time.Duration
	ReconcileInterval time.Duration
}

// TxLogConfig selects the transaction history backend: memory, redis or postgres
type TxLogConfig struct {
	Backend  string
	RedisKey string
}

// Chains returns the built-in chain table with RPC overrides applied
func (c BlockchainConfig) Chains() map[entities.ChainID]*entities.ChainConfig {
	chains := entities.DefaultChains()
	overrides := map[entities.ChainID]string{
		entities.ChainEthereum: c.EthereumRPC,
		entities.ChainBSC:      c.BSCRPC,
		entities.ChainArbitrum: c.ArbitrumRPC,
		entities.ChainSolana:   c.SolanaRPC,
	}
	for id, rpcURL := range overrides {
		if rpcURL != "" {
			chains[id].RPCURL = rpcURL
		}
	}
	return chains
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:       getEnv("SERVER_PORT", "8080"),
			Env:        getEnv("SERVER_ENV", "development"),
			APIKeyHash: getEnv("PAYAGENT_API_KEY_HASH", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "payagent"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		Backend: BackendConfig{
			BaseURL: strings.TrimRight(getEnv("BACKEND_API_BASE", "http://localhost:3001"), "/"),
			APIKey:  getEnv("BACKEND_API_KEY", ""),
			Timeout: getEnvAsDuration("BACKEND_TIMEOUT", 30*time.Second),
		},
		Facilitator: FacilitatorConfig{
			URL:           strings.TrimRight(getEnv("FACILITATOR_URL", "http://localhost:3002"), "/"),
			X402ServerURL: strings.TrimRight(getEnv("X402_SERVER_URL", "http://localhost:4021"), "/"),
			CacheTTL:      getEnvAsDuration("FACILITATOR_CACHE_TTL", time.Minute),
		},
		FHE: FHEConfig{
			URL:     strings.TrimRight(getEnv("FHE_API_URL", "http://localhost:8001"), "/"),
			Timeout: getEnvAsDuration("FHE_TIMEOUT", 30*time.Second),
		},
		Blockchain: BlockchainConfig{
			EthereumRPC: getEnv("ETHEREUM_RPC_URL", ""),
			BSCRPC:      getEnv("BSC_RPC_URL", ""),
			ArbitrumRPC: getEnv("ARBITRUM_RPC_URL", ""),
			SolanaRPC:   getEnv("SOLANA_RPC_URL", ""),
		},
		Wallet: WalletConfig{
			EVMPrivateKey:     getEnv("EVM_PRIVATE_KEY", getEnv("PRIVATE_KEY", "")),
			SolanaPrivateKey:  getEnv("SOLANA_PRIVATE_KEY", ""),
			AutoSwitchNetwork: getEnvAsBool("PAYAGENT_AUTO_SWITCH_NETWORK", true),
		},
		Settlement: SettlementConfig{
			PollMaxAttempts:   getEnvAsInt("POLL_MAX_ATTEMPTS", 12),
			PollInterval:      getEnvAsDuration("POLL_INTERVAL", 5*time.Second),
			MaxTimeoutSeconds: getEnvAsInt("X402_MAX_TIMEOUT_SECONDS", 3600),
			AttemptDeadline:   getEnvAsDuration("ATTEMPT_DEADLINE", 10*time.Minute),
			ReconcileInterval: getEnvAsDuration("RECONCILE_INTERVAL", 30*time.Second),
		},
		TxLog: TxLogConfig{
			Backend:  strings.ToLower(getEnv("TX_LOG_BACKEND", "memory")),
			RedisKey: getEnv("TX_LOG_REDIS_KEY", "x402_fhe_transactions"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
