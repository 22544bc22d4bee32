package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Supported networks.
const (
	NetworkHardhat   = "hardhat"
	NetworkLocalhost = "localhost"
	NetworkHolesky   = "holesky"
	NetworkSepolia   = "sepolia"
	NetworkMainnet   = "mainnet"
)

// DefaultHyblockTokenAddress is the HYBLOCK token deployed on holesky.
const DefaultHyblockTokenAddress = "0x220634d3d55DE21c5F0C5Ec37C1CC0c247dcc866"

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Network
	Network           string
	HoleskyRPCURL     string
	SepoliaRPCURL     string
	MainnetRPCURL     string
	LocalhostRPCURL   string
	PrivateKey        string
	TxTimeout         time.Duration
	BlockPollInterval time.Duration

	// Contracts
	ArtifactsDir        string
	HyblockTokenAddress string
	MultiBetAddress     string

	// Verification
	EtherscanAPIKey     string
	EtherscanAPIURL     string
	VerifyConfirmations int
	VerifyPollInterval  time.Duration
	VerifyMaxAttempts   int

	// Deployment balance guard
	DeployGuardEnabled        bool
	DeployGuardMinBalance     float64 // ether
	DeployGuardCostMultiplier float64

	// Devnet
	DevnetAccounts      int
	DevnetInitialSupply string
	DevnetFixture       bool
	WalletPollInterval  time.Duration

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		Network:           strings.ToLower(getEnvOrDefault("NETWORK", NetworkHolesky)),
		HoleskyRPCURL:     os.Getenv("HOLESKY_RPC_URL"),
		SepoliaRPCURL:     os.Getenv("SEPOLIA_RPC_URL"),
		MainnetRPCURL:     os.Getenv("MAINNET_RPC_URL"),
		LocalhostRPCURL:   getEnvOrDefault("LOCALHOST_RPC_URL", "http://127.0.0.1:8545"),
		PrivateKey:        os.Getenv("PRIVATE_KEY"),
		TxTimeout:         getDurationOrDefault("TX_TIMEOUT", 5*time.Minute),
		BlockPollInterval: getDurationOrDefault("BLOCK_POLL_INTERVAL", 2*time.Second),

		ArtifactsDir:        getEnvOrDefault("ARTIFACTS_DIR", "artifacts"),
		HyblockTokenAddress: getEnvOrDefault("HYBLOCK_TOKEN_ADDRESS", DefaultHyblockTokenAddress),
		MultiBetAddress:     os.Getenv("MULTIBET_ADDRESS"),

		EtherscanAPIKey:     os.Getenv("ETHERSCAN_API_KEY"),
		EtherscanAPIURL:     getEnvOrDefault("ETHERSCAN_API_URL", "https://api.etherscan.io/v2/api"),
		VerifyConfirmations: getIntOrDefault("VERIFY_CONFIRMATIONS", 5),
		VerifyPollInterval:  getDurationOrDefault("VERIFY_POLL_INTERVAL", 5*time.Second),
		VerifyMaxAttempts:   getIntOrDefault("VERIFY_MAX_ATTEMPTS", 20),

		DeployGuardEnabled:        getBoolOrDefault("DEPLOY_GUARD_ENABLED", true),
		DeployGuardMinBalance:     getFloatOrDefault("DEPLOY_GUARD_MIN_BALANCE", 0.01),
		DeployGuardCostMultiplier: getFloatOrDefault("DEPLOY_GUARD_COST_MULTIPLIER", 3.0),

		DevnetAccounts:      getIntOrDefault("DEVNET_ACCOUNTS", 5),
		DevnetInitialSupply: getEnvOrDefault("DEVNET_INITIAL_SUPPLY", "1000000"),
		DevnetFixture:       getBoolOrDefault("DEVNET_FIXTURE", true),
		WalletPollInterval:  getDurationOrDefault("WALLET_POLL_INTERVAL", 15*time.Second),

		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "hyblock"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "hyblock123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "hyblock_contracts"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	switch c.Network {
	case NetworkHardhat, NetworkLocalhost, NetworkHolesky, NetworkSepolia, NetworkMainnet:
	default:
		return fmt.Errorf("NETWORK must be one of hardhat, localhost, holesky, sepolia, mainnet, got %q", c.Network)
	}

	if c.ArtifactsDir == "" {
		return fmt.Errorf("ARTIFACTS_DIR cannot be empty")
	}

	if c.HyblockTokenAddress != "" && !common.IsHexAddress(c.HyblockTokenAddress) {
		return fmt.Errorf("HYBLOCK_TOKEN_ADDRESS is not a valid address: %q", c.HyblockTokenAddress)
	}

	if c.MultiBetAddress != "" && !common.IsHexAddress(c.MultiBetAddress) {
		return fmt.Errorf("MULTIBET_ADDRESS is not a valid address: %q", c.MultiBetAddress)
	}

	if c.TxTimeout <= 0 {
		return fmt.Errorf("TX_TIMEOUT must be positive, got %s", c.TxTimeout)
	}

	if c.VerifyConfirmations < 0 {
		return fmt.Errorf("VERIFY_CONFIRMATIONS cannot be negative, got %d", c.VerifyConfirmations)
	}

	if c.VerifyMaxAttempts <= 0 {
		return fmt.Errorf("VERIFY_MAX_ATTEMPTS must be positive, got %d", c.VerifyMaxAttempts)
	}

	if c.DeployGuardEnabled {
		if c.DeployGuardMinBalance <= 0 {
			return fmt.Errorf("DEPLOY_GUARD_MIN_BALANCE must be positive, got %v", c.DeployGuardMinBalance)
		}
		if c.DeployGuardCostMultiplier <= 0 {
			return fmt.Errorf("DEPLOY_GUARD_COST_MULTIPLIER must be positive, got %v", c.DeployGuardCostMultiplier)
		}
	}

	if c.WalletPollInterval <= 0 {
		return fmt.Errorf("WALLET_POLL_INTERVAL must be positive, got %s", c.WalletPollInterval)
	}

	if c.DevnetAccounts < 1 || c.DevnetAccounts > 20 {
		return fmt.Errorf("DEVNET_ACCOUNTS must be between 1 and 20, got %d", c.DevnetAccounts)
	}

	if c.StorageMode != "console" && c.StorageMode != "postgres" {
		return fmt.Errorf("STORAGE_MODE must be 'console' or 'postgres', got %q", c.StorageMode)
	}

	return nil
}

// IsLocalNetwork reports whether the selected network is a local development chain.
func (c *Config) IsLocalNetwork() bool {
	return c.Network == NetworkHardhat || c.Network == NetworkLocalhost
}

// RPCURL returns the JSON-RPC endpoint for the selected network.
func (c *Config) RPCURL() (string, error) {
	var url, key string
	switch c.Network {
	case NetworkHardhat, NetworkLocalhost:
		url, key = c.LocalhostRPCURL, "LOCALHOST_RPC_URL"
	case NetworkHolesky:
		url, key = c.HoleskyRPCURL, "HOLESKY_RPC_URL"
	case NetworkSepolia:
		url, key = c.SepoliaRPCURL, "SEPOLIA_RPC_URL"
	case NetworkMainnet:
		url, key = c.MainnetRPCURL, "MAINNET_RPC_URL"
	default:
		return "", fmt.Errorf("unknown network %q", c.Network)
	}

	if url == "" {
		return "", fmt.Errorf("%s must be set for network %s", key, c.Network)
	}
	return url, nil
}

// ValidateSigner checks that a private key is configured.
func (c *Config) ValidateSigner() error {
	if c.PrivateKey == "" {
		return fmt.Errorf("PRIVATE_KEY must be set")
	}
	return nil
}

// ValidateVerification checks that explorer verification can run.
func (c *Config) ValidateVerification() error {
	if c.EtherscanAPIKey == "" {
		return fmt.Errorf("ETHERSCAN_API_KEY must be set to verify contracts")
	}
	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
