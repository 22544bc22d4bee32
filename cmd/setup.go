package cmd

import (
	"context"
	"fmt"
	"math/big"

	"github.com/hyblock/hyblock-contracts/internal/chain"
	"github.com/hyblock/hyblock-contracts/internal/circuitbreaker"
	"github.com/hyblock/hyblock-contracts/internal/deploy"
	"github.com/hyblock/hyblock-contracts/internal/storage"
	"github.com/hyblock/hyblock-contracts/internal/verify"
	"github.com/hyblock/hyblock-contracts/pkg/cache"
	"github.com/hyblock/hyblock-contracts/pkg/config"
	"github.com/hyblock/hyblock-contracts/pkg/units"
	"github.com/hyblock/hyblock-contracts/pkg/wallet"
	"go.uber.org/zap"
)

// env is what every network command needs: config, logger and a signing client.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	client *chain.Client
}

func (e *env) Close() {
	e.client.Backend().Close()
	_ = e.logger.Sync()
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	return cfg, logger, nil
}

// setupEnv dials the configured network. Commands that send transactions
// pass needSigner.
func setupEnv(ctx context.Context, needSigner bool) (*env, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	rpcURL, err := cfg.RPCURL()
	if err != nil {
		return nil, err
	}

	var signer *chain.Signer
	if needSigner || cfg.PrivateKey != "" {
		err = cfg.ValidateSigner()
		if err != nil {
			return nil, err
		}
		signer, err = chain.NewSigner(cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
	}

	backend, err := chain.DialBackend(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Network, err)
	}

	client, err := chain.NewClient(ctx, &chain.Config{
		Backend:      backend,
		Signer:       signer,
		Logger:       logger,
		TxTimeout:    cfg.TxTimeout,
		PollInterval: cfg.BlockPollInterval,
	})
	if err != nil {
		backend.Close()
		return nil, err
	}

	logger.Debug("connected",
		zap.String("network", cfg.Network),
		zap.String("chain-id", client.ChainID().String()))

	return &env{cfg: cfg, logger: logger, client: client}, nil
}

func setupArtifacts(cfg *config.Config, logger *zap.Logger) (*chain.ArtifactStore, func(), error) {
	c, err := cache.NewRistrettoCache(cache.DefaultConfig(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("create artifact cache: %w", err)
	}

	store, err := chain.NewArtifactStore(cfg.ArtifactsDir, c, logger)
	if err != nil {
		c.Close()
		return nil, nil, err
	}

	return store, c.Close, nil
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		pgStorage, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pgStorage, nil
	}

	return storage.NewConsoleStorage(logger), nil
}

// setupVerifier returns nil when no explorer API key is configured.
func setupVerifier(cfg *config.Config, logger *zap.Logger) (*verify.Client, error) {
	if cfg.EtherscanAPIKey == "" {
		return nil, nil
	}

	return verify.NewClient(&verify.Config{
		BaseURL:      cfg.EtherscanAPIURL,
		APIKey:       cfg.EtherscanAPIKey,
		PollInterval: cfg.VerifyPollInterval,
		MaxAttempts:  cfg.VerifyMaxAttempts,
		Logger:       logger,
	})
}

// setupGuard returns nil when the deployment balance guard is disabled.
func setupGuard(e *env) (*circuitbreaker.BalanceCircuitBreaker, error) {
	if !e.cfg.DeployGuardEnabled {
		return nil, nil
	}

	fetcher, err := wallet.NewClient(&wallet.ClientConfig{
		Native: e.client.Backend(),
		Logger: e.logger,
	})
	if err != nil {
		return nil, err
	}

	return circuitbreaker.New(&circuitbreaker.Config{
		CostMultiplier: e.cfg.DeployGuardCostMultiplier,
		MinAbsolute:    e.cfg.DeployGuardMinBalance,
		Fetcher:        fetcher,
		Address:        e.client.Address(),
		Logger:         e.logger,
	})
}

// newRunner wires a deployment runner. The returned func releases storage and caches.
func newRunner(e *env, skipVerify bool) (*deploy.Runner, func(), error) {
	artifacts, closeArtifacts, err := setupArtifacts(e.cfg, e.logger)
	if err != nil {
		return nil, nil, err
	}

	store, err := setupStorage(e.cfg, e.logger)
	if err != nil {
		closeArtifacts()
		return nil, nil, err
	}

	cleanup := func() {
		closeArtifacts()
		_ = store.Close()
	}

	verifier, err := setupVerifier(e.cfg, e.logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	guard, err := setupGuard(e)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	cfg := &deploy.Config{
		Deployer:      e.client,
		Artifacts:     artifacts,
		Storage:       store,
		Network:       e.cfg.Network,
		LocalNetwork:  e.cfg.IsLocalNetwork(),
		SkipVerify:    skipVerify,
		Confirmations: uint64(e.cfg.VerifyConfirmations),
		Logger:        e.logger,
	}
	// Typed nils must not reach the interface fields.
	if verifier != nil {
		cfg.Verifier = verifier
	}
	if guard != nil {
		cfg.Guard = guard
	}

	runner, err := deploy.NewRunner(cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return runner, cleanup, nil
}

// parseTokenAmount parses a decimal amount, or "unlimited" for max uint256.
func parseTokenAmount(raw string, decimals uint8) (*big.Int, error) {
	amount, err := units.ParseAllowance(raw, int32(decimals))
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return amount, nil
}
