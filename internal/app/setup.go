package app

import (
	"context"
	"fmt"

	"github.com/hyblock/hyblock-contracts/internal/devnet"
	"github.com/hyblock/hyblock-contracts/pkg/config"
	"github.com/hyblock/hyblock-contracts/pkg/healthprobe"
	"github.com/hyblock/hyblock-contracts/pkg/httpserver"
	"github.com/hyblock/hyblock-contracts/pkg/units"
	"github.com/hyblock/hyblock-contracts/pkg/wallet"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	d, err := setupDevnet(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup devnet: %w", err)
	}

	healthChecker := setupHealthChecker(d)
	httpServer := setupHTTPServer(cfg, logger, healthChecker, d)

	var tracker *wallet.Tracker
	if !opts.DisableTracker {
		tracker, err = setupTracker(cfg, logger, d)
		if err != nil {
			_ = d.Close()
			return nil, fmt.Errorf("setup wallet tracker: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		devnet:        d,
		tracker:       tracker,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupDevnet(cfg *config.Config, logger *zap.Logger) (*devnet.Devnet, error) {
	supply, err := units.ParseEther(cfg.DevnetInitialSupply)
	if err != nil {
		return nil, fmt.Errorf("parse DEVNET_INITIAL_SUPPLY: %w", err)
	}

	return devnet.New(&devnet.Config{
		Accounts:      cfg.DevnetAccounts,
		InitialSupply: supply,
		Fixture:       cfg.DevnetFixture,
		Logger:        logger,
	})
}

func setupHealthChecker(d *devnet.Devnet) *healthprobe.HealthChecker {
	hc := healthprobe.New()
	hc.AddCheck("ledger", d.Check)
	return hc
}

func setupHTTPServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthChecker *healthprobe.HealthChecker,
	d *devnet.Devnet,
) *httpserver.Server {
	return httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Devnet:        d,
	})
}

func setupTracker(cfg *config.Config, logger *zap.Logger, d *devnet.Devnet) (*wallet.Tracker, error) {
	return wallet.New(&wallet.Config{
		Fetcher:       d,
		Addresses:     d.Addresses(),
		TokenDecimals: int32(d.Token().Decimals()),
		PollInterval:  cfg.WalletPollInterval,
		Logger:        logger,
	})
}
