package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Tracker periodically fetches balances for a set of accounts and updates
// Prometheus metrics.
type Tracker struct {
	fetcher       Fetcher
	addresses     []common.Address
	tokenDecimals int32
	pollInterval  time.Duration
	logger        *zap.Logger
}

// Config holds tracker configuration.
type Config struct {
	Fetcher       Fetcher
	Addresses     []common.Address
	TokenDecimals int32
	PollInterval  time.Duration
	Logger        *zap.Logger
}

// New creates a new wallet tracker.
func New(cfg *Config) (*Tracker, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Fetcher == nil {
		return nil, errors.New("fetcher cannot be nil")
	}

	if len(cfg.Addresses) == 0 {
		return nil, errors.New("at least one address is required")
	}

	if cfg.PollInterval <= 0 {
		return nil, errors.New("poll interval must be positive")
	}

	return &Tracker{
		fetcher:       cfg.Fetcher,
		addresses:     append([]common.Address(nil), cfg.Addresses...),
		tokenDecimals: cfg.TokenDecimals,
		pollInterval:  cfg.PollInterval,
		logger:        cfg.Logger,
	}, nil
}

// Run starts the tracker polling loop (blocking).
func (t *Tracker) Run(ctx context.Context) error {
	t.logger.Info("wallet-tracker-starting",
		zap.Duration("poll-interval", t.pollInterval),
		zap.Int("accounts", len(t.addresses)))

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	pollErr := t.poll(ctx)
	if pollErr != nil {
		t.logger.Error("initial-poll-failed", zap.Error(pollErr))
		UpdateErrorsTotal.Inc()
	}

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("wallet-tracker-stopping")
			return ctx.Err()
		case <-ticker.C:
			pollErr = t.poll(ctx)
			if pollErr != nil {
				t.logger.Error("poll-failed", zap.Error(pollErr))
				UpdateErrorsTotal.Inc()
			}
		}
	}
}

// poll performs a single polling cycle over every account.
func (t *Tracker) poll(ctx context.Context) error {
	start := time.Now()
	defer func() {
		UpdateDuration.Observe(time.Since(start).Seconds())
	}()

	for _, addr := range t.addresses {
		fetchCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		balances, err := t.fetcher.GetBalances(fetchCtx, addr)
		cancel()
		if err != nil {
			return fmt.Errorf("get balances for %s: %w", addr.Hex(), err)
		}

		t.updateMetrics(addr, balances)
	}

	LastUpdateTimestamp.Set(float64(time.Now().Unix()))

	t.logger.Debug("poll-complete",
		zap.Int("accounts", len(t.addresses)),
		zap.Duration("duration", time.Since(start)))

	return nil
}

func (t *Tracker) updateMetrics(addr common.Address, balances *Balances) {
	label := addr.Hex()
	NativeBalance.WithLabelValues(label).Set(toFloat(balances.Native, 18))
	TokenBalance.WithLabelValues(label).Set(toFloat(balances.Token, t.tokenDecimals))
	TokenAllowance.WithLabelValues(label).Set(toFloat(balances.Allowance, t.tokenDecimals))
}

func toFloat(v *big.Int, decimals int32) float64 {
	if v == nil {
		return 0
	}
	return decimal.NewFromBigInt(v, -decimals).InexactFloat64()
}
