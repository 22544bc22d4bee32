// Package circuitbreaker stops deployments when the deployer account can no
// longer pay for them.
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hyblock/hyblock-contracts/pkg/wallet"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrInsufficientFunds is returned by Allow when the breaker is open.
var ErrInsufficientFunds = errors.New("deployer balance below deployment threshold")

// CostWindow is the number of recent deployment costs averaged into the threshold.
const CostWindow = 20

// BalanceCircuitBreaker tracks the deployer's native balance against a
// threshold derived from recent deployment costs. Deployments are refused
// while the balance sits below the threshold and resume once it recovers.
type BalanceCircuitBreaker struct {
	enabled atomic.Bool

	fetcher         wallet.Fetcher
	address         common.Address
	logger          *zap.Logger
	costMultiplier float64
	minAbsolute    float64

	mu               sync.RWMutex
	lastBalance      float64
	lastCheck        time.Time
	recentCosts      []float64
	disableThreshold float64
}

// Config holds circuit breaker configuration. Amounts are in ether.
type Config struct {
	// CostMultiplier scales the average deployment cost into the disable threshold.
	CostMultiplier float64

	// MinAbsolute is the lowest disable threshold.
	MinAbsolute float64

	Fetcher wallet.Fetcher
	Address common.Address
	Logger  *zap.Logger
}

// Status is a snapshot of the breaker state.
type Status struct {
	Enabled          bool
	LastBalance      float64
	LastCheck        time.Time
	DisableThreshold float64
	AvgCost          float64
	RecentCostCount  int
}

// New creates a new circuit breaker. It starts closed (deployments allowed).
func New(cfg *Config) (*BalanceCircuitBreaker, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.Fetcher == nil {
		return nil, errors.New("balance fetcher cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.CostMultiplier <= 0 {
		return nil, errors.New("cost multiplier must be positive")
	}
	if cfg.MinAbsolute <= 0 {
		return nil, errors.New("min absolute must be positive")
	}

	b := &BalanceCircuitBreaker{
		fetcher:          cfg.Fetcher,
		address:          cfg.Address,
		logger:           cfg.Logger,
		costMultiplier:   cfg.CostMultiplier,
		minAbsolute:      cfg.MinAbsolute,
		recentCosts:      make([]float64, 0, CostWindow),
		disableThreshold: cfg.MinAbsolute,
	}

	b.enabled.Store(true)

	BreakerEnabled.Set(1)
	BreakerDisableThreshold.Set(b.disableThreshold)
	BreakerAvgCost.Set(0)

	return b, nil
}

// IsEnabled reports whether deployments may proceed.
func (b *BalanceCircuitBreaker) IsEnabled() bool {
	return b.enabled.Load()
}

// Allow refreshes the balance and returns ErrInsufficientFunds when the
// breaker is open.
func (b *BalanceCircuitBreaker) Allow(ctx context.Context) error {
	err := b.CheckBalance(ctx)
	if err != nil {
		return err
	}

	if !b.IsEnabled() {
		status := b.GetStatus()
		return fmt.Errorf("%w: balance %.6f ETH, need %.6f ETH",
			ErrInsufficientFunds, status.LastBalance, status.DisableThreshold)
	}

	return nil
}

// RecordDeployment adds the cost of a deployment (gas used times effective
// gas price, in wei) to the rolling window and recalculates the threshold.
func (b *BalanceCircuitBreaker) RecordDeployment(costWei *big.Int) {
	if costWei == nil || costWei.Sign() <= 0 {
		b.logger.Warn("invalid-deployment-cost")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.pushCost(weiToEther(costWei))
	b.recalculate()
}

// Seed preloads the cost window with historical deployment costs, oldest
// first, so a fresh process starts from a realistic threshold. Non-positive
// entries are skipped. It returns the number of costs accepted.
func (b *BalanceCircuitBreaker) Seed(costsWei []*big.Int) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	accepted := 0
	for _, c := range costsWei {
		if c == nil || c.Sign() <= 0 {
			continue
		}
		b.pushCost(weiToEther(c))
		accepted++
	}
	if accepted > 0 {
		b.recalculate()
	}
	return accepted
}

// pushCost must be called with mu held.
func (b *BalanceCircuitBreaker) pushCost(cost float64) {
	b.recentCosts = append(b.recentCosts, cost)
	if len(b.recentCosts) > CostWindow {
		b.recentCosts = b.recentCosts[len(b.recentCosts)-CostWindow:]
	}
}

// recalculate must be called with mu held.
func (b *BalanceCircuitBreaker) recalculate() {
	avg := average(b.recentCosts)
	b.disableThreshold = math.Max(avg*b.costMultiplier, b.minAbsolute)

	BreakerAvgCost.Set(avg)
	BreakerDisableThreshold.Set(b.disableThreshold)

	b.logger.Debug("threshold-updated",
		zap.Float64("avg-cost", avg),
		zap.Int("deployment-count", len(b.recentCosts)),
		zap.Float64("disable-threshold", b.disableThreshold))
}

// CheckBalance fetches the current balance and updates the enabled state.
func (b *BalanceCircuitBreaker) CheckBalance(ctx context.Context) error {
	start := time.Now()
	defer func() {
		BreakerCheckDuration.Observe(time.Since(start).Seconds())
	}()

	balances, err := b.fetcher.GetBalances(ctx, b.address)
	if err != nil {
		b.logger.Error("failed-to-check-balance",
			zap.Error(err),
			zap.String("address", b.address.Hex()))
		return fmt.Errorf("get balances: %w", err)
	}

	balance := weiToEther(balances.Native)

	b.mu.Lock()
	b.lastBalance = balance
	b.lastCheck = time.Now()
	threshold := b.disableThreshold
	b.mu.Unlock()

	BreakerBalance.Set(balance)

	wasEnabled := b.enabled.Load()
	enabled := balance >= threshold
	b.enabled.Store(enabled)

	switch {
	case wasEnabled && !enabled:
		BreakerEnabled.Set(0)
		BreakerStateChanges.Inc()

		b.logger.Warn("circuit-breaker-disabled",
			zap.Float64("balance", balance),
			zap.Float64("threshold", threshold))
	case !wasEnabled && enabled:
		BreakerEnabled.Set(1)
		BreakerStateChanges.Inc()

		b.logger.Info("circuit-breaker-enabled",
			zap.Float64("balance", balance),
			zap.Float64("threshold", threshold))
	default:
		b.logger.Debug("balance-checked",
			zap.Float64("balance", balance),
			zap.Bool("enabled", enabled),
			zap.Float64("threshold", threshold))
	}

	return nil
}

// GetStatus returns the current breaker status.
func (b *BalanceCircuitBreaker) GetStatus() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return Status{
		Enabled:          b.enabled.Load(),
		LastBalance:      b.lastBalance,
		LastCheck:        b.lastCheck,
		DisableThreshold: b.disableThreshold,
		AvgCost:          average(b.recentCosts),
		RecentCostCount:  len(b.recentCosts),
	}
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func weiToEther(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	return decimal.NewFromBigInt(wei, -18).InexactFloat64()
}
