package circuitbreaker

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hyblock/hyblock-contracts/pkg/units"
	"github.com/hyblock/hyblock-contracts/pkg/wallet"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var deployer = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

type fakeFetcher struct {
	mu      sync.Mutex
	balance *big.Int
	err     error
}

func (f *fakeFetcher) set(eth string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balance = units.MustParseEther(eth)
}

func (f *fakeFetcher) GetBalances(_ context.Context, _ common.Address) (*wallet.Balances, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &wallet.Balances{Native: f.balance}, nil
}

func newBreaker(t *testing.T, f *fakeFetcher) *BalanceCircuitBreaker {
	t.Helper()
	b, err := New(&Config{
		CostMultiplier: 3,
		MinAbsolute:    0.01,
		Fetcher:        f,
		Address:        deployer,
		Logger:         zap.NewNop(),
	})
	require.NoError(t, err)
	return b
}

func TestNew_Validation(t *testing.T) {
	f := &fakeFetcher{}
	logger := zap.NewNop()

	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil config", nil},
		{"nil fetcher", &Config{CostMultiplier: 1, MinAbsolute: 1, Logger: logger}},
		{"nil logger", &Config{CostMultiplier: 1, MinAbsolute: 1, Fetcher: f}},
		{"zero multiplier", &Config{MinAbsolute: 1, Fetcher: f, Logger: logger}},
		{"zero min", &Config{CostMultiplier: 1, Fetcher: f, Logger: logger}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			require.Error(t, err)
		})
	}
}

func TestBreaker_StartsEnabledWithMinimumThreshold(t *testing.T) {
	b := newBreaker(t, &fakeFetcher{})

	status := b.GetStatus()
	assert.True(t, b.IsEnabled())
	assert.Equal(t, 0.01, status.DisableThreshold)
	assert.Equal(t, 1.0, testutil.ToFloat64(BreakerEnabled))
}

func TestBreaker_RecordDeploymentRaisesThreshold(t *testing.T) {
	b := newBreaker(t, &fakeFetcher{})

	b.RecordDeployment(units.MustParseEther("0.02"))
	b.RecordDeployment(units.MustParseEther("0.04"))

	status := b.GetStatus()
	assert.InDelta(t, 0.03, status.AvgCost, 1e-12)
	assert.InDelta(t, 0.09, status.DisableThreshold, 1e-12)
	assert.Equal(t, 2, status.RecentCostCount)

	b.RecordDeployment(nil)
	b.RecordDeployment(big.NewInt(0))
	assert.Equal(t, 2, b.GetStatus().RecentCostCount)
}

func TestBreaker_CostWindowIsBounded(t *testing.T) {
	b := newBreaker(t, &fakeFetcher{})

	for i := 0; i < CostWindow+5; i++ {
		b.RecordDeployment(units.MustParseEther("0.001"))
	}

	assert.Equal(t, CostWindow, b.GetStatus().RecentCostCount)
}

func TestBreaker_OpensAndClosesAtThreshold(t *testing.T) {
	f := &fakeFetcher{}
	b := newBreaker(t, f)
	ctx := context.Background()
	changes := testutil.ToFloat64(BreakerStateChanges)

	f.set("1")
	require.NoError(t, b.Allow(ctx))

	f.set("0.005")
	err := b.Allow(ctx)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.False(t, b.IsEnabled())

	f.set("0.01")
	require.NoError(t, b.Allow(ctx))
	assert.True(t, b.IsEnabled())
	assert.InDelta(t, 0.01, b.GetStatus().LastBalance, 1e-12)
	assert.Equal(t, changes+2, testutil.ToFloat64(BreakerStateChanges))
}

func TestBreaker_SeedFromHistory(t *testing.T) {
	f := &fakeFetcher{}
	b := newBreaker(t, f)

	history := []*big.Int{nil, big.NewInt(0)}
	for i := 0; i < CostWindow+2; i++ {
		history = append(history, units.MustParseEther("0.1"))
	}
	history = append(history, units.MustParseEther("0.3"))

	accepted := b.Seed(history)
	assert.Equal(t, CostWindow+3, accepted)

	status := b.GetStatus()
	assert.Equal(t, CostWindow, status.RecentCostCount)
	// 19 * 0.1 + 0.3 over the window of 20.
	assert.InDelta(t, 0.11, status.AvgCost, 1e-12)
	assert.InDelta(t, 0.33, status.DisableThreshold, 1e-12)

	// A seeded threshold gates the first deployment of a fresh process.
	f.set("0.2")
	require.ErrorIs(t, b.Allow(context.Background()), ErrInsufficientFunds)

	assert.Zero(t, b.Seed(nil))
}

func TestBreaker_FetchError(t *testing.T) {
	b := newBreaker(t, &fakeFetcher{err: errors.New("rpc down")})

	err := b.Allow(context.Background())
	require.ErrorContains(t, err, "rpc down")
	assert.NotErrorIs(t, err, ErrInsufficientFunds)
	assert.True(t, b.IsEnabled())
}
