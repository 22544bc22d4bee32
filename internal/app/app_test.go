package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hyblock/hyblock-contracts/pkg/config"
	"github.com/hyblock/hyblock-contracts/pkg/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func testConfig() *config.Config {
	return &config.Config{
		LogLevel:            "info",
		HTTPPort:            "0",
		DevnetAccounts:      3,
		DevnetInitialSupply: "1000",
		DevnetFixture:       true,
		WalletPollInterval:  10 * time.Millisecond,
	}
}

func TestNew_BuildsDevnet(t *testing.T) {
	a, err := New(testConfig(), zap.NewNop(), nil)
	require.NoError(t, err)
	defer a.Shutdown()

	assert.Len(t, a.Devnet().Accounts(), 3)
	assert.Equal(t, "1000", units.FormatEther(a.Devnet().Token().TotalSupply()))
	assert.NotNil(t, a.tracker)
}

func TestNew_InvalidSupply(t *testing.T) {
	cfg := testConfig()
	cfg.DevnetInitialSupply = "lots"

	_, err := New(cfg, zap.NewNop(), nil)
	require.ErrorContains(t, err, "DEVNET_INITIAL_SUPPLY")
}

func TestNew_FixtureExceedsSupply(t *testing.T) {
	cfg := testConfig()
	cfg.DevnetInitialSupply = "1"

	_, err := New(cfg, zap.NewNop(), nil)
	require.Error(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	a, err := New(testConfig(), zap.New(core), &Options{DisableTracker: true})
	require.NoError(t, err)
	assert.Nil(t, a.tracker)

	done := make(chan error, 1)
	go func() { done <- a.Run() }()

	require.Eventually(t, func() bool {
		return logs.FilterMessage("application-ready").Len() == 1
	}, 2*time.Second, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	a.httpServer.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	a.cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.Equal(t, 1, logs.FilterMessage("application-shutdown-complete").Len())
	assert.True(t, a.Devnet().Bets().Closed())

	rec = httptest.NewRecorder()
	a.httpServer.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	require.NoError(t, a.Shutdown())
}
