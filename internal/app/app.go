// Package app runs the devnet: the simulated ledgers behind the HTTP API and
// event stream.
package app

import (
	"context"
	"sync"

	"github.com/hyblock/hyblock-contracts/internal/devnet"
	"github.com/hyblock/hyblock-contracts/pkg/config"
	"github.com/hyblock/hyblock-contracts/pkg/healthprobe"
	"github.com/hyblock/hyblock-contracts/pkg/httpserver"
	"github.com/hyblock/hyblock-contracts/pkg/wallet"
	"go.uber.org/zap"
)

// App is the devnet application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	devnet        *devnet.Devnet
	tracker       *wallet.Tracker
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	shutdownOnce  sync.Once
}

// Options holds application options.
type Options struct {
	// DisableTracker skips the per-account balance metrics loop.
	DisableTracker bool
}

// Devnet returns the simulated chain.
func (a *App) Devnet() *devnet.Devnet {
	return a.devnet
}
