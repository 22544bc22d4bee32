package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BreakerEnabled indicates whether deployments are allowed.
	BreakerEnabled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hyblock_deploy_breaker_enabled",
		Help: "Whether the circuit breaker allows deployments (1=enabled, 0=disabled)",
	})

	// BreakerBalance tracks the last checked deployer balance.
	BreakerBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hyblock_deploy_breaker_balance_eth",
		Help: "Last checked deployer balance in ether",
	})

	// BreakerDisableThreshold tracks the current disable threshold.
	BreakerDisableThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hyblock_deploy_breaker_disable_threshold_eth",
		Help: "Balance below which deployments are refused",
	})

	// BreakerAvgCost tracks the rolling average deployment cost.
	BreakerAvgCost = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hyblock_deploy_breaker_avg_cost_eth",
		Help: "Rolling average deployment cost in ether",
	})

	// BreakerStateChanges counts breaker state transitions.
	BreakerStateChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hyblock_deploy_breaker_state_changes_total",
		Help: "Total number of circuit breaker state changes",
	})

	// BreakerCheckDuration tracks balance check latency.
	BreakerCheckDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hyblock_deploy_breaker_check_duration_seconds",
		Help:    "Time taken to check the deployer balance",
		Buckets: prometheus.DefBuckets,
	})
)
