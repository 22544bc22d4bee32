package wallet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// NativeBalance tracks native currency balance per account.
	NativeBalance = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hyblock_wallet_native_balance",
			Help: "Native currency balance per account (ether units)",
		},
		[]string{"address"},
	)

	// TokenBalance tracks token balance per account.
	TokenBalance = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hyblock_wallet_token_balance",
			Help: "Token balance per account (token units)",
		},
		[]string{"address"},
	)

	// TokenAllowance tracks the allowance each account granted to the betting contract.
	TokenAllowance = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hyblock_wallet_token_allowance",
			Help: "Token allowance granted to the betting contract (token units)",
		},
		[]string{"address"},
	)

	// UpdateErrorsTotal tracks the number of failed update attempts.
	UpdateErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hyblock_wallet_update_errors_total",
		Help: "Total number of failed wallet update attempts",
	})

	// UpdateDuration tracks the time taken to fetch wallet data.
	UpdateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hyblock_wallet_update_duration_seconds",
		Help:    "Time taken to fetch wallet data (seconds)",
		Buckets: prometheus.DefBuckets,
	})

	// LastUpdateTimestamp tracks the Unix timestamp of the last successful update.
	LastUpdateTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hyblock_wallet_last_update_timestamp",
		Help: "Unix timestamp of last successful wallet update",
	})
)
