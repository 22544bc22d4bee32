package chain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	TransactionsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hyblock_chain_transactions_sent_total",
		Help: "Transactions broadcast, by method",
	}, []string{"method"})

	TransactionsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hyblock_chain_transactions_failed_total",
		Help: "Transactions that failed estimation or reverted, by method",
	}, []string{"method"})

	MineWaitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hyblock_chain_mine_wait_seconds",
		Help:    "Time from broadcast to receipt",
		Buckets: []float64{1, 2, 5, 10, 15, 30, 60, 120, 300},
	})
)
