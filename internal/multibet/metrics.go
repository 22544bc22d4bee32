package multibet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	BetsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hyblock_multibet_bets_created_total",
		Help: "Total number of bets created",
	})

	BetsPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hyblock_multibet_wagers_placed_total",
		Help: "Total number of wagers accepted",
	})

	BetsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hyblock_multibet_wagers_rejected_total",
		Help: "Total number of wagers rejected by the token (allowance or balance)",
	})

	BetsResolvedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hyblock_multibet_bets_resolved_total",
		Help: "Total number of bets resolved",
	})

	PayoutVolume = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hyblock_multibet_payout_volume_tokens",
		Help: "Total tokens paid out to winners (18-decimal units)",
	})

	PayoutRollbackFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hyblock_multibet_payout_rollback_failures_total",
		Help: "Total number of paid-out amounts that could not be reclaimed after a failed resolution",
	})

	EventsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hyblock_multibet_events_dropped_total",
		Help: "Total number of events dropped for slow subscribers",
	})
)
