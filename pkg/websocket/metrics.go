package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks active event stream connections.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hyblock_ws_client_active_connections",
		Help: "Number of active event stream connections",
	})

	// ReconnectAttemptsTotal tracks reconnection attempts.
	ReconnectAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hyblock_ws_client_reconnect_attempts_total",
		Help: "Total number of event stream reconnection attempts",
	})

	// ReconnectFailuresTotal tracks reconnection failures.
	ReconnectFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hyblock_ws_client_reconnect_failures_total",
		Help: "Total number of event stream reconnection failures",
	})

	// MessagesReceivedTotal tracks events received by name.
	MessagesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyblock_ws_client_events_received_total",
			Help: "Total number of ledger events received",
		},
		[]string{"event"},
	)

	// MessagesDroppedTotal tracks events dropped due to a full channel.
	MessagesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyblock_ws_client_events_dropped_total",
			Help: "Total number of ledger events dropped by the client",
		},
		[]string{"reason"},
	)

	// MissedEventsTotal counts sequence gaps, i.e. events the server sent
	// while disconnected or dropped for this subscriber.
	MissedEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hyblock_ws_client_missed_events_total",
		Help: "Total number of events missed according to sequence gaps",
	})

	// ConnectionDuration tracks connection lifetime.
	ConnectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hyblock_ws_client_connection_duration_seconds",
		Help:    "Duration of event stream connections before disconnect",
		Buckets: []float64{1, 10, 60, 300, 1800, 3600, 14400, 86400},
	})
)
