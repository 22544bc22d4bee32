package httpserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StreamClients tracks connected event stream clients.
	StreamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hyblock_ws_server_clients",
		Help: "Number of connected event stream clients",
	})

	// StreamEventsSentTotal counts events written to stream clients.
	StreamEventsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyblock_ws_server_events_sent_total",
			Help: "Total number of ledger events sent to stream clients",
		},
		[]string{"event"},
	)
)
