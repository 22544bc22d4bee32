package verify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SubmissionsTotal tracks verifysourcecode calls by outcome.
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hyblock_verify_submissions_total",
		Help: "Total number of source verification submissions",
	}, []string{"result"})

	// VerificationsTotal tracks end-to-end verifications by outcome.
	VerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hyblock_verify_verifications_total",
		Help: "Total number of contract verifications",
	}, []string{"result"})

	// VerificationDuration tracks time from submission to a verified status.
	VerificationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hyblock_verify_duration_seconds",
		Help:    "Time from submission until the explorer reports verified",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
	})
)
