package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_dispatch_messages_total",
			Help: "Total number of campaign messages attempted, by outcome",
		},
		[]string{"status"},
	)

	dispatchRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_dispatch_runs_total",
			Help: "Total number of campaign dispatch runs, by result",
		},
		[]string{"result"},
	)

	dispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campaign_dispatch_duration_seconds",
			Help:    "Wall time of a campaign dispatch run",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 900},
		},
		[]string{"target_audience"},
	)
)
