// Package metrics exposes the core's Prometheus metrics: horizon extension
// outcomes, runway readiness, feed-ahead pacing, and sink drift.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HorizonExtensionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrovue_core_horizon_extensions_total",
			Help: "Total horizon extension passes by channel and outcome.",
		},
		[]string{"channel_id", "outcome"},
	)

	HorizonWindowDepthSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "retrovue_core_horizon_window_depth_seconds",
			Help: "Current depth of the execution window ahead of now, per channel.",
		},
		[]string{"channel_id"},
	)

	RunwayViolationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrovue_core_runway_violations_total",
			Help: "Total runway readiness violations by channel and invariant code.",
		},
		[]string{"channel_id", "code"},
	)

	BoundaryTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrovue_core_boundary_transitions_total",
			Help: "Boundary lifecycle FSM transitions by channel, from-state, and event.",
		},
		[]string{"channel_id", "from", "event"},
	)

	BlockFeedsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrovue_core_block_feeds_total",
			Help: "Total FeedBlockPlan calls by channel and result.",
		},
		[]string{"channel_id", "result"},
	)

	BlockCompletionDriftMs = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "retrovue_core_block_completion_drift_ms",
			Help:    "Observed drift (now - scheduled_end) at block completion, in milliseconds.",
			Buckets: []float64{-2000, -500, -100, 0, 100, 500, 2000, 5000},
		},
		[]string{"channel_id"},
	)

	SinkBreakerTripsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retrovue_core_sink_breaker_trips_total",
			Help: "Total times the sink circuit breaker tripped open.",
		},
		[]string{"channel_id"},
	)
)
