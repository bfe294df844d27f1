package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Poll Lifecycle Metrics
var (
	// PollsCreatedTotal tracks polls opened across all deals
	PollsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conviction_polls_created_total",
			Help: "Total conviction polls created",
		},
	)

	// PollRevealsTotal tracks reveal attempts by result
	PollRevealsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conviction_poll_reveals_total",
			Help: "Total poll reveal attempts by result (revealed/replayed/threshold_not_met/unauthorized/error)",
		},
		[]string{"result"},
	)

	// PollDivergence observes the max-min spread recorded at reveal time
	PollDivergence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "conviction_poll_divergence",
			Help:    "Score divergence (max minus min) recorded when polls reveal",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
		},
	)
)

// Vote Processing Metrics
var (
	// VotesSubmittedTotal tracks vote writes by result
	VotesSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conviction_votes_submitted_total",
			Help: "Total vote submissions by result (created/updated/invalid_score/poll_not_active/error)",
		},
		[]string{"result"},
	)
)

// Outbox Relay Metrics
var (
	// OutboxPublishedTotal tracks outbox rows published to the event bus
	OutboxPublishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "polling_outbox_published_total",
			Help: "Total poll outbox rows published to the event bus",
		},
	)

	// OutboxRelayFailures tracks relay cycles that stopped on an error
	OutboxRelayFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "polling_outbox_relay_failures_total",
			Help: "Total outbox relay cycles that stopped on an error",
		},
	)
)
