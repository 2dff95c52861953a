package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for Generations and JobRefreshes.
const (
	OutcomeOK      = "ok"
	OutcomeEmpty   = "empty_input"
	OutcomeInvalid = "invalid_request"
	OutcomeFailed  = "failed"
)

var (
	Generations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "icsfix",
		Name:      "generations_total",
		Help:      "ICS documents processed, by outcome and caller.",
	}, []string{"caller", "outcome"})

	EventsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "icsfix",
		Name:      "events_emitted_total",
		Help:      "VEVENT blocks written into produced documents.",
	})

	Diagnostics = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "icsfix",
		Name:      "diagnostics_total",
		Help:      "Fields skipped, synthesized or dropped while processing.",
	}, []string{"field"})

	JobRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "icsfix",
		Name:      "job_refreshes_total",
		Help:      "Feed job refreshes, by job and outcome.",
	}, []string{"job", "outcome"})

	JobRefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "icsfix",
		Name:      "job_refresh_duration_seconds",
		Help:      "Wall time of a full refresh of all feed jobs.",
		Buckets:   prometheus.DefBuckets,
	})
)
