// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bot"

var (
	GateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gate_decisions_total",
		Help:      "Consultation gate decisions by reason.",
	}, []string{"reason"})

	AIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ai_requests_total",
		Help:      "Completion API calls by kind and outcome.",
	}, []string{"kind", "outcome"})

	AIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ai_request_duration_seconds",
		Help:      "Completion API latency.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 90},
	}, []string{"kind"})

	PaymentEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_events_total",
		Help:      "Payment webhook events by type and outcome.",
	}, []string{"type", "outcome"})

	SummariesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "summaries_created_total",
		Help:      "Conversation summaries stored.",
	})

	SummarizerDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "summarizer_dropped_total",
		Help:      "Summarization jobs dropped because the queue was full.",
	})
)

const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeIgnored = "ignored"
	OutcomeInvalid = "invalid"
	OutcomeDup     = "duplicate"
)
