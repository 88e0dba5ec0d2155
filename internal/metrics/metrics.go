// Package metrics holds the Prometheus collectors of the onboarding bot.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_events_total",
			Help: "Inbound and timer events by kind and the applicant state they hit",
		},
		[]string{"kind", "state"},
	)
	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_transitions_total",
			Help: "Applicant state transitions",
		},
		[]string{"from", "to"},
	)
	completionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Language model completion requests by status",
		},
		[]string{"status"},
	)
	completionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "Duration of language model completion requests",
			Buckets: prometheus.DefBuckets,
		},
	)
	ledgerOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Spreadsheet ledger operations by operation and status",
		},
		[]string{"op", "status"},
	)
	timersFiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_timers_fired_total",
			Help: "Reminder and expiration timers delivered to applicants",
		},
		[]string{"kind"},
	)
)

func ObserveEvent(kind, state string) {
	eventsTotal.WithLabelValues(kind, state).Inc()
}

func ObserveTransition(from, to string) {
	transitionsTotal.WithLabelValues(from, to).Inc()
}

func ObserveCompletion(err error, duration time.Duration) {
	completionsTotal.WithLabelValues(status(err)).Inc()
	completionDuration.Observe(duration.Seconds())
}

func ObserveLedger(op string, err error) {
	ledgerOpsTotal.WithLabelValues(op, status(err)).Inc()
}

func ObserveTimerFired(kind string) {
	timersFiredTotal.WithLabelValues(kind).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
