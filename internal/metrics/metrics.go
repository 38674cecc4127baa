// Package metrics exposes the dispatcher's Prometheus instrumentation,
// registered against the default registry and scraped over HTTP by
// cmd/dispatcher via promhttp.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// PendingDepth is the size of the pending admission backlog, set each
	// time Dispatcher.PendingCount reads it from the store.
	PendingDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dispatcher",
		Name:      "pending_depth",
		Help:      "Number of intents currently in pending status.",
	})

	// AccountQueueDepth tracks each account's FIFO length, labeled by index.
	AccountQueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "dispatcher",
		Name:      "account_queue_depth",
		Help:      "Current FIFO depth per account.",
	}, []string{"account"})

	// AccountQuarantined reports 1 while an account is quarantined.
	AccountQuarantined = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "dispatcher",
		Name:      "account_quarantined",
		Help:      "1 if the account is currently quarantined, else 0.",
	}, []string{"account"})

	// SubmissionsTotal counts chain submissions, labeled by outcome.
	SubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dispatcher",
		Name:      "submissions_total",
		Help:      "Chain submissions by outcome (sent, rejected, nonce_mismatch).",
	}, []string{"outcome"})

	// ConfirmationsTotal counts receipts observed by the Confirmation Watcher.
	ConfirmationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dispatcher",
		Name:      "confirmations_total",
		Help:      "Intents resolved by the confirmation watcher, by final status.",
	}, []string{"status"})

	// RecoveryAttemptsTotal counts recovery resend attempts, by outcome.
	RecoveryAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dispatcher",
		Name:      "recovery_attempts_total",
		Help:      "Recovery Dispatcher resend attempts, by outcome.",
	}, []string{"outcome"})

	// QuarantineTransitionsTotal counts accounts entering quarantine.
	QuarantineTransitionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dispatcher",
		Name:      "quarantine_transitions_total",
		Help:      "Number of times any account transitioned into quarantine.",
	})
)

func init() {
	prometheus.MustRegister(
		PendingDepth,
		AccountQueueDepth,
		AccountQuarantined,
		SubmissionsTotal,
		ConfirmationsTotal,
		RecoveryAttemptsTotal,
		QuarantineTransitionsTotal,
	)
}
