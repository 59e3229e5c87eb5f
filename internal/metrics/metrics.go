// Package metrics holds the prometheus collectors shared by the sync engine,
// the classifier adapter and the relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SnapshotsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cipherroom_snapshots_processed_total",
		Help: "Message snapshots decrypted and merged into a room view",
	})
	DecryptFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cipherroom_decrypt_failures_total",
		Help: "Messages rendered as redacted placeholders",
	}, []string{"reason"})
	FlaggedMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cipherroom_flagged_messages_total",
		Help: "Messages flagged by the content classifier",
	}, []string{"label"})
	ClassifierState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cipherroom_classifier_state",
		Help: "Classifier adapter state (0 unloaded, 1 loading, 2 ready, 3 unavailable)",
	})
	RelayWatches = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cipherroom_relay_watches",
		Help: "Active relay snapshot streams",
	}, []string{"collection"})
	RelayRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cipherroom_relay_requests_total",
		Help: "Relay gRPC requests by method and status code",
	}, []string{"method", "code"})
)

func init() {
	prometheus.MustRegister(
		SnapshotsProcessed,
		DecryptFailures,
		FlaggedMessages,
		ClassifierState,
		RelayWatches,
		RelayRequests,
	)
}
