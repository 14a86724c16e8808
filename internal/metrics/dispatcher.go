package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "batchrelay",
		Subsystem: "dispatcher",
		Name:      "attempts_total",
		Help:      "Count of dispatch steps by outcome.",
	}, []string{"outcome"})
	dispatchConfirmationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "batchrelay",
		Subsystem: "dispatcher",
		Name:      "confirmation_duration_seconds",
		Help:      "Time from broadcast to receipt.",
		Buckets:   []float64{1, 2, 5, 10, 15, 30, 60, 90, 120, 180, 300},
	})
	dispatchStuckNoncesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "batchrelay",
		Subsystem: "dispatcher",
		Name:      "stuck_nonces_total",
		Help:      "Count of pending relayer nonces found stuck on resync.",
	})

	reconcilerRecoveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "batchrelay",
		Subsystem: "reconciler",
		Name:      "recovered_total",
		Help:      "Count of stale transactions handled by the reconciler.",
	}, []string{"status", "action"})
	reconcilerCountDriftTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "batchrelay",
		Subsystem: "reconciler",
		Name:      "count_drift_total",
		Help:      "Count of batches whose counters drifted from their rows.",
	}, []string{"repaired"})
)

// Dispatcher tracks dispatch workers and the reconciler.
type Dispatcher struct{}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

func (m Dispatcher) ObserveAttempt(outcome string) {
	dispatchAttemptsTotal.WithLabelValues(outcome).Inc()
}

func (m Dispatcher) ObserveConfirmation(started time.Time) {
	dispatchConfirmationDuration.Observe(time.Since(started).Seconds())
}

func (m Dispatcher) ObserveStuckNonces(count int) {
	dispatchStuckNoncesTotal.Add(float64(count))
}

func (m Dispatcher) ObserveRecovered(status string, action string) {
	reconcilerRecoveredTotal.WithLabelValues(status, action).Inc()
}

func (m Dispatcher) ObserveCountDrift(repaired bool) {
	label := "false"
	if repaired {
		label = "true"
	}
	reconcilerCountDriftTotal.WithLabelValues(label).Inc()
}
