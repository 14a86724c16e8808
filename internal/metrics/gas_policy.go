package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gasQuotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "batchrelay",
		Subsystem: "gas_policy",
		Name:      "quotes_total",
		Help:      "Count of gas price quotes by transaction class.",
	}, []string{"class", "status"})

	retryDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "batchrelay",
		Subsystem: "retrier",
		Name:      "decisions_total",
		Help:      "Count of retry decisions by failure class and action.",
	}, []string{"class", "action"})
	retryTransientTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "batchrelay",
		Subsystem: "retrier",
		Name:      "transient_retries_total",
		Help:      "Count of in-place retries of transient failures.",
	}, []string{"class"})
)

// GasPolicy tracks gas quotes.
type GasPolicy struct{}

func NewGasPolicy() *GasPolicy {
	return &GasPolicy{}
}

// ObserveQuote records a quote; refusals under the ceiling count as errors.
func (m GasPolicy) ObserveQuote(class string, err error) {
	gasQuotesTotal.WithLabelValues(class, statusOf(err)).Inc()
}

// Retrier tracks retry controller decisions.
type Retrier struct{}

func NewRetrier() *Retrier {
	return &Retrier{}
}

func (m Retrier) ObserveDecision(class, action string) {
	retryDecisionsTotal.WithLabelValues(class, action).Inc()
}

func (m Retrier) ObserveTransientRetry(class string) {
	retryTransientTotal.WithLabelValues(class).Inc()
}
