package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	provisionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "batchrelay",
		Subsystem: "provisioner",
		Name:      "provisions_total",
		Help:      "Count of relayer pool provisioning attempts by outcome.",
	}, []string{"outcome"})
	provisionRelayers = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "batchrelay",
		Subsystem: "provisioner",
		Name:      "pool_size",
		Help:      "Number of relayers funded per batch.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10), // 1..512
	})

	commitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "batchrelay",
		Subsystem: "committer",
		Name:      "commits_total",
		Help:      "Count of merkle commitment steps by outcome.",
	}, []string{"outcome"})
	verifiedLeavesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "batchrelay",
		Subsystem: "committer",
		Name:      "verified_leaves_total",
		Help:      "Count of leaves confirmed as processed by the contract.",
	})
)

// Provisioner tracks relayer pool funding.
type Provisioner struct{}

func NewProvisioner() *Provisioner {
	return &Provisioner{}
}

// ObserveProvision records one provisioning attempt. Pool size is only recorded for funded pools.
func (m Provisioner) ObserveProvision(outcome string, relayers int) {
	provisionTotal.WithLabelValues(outcome).Inc()
	if outcome == "funded" {
		provisionRelayers.Observe(float64(relayers))
	}
}

// Committer tracks merkle commitments.
type Committer struct{}

func NewCommitter() *Committer {
	return &Committer{}
}

func (m Committer) ObserveCommit(outcome string) {
	commitTotal.WithLabelValues(outcome).Inc()
}

func (m Committer) ObserveVerifiedLeaves(count int) {
	verifiedLeavesTotal.Add(float64(count))
}
