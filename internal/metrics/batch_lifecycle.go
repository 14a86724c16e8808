package metrics

import (
	"math/big"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sweepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "batchrelay",
		Subsystem: "drainer",
		Name:      "sweeps_total",
		Help:      "Count of relayer sweeps by outcome.",
	}, []string{"outcome"})
	recoveredEtherTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "batchrelay",
		Subsystem: "drainer",
		Name:      "recovered_ether_total",
		Help:      "Ether returned from relayers.",
	})

	roundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "batchrelay",
		Subsystem: "engine",
		Name:      "rounds_total",
		Help:      "Count of dispatch rounds.",
	}, []string{"status"})
	batchesFinishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "batchrelay",
		Subsystem: "engine",
		Name:      "batches_finished_total",
		Help:      "Count of batches run to the end by final status.",
	}, []string{"status"})
)

var weiPerEther = new(big.Float).SetInt(big.NewInt(1_000_000_000_000_000_000))

// Drainer tracks fund recovery.
type Drainer struct{}

func NewDrainer() *Drainer {
	return &Drainer{}
}

func (m Drainer) ObserveSweep(outcome string, recovered *big.Int) {
	sweepsTotal.WithLabelValues(outcome).Inc()
	if recovered == nil || recovered.Sign() <= 0 {
		return
	}
	eth, _ := new(big.Float).Quo(new(big.Float).SetInt(recovered), weiPerEther).Float64()
	recoveredEtherTotal.Add(eth)
}

// Engine tracks batch orchestration.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

func (m Engine) ObserveRound(err error) {
	roundsTotal.WithLabelValues(statusOf(err)).Inc()
}

func (m Engine) ObserveBatchFinished(status string) {
	batchesFinishedTotal.WithLabelValues(status).Inc()
}
