package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	secretRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "batchrelay",
		Subsystem: "secret_manager",
		Name:      "operations_total",
		Help:      "Count of secret manager operations.",
	}, []string{"operation", "status"})
	secretRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "batchrelay",
		Subsystem: "secret_manager",
		Name:      "operation_duration_seconds",
		Help:      "Duration of secret manager operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})

	keyCacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "batchrelay",
		Subsystem: "key_cache",
		Name:      "lookups_total",
		Help:      "Count of key cache lookups by result.",
	}, []string{"result"})
	keyCacheEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "batchrelay",
		Subsystem: "key_cache",
		Name:      "evictions_total",
		Help:      "Count of keys wiped from the cache.",
	})
)

// SecretManager tracks metrics for secret manager calls.
type SecretManager struct{}

// NewSecretManager creates a SecretManager metrics collector.
func NewSecretManager() *SecretManager {
	return &SecretManager{}
}

// Observe records a secret manager call. Secret references are never used as labels.
func (m SecretManager) Observe(operation string, err error, started time.Time) {
	status := statusOf(err)
	secretRequestsTotal.WithLabelValues(operation, status).Inc()
	secretRequestDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}

// KeyCache tracks key cache hits, misses and evictions.
type KeyCache struct{}

// NewKeyCache creates a KeyCache metrics collector.
func NewKeyCache() *KeyCache {
	return &KeyCache{}
}

func (m KeyCache) ObserveLookup(result string) {
	keyCacheLookupsTotal.WithLabelValues(result).Inc()
}

func (m KeyCache) ObserveEvictions(count int) {
	keyCacheEvictionsTotal.Add(float64(count))
}
