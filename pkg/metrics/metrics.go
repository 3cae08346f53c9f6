package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Token allocation metrics
	AllocationAttempts  prometheus.Counter
	AllocationConflicts prometheus.Counter
	AllocationFailures  prometheus.Counter
	AllocationLatency   prometheus.Histogram

	// Change feed metrics
	FeedSubscribers       prometheus.Gauge
	FeedDeliveries        *prometheus.CounterVec
	FeedDroppedDeliveries prometheus.Counter
	FeedBroadcastRetries  prometheus.Counter
	FeedBroadcastsFailed  prometheus.Counter

	// Audit metrics
	AuditWritesFailed  prometheus.Counter
	AuditWritesDropped prometheus.Counter
}

// NewMetrics creates all application metrics and registers them with reg.
// Tests pass a private registry so repeated construction does not collide.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		AllocationAttempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_allocation_attempts_total",
			Help:      "Total number of daily token allocation attempts",
		}),
		AllocationConflicts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_allocation_conflicts_total",
			Help:      "Total number of counter write conflicts during allocation",
		}),
		AllocationFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_allocation_failures_total",
			Help:      "Total number of allocations that exhausted the retry budget",
		}),
		AllocationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "token_allocation_duration_seconds",
			Help:      "Time spent allocating a daily token",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),

		FeedSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_subscribers",
			Help:      "Current number of change feed subscribers",
		}),
		FeedDeliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_deliveries_total",
			Help:      "Total number of change feed deliveries",
		}, []string{"scope"}),
		FeedDroppedDeliveries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_dropped_deliveries_total",
			Help:      "Total number of deliveries dropped on full subscriber buffers",
		}),
		FeedBroadcastRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_broadcast_retries_total",
			Help:      "Total number of retried visit event broadcasts",
		}),
		FeedBroadcastsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_broadcasts_failed_total",
			Help:      "Total number of visit event broadcasts dropped after exhausting retries",
		}),

		AuditWritesFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_writes_failed_total",
			Help:      "Total number of audit log writes that failed",
		}),
		AuditWritesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_writes_dropped_total",
			Help:      "Total number of audit entries dropped on a full queue",
		}),
	}
}
