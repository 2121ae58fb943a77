package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all SDK-level metrics (not adapter-specific business
// metrics; adapters register their own through MetricsRegistrar).
type Metrics struct {
	// Adapter lifecycle
	AdapterStatus *prometheus.GaugeVec

	// Feature dispatch (recorded by the wrapper layer; the duration
	// histogram brackets the entire streamed result, not just call start)
	FeatureCalls    *prometheus.CounterVec
	FeatureErrors   *prometheus.CounterVec
	FeatureDenied   *prometheus.CounterVec
	FeatureDuration *prometheus.HistogramVec

	// Subscription fan-out
	ActiveSubscriptions *prometheus.GaugeVec
	ValuesDelivered     *prometheus.CounterVec
	ValuesDropped       *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all SDK metrics
func NewMetrics() *Metrics {
	return &Metrics{
		AdapterStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "adapterkit",
				Subsystem: "adapter",
				Name:      "status",
				Help:      "Adapter lifecycle state (0=created, 1=starting, 2=started, 3=stopping, 4=stopped, 5=failed)",
			},
			[]string{"adapter"},
		),

		FeatureCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "adapterkit",
				Subsystem: "feature",
				Name:      "calls_total",
				Help:      "Total feature invocations through the wrapper layer",
			},
			[]string{"adapter", "feature"},
		),

		FeatureErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "adapterkit",
				Subsystem: "feature",
				Name:      "errors_total",
				Help:      "Feature invocations that ended in a terminal error",
			},
			[]string{"adapter", "feature"},
		),

		FeatureDenied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "adapterkit",
				Subsystem: "feature",
				Name:      "denied_total",
				Help:      "Feature invocations rejected by the authorization gate",
			},
			[]string{"adapter", "feature"},
		),

		FeatureDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "adapterkit",
				Subsystem: "feature",
				Name:      "duration_seconds",
				Help:      "Feature call duration from dispatch to stream completion",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"adapter", "feature"},
		),

		ActiveSubscriptions: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "adapterkit",
				Subsystem: "subscription",
				Name:      "active",
				Help:      "Currently registered push subscriptions",
			},
			[]string{"manager"},
		),

		ValuesDelivered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "adapterkit",
				Subsystem: "subscription",
				Name:      "delivered_total",
				Help:      "Values fanned out to subscriber queues",
			},
			[]string{"manager"},
		),

		ValuesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "adapterkit",
				Subsystem: "subscription",
				Name:      "dropped_total",
				Help:      "Values dropped by subscriber queue overflow policy",
			},
			[]string{"manager"},
		),
	}
}
