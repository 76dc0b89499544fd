// Package metrics provides Prometheus instrumentation for the telemetry
// pipeline, exposed on /metrics by both binaries.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the pipeline metrics instruments.
type Collector struct {
	// Simulator metrics
	TicksTotal            prometheus.Counter
	ReadingsPublished     *prometheus.CounterVec
	PublishFailuresTotal  *prometheus.CounterVec
	PublishDurationSecond prometheus.Histogram

	// History service metrics
	ReadingsIngested  *prometheus.CounterVec
	ReadingsDiscarded *prometheus.CounterVec
	WindowEntries     *prometheus.GaugeVec
}

// NewCollector creates pipeline metrics registered on reg.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		TicksTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "simulator_ticks_total",
				Help:      "Total number of simulation ticks",
			},
		),

		ReadingsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "readings_published_total",
				Help:      "Total readings published by topic and city",
			},
			[]string{"topic", "city"},
		),

		PublishFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "publish_failures_total",
				Help:      "Total publish failures after retries, by topic and city",
			},
			[]string{"topic", "city"},
		),

		PublishDurationSecond: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "publish_duration_seconds",
				Help:      "Duration of publish calls including retries",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
		),

		ReadingsIngested: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "readings_ingested_total",
				Help:      "Total history readings ingested by city",
			},
			[]string{"city"},
		),

		ReadingsDiscarded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "readings_discarded_total",
				Help:      "Total readings discarded by reason (malformed, stale, unknown_city)",
			},
			[]string{"reason"},
		),

		WindowEntries: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "window_entries",
				Help:      "Current trailing-window size per city",
			},
			[]string{"city"},
		),
	}
}
