// Package metrics contains the Prometheus instrumentation for the
// streaming and classification paths.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the disfluency core
type Metrics struct {
	// Streaming path
	ColumnsProduced prometheus.Counter
	ColumnLatency   prometheus.Histogram

	// Classification pass
	SegmentsScheduled  prometheus.Counter
	SegmentsClassified prometheus.Counter
	InferenceFailures  prometheus.Counter
	InferenceDuration  prometheus.Histogram
	AnalysisDuration   prometheus.Histogram
	EventsEmitted      *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on the default registerer.
func NewMetrics() *Metrics {
	return &Metrics{
		ColumnsProduced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "disfluency_columns_produced_total",
			Help: "Total number of spectrogram columns produced",
		}),
		ColumnLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "disfluency_column_latency_seconds",
			Help:    "Per-column feature extraction latency",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		SegmentsScheduled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "disfluency_segments_scheduled_total",
			Help: "Total number of classifier segments scheduled",
		}),
		SegmentsClassified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "disfluency_segments_classified_total",
			Help: "Total number of segments successfully classified",
		}),
		InferenceFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "disfluency_inference_failures_total",
			Help: "Total number of per-segment inference failures",
		}),
		InferenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "disfluency_inference_duration_seconds",
			Help:    "Classifier prediction duration per segment",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		AnalysisDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "disfluency_analysis_duration_seconds",
			Help:    "End-to-end post-recording analysis duration",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		EventsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "disfluency_events_emitted_total",
			Help: "Total number of disfluency events emitted by type",
		}, []string{"type"}),
	}
}
