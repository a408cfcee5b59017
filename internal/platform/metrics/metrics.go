package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the ingestion engine.
type Metrics struct {
	IngestsStarted       prometheus.Counter
	ExtractionsSucceeded prometheus.Counter
	ExtractionsFailed    prometheus.Counter
	ReviewsRequired      prometheus.Counter
	ExtractionDuration   prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		IngestsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "polizalab_ingests_started_total",
			Help: "Total number of extraction jobs dispatched",
		}),
		ExtractionsSucceeded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "polizalab_extractions_succeeded_total",
			Help: "Total number of extractions that completed successfully",
		}),
		ExtractionsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "polizalab_extractions_failed_total",
			Help: "Total number of extractions that ended in FAILED",
		}),
		ReviewsRequired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "polizalab_reviews_required_total",
			Help: "Total number of extractions gated into NEEDS_REVIEW",
		}),
		ExtractionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "polizalab_extraction_duration_seconds",
			Help:    "Time from job submission to resolved extraction result",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}
