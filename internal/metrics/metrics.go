package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the engine and its HTTP surface
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   prometheus.CounterVec
	HTTPRequestDuration prometheus.HistogramVec

	// Extraction pipeline metrics
	ExtractionDuration  prometheus.Histogram
	TokensPerExtraction prometheus.Histogram
	PeaksPerSecond      prometheus.Histogram

	// Driver metrics
	RegistrationsTotal   prometheus.CounterVec
	IdentificationsTotal prometheus.CounterVec
	MatchScore           prometheus.Histogram

	// Index metrics
	LookupDuration prometheus.Histogram

	// Error metrics
	ErrorsTotal prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),

			ExtractionDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "fingerprint_extraction_duration_seconds",
					Help:    "Time to extract fingerprint tokens from a PCM buffer",
					Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
				},
			),
			TokensPerExtraction: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "fingerprint_tokens_per_extraction",
					Help:    "Number of fingerprint tokens emitted per extraction",
					Buckets: prometheus.ExponentialBuckets(10, 4, 8),
				},
			),
			PeaksPerSecond: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "fingerprint_peaks_per_second",
					Help:    "Spectral peak density of extracted audio",
					Buckets: []float64{1, 5, 10, 15, 20, 25, 30, 35, 40},
				},
			),

			RegistrationsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "recordings_registered_total",
					Help: "Total number of recording registration attempts",
				},
				[]string{"status"},
			),
			IdentificationsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "identifications_total",
					Help: "Total number of identification attempts",
				},
				[]string{"result"},
			),
			MatchScore: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "match_score",
					Help:    "Offset-histogram consensus score of winning matches",
					Buckets: prometheus.ExponentialBuckets(5, 2, 10),
				},
			),

			LookupDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "index_lookup_duration_seconds",
					Help:    "Batched hash lookup latency in seconds",
					Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1},
				},
			),

			ErrorsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "errors_total",
					Help: "Total number of errors by code",
				},
				[]string{"code", "operation"},
			),
		}
	})
	return instance
}

// Get returns the global metrics instance
func Get() *Metrics {
	if instance == nil {
		return Initialize()
	}
	return instance
}
