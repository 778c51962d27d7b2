package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "precipmap"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingest, load, and render stages.
type Metrics struct {
	// Asset service metrics.
	APIRequests *prometheus.CounterVec   // labels: operation={create,find,find_all,destroy,daily_precipitation}, outcome={success,error}
	APIDuration *prometheus.HistogramVec // labels: operation
	APIRetries  *prometheus.CounterVec   // labels: operation
	AssetCache  *prometheus.CounterVec   // labels: result={hit,miss}

	// Stage metrics.
	AssetsProcessed *prometheus.CounterVec // labels: stage={ingest,load,render}
	AssetsFailed    *prometheus.CounterVec // labels: stage
	StageDuration   *prometheus.HistogramVec
	RenderedShapes  prometheus.Gauge

	MessagesProduced prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.APIRequests,
		m.APIDuration,
		m.APIRetries,
		m.AssetCache,
		m.AssetsProcessed,
		m.AssetsFailed,
		m.StageDuration,
		m.RenderedShapes,
		m.MessagesProduced,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Asset service requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
		APIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Asset service request duration in seconds, including retries.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
		APIRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_retries_total",
			Help:      "Asset service requests retried after a transient failure.",
		}, []string{"operation"}),
		AssetCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "asset_cache_total",
			Help:      "Asset lookups by cache result.",
		}, []string{"result"}),
		AssetsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assets_processed_total",
			Help:      "Assets successfully handled per stage.",
		}, []string{"stage"}),
		AssetsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assets_failed_total",
			Help:      "Assets skipped per stage because of invalid input or service errors.",
		}, []string{"stage"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of a complete stage run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"stage"}),
		RenderedShapes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rendered_shapes",
			Help:      "Polygons drawn in the most recent map render.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_produced_total",
			Help:      "Precipitation records published to Kafka.",
		}),
	}
}
