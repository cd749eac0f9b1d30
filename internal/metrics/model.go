package metrics

import "github.com/prometheus/client_golang/prometheus"

// Model index and query metrics.
var (
	IndexBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bimquery",
			Name:      "index_build_duration_seconds",
			Help:      "Model index build duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	IndexedElements = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "bimquery",
			Name:      "indexed_elements",
			Help:      "Elements in the current model index by class",
		},
		[]string{"class"},
	)

	IndexSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bimquery",
			Name:      "index_skipped_elements_total",
			Help:      "Elements skipped because their attributes or properties could not be read",
		},
	)

	ModelLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bimquery",
			Name:      "model_loads_total",
			Help:      "Model loads by outcome",
		},
		[]string{"status"},
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bimquery",
			Name:      "query_duration_seconds",
			Help:      "Local query evaluation duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"kind"}, // "ask" / "filter"
	)

	QueryMatches = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bimquery",
			Name:      "query_matches",
			Help:      "Number of elements matched per query",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"kind"},
	)
)

var modelMetricsRegistered bool

// RegisterModelMetrics registers index and query metrics. Must be called once from main.
func RegisterModelMetrics() {
	if modelMetricsRegistered {
		return
	}
	prometheus.MustRegister(IndexBuildDuration)
	prometheus.MustRegister(IndexedElements)
	prometheus.MustRegister(IndexSkippedTotal)
	prometheus.MustRegister(ModelLoadsTotal)
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(QueryMatches)
	modelMetricsRegistered = true
}
