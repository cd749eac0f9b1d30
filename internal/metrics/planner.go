package metrics

import "github.com/prometheus/client_golang/prometheus"

// Planner Prometheus metrics.
var (
	PlannerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bimquery",
			Name:      "planner_requests_total",
			Help:      "Total number of query planner requests",
		},
		[]string{"provider", "model", "status"},
	)

	PlannerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bimquery",
			Name:      "planner_request_duration_seconds",
			Help:      "Query planner request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "model"},
	)

	PlannerTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bimquery",
			Name:      "planner_tokens_total",
			Help:      "Total planner tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)

	PlannerErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bimquery",
			Name:      "planner_errors_total",
			Help:      "Total planner errors",
		},
		[]string{"provider", "model", "error_type"},
	)

	PlannerBudgetTokensRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "bimquery",
			Name:      "planner_budget_tokens_remaining",
			Help:      "Remaining planner token budget",
		},
		[]string{"provider", "period"},
	)

	PlanCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bimquery",
			Name:      "plan_cache_total",
			Help:      "Plan cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var plannerMetricsRegistered bool

// RegisterPlannerMetrics registers Prometheus planner metrics. Must be called once from main.
func RegisterPlannerMetrics() {
	if plannerMetricsRegistered {
		return
	}
	prometheus.MustRegister(PlannerRequestsTotal)
	prometheus.MustRegister(PlannerRequestDuration)
	prometheus.MustRegister(PlannerTokensTotal)
	prometheus.MustRegister(PlannerErrorsTotal)
	prometheus.MustRegister(PlannerBudgetTokensRemaining)
	prometheus.MustRegister(PlanCacheTotal)
	plannerMetricsRegistered = true
}
