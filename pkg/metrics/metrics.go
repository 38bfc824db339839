// Package metrics exposes Prometheus instrumentation for validation runs.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	initOnce sync.Once

	resultsTotalCounter        *prometheus.CounterVec
	semanticErrorsCounter      *prometheus.CounterVec
	semanticCallDurationMetric prometheus.Histogram
	retriesCounter             *prometheus.CounterVec
	buildValidationsCounter    *prometheus.CounterVec
	graphRejectionsCounter     *prometheus.CounterVec
)

// Init registers metrics on the default Prometheus registry exactly once.
func Init() {
	initOnce.Do(func() {
		resultsTotalCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lineforge_validation_results_total",
				Help: "Total number of rule evaluation results by rule type and outcome.",
			},
			[]string{"rule_type", "pass"},
		)

		semanticErrorsCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lineforge_semantic_errors_total",
				Help: "Total number of semantic evaluation errors by kind.",
			},
			[]string{"kind"},
		)

		semanticCallDurationMetric = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lineforge_semantic_call_duration_seconds",
				Help:    "Duration of reasoning service calls, retries included, in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		)

		retriesCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lineforge_retries_total",
				Help: "Total number of retried attempts by operation name.",
			},
			[]string{"operation"},
		)

		buildValidationsCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lineforge_build_validations_total",
				Help: "Total number of build validations by promotion verdict.",
			},
			[]string{"promotable"},
		)

		graphRejectionsCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lineforge_graph_rejections_total",
				Help: "Total number of dependency edits rejected by the graph guard, by reason.",
			},
			[]string{"reason"},
		)

		prometheus.MustRegister(
			resultsTotalCounter,
			semanticErrorsCounter,
			semanticCallDurationMetric,
			retriesCounter,
			buildValidationsCounter,
			graphRejectionsCounter,
		)

		for _, ruleType := range []string{"structured", "semantic"} {
			for _, pass := range []string{"true", "false"} {
				resultsTotalCounter.WithLabelValues(ruleType, pass)
			}
		}
	})
}

func IncResult(ruleType string, pass bool) {
	Init()
	resultsTotalCounter.WithLabelValues(ruleType, strconv.FormatBool(pass)).Inc()
}

func IncSemanticError(kind string) {
	Init()
	semanticErrorsCounter.WithLabelValues(kind).Inc()
}

func ObserveSemanticCallDuration(d time.Duration) {
	Init()
	semanticCallDurationMetric.Observe(d.Seconds())
}

func IncRetry(operation string) {
	Init()
	retriesCounter.WithLabelValues(operation).Inc()
}

func IncBuildValidation(promotable bool) {
	Init()
	buildValidationsCounter.WithLabelValues(strconv.FormatBool(promotable)).Inc()
}

func IncGraphRejection(reason string) {
	Init()
	graphRejectionsCounter.WithLabelValues(reason).Inc()
}
