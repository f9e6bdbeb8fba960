package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	trendscout = "trendscout"

	// Worker metrics
	jobsTotal            = "jobs_total"
	configsEvaluated     = "configs_evaluated_total"
	symbolsFetched       = "symbols_fetched_total"
	companionEventsDrops = "companion_events_dropped_total"

	// Labels
	jobStatusLabel   = "status"
	fetchResultLabel = "result"
)

var jobsTotalLabels = []string{
	jobStatusLabel,
}

var symbolsFetchedLabels = []string{
	fetchResultLabel,
}

/**
* Metrics definition
**/
var jobsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: trendscout,
		Name:      jobsTotal,
		Help:      "number of worker jobs by terminal status",
	},
	jobsTotalLabels,
)

var configsEvaluatedMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: trendscout,
		Name:      configsEvaluated,
		Help:      "number of sweep configurations evaluated",
	},
)

var symbolsFetchedMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: trendscout,
		Name:      symbolsFetched,
		Help:      "number of symbols fetched by result",
	},
	symbolsFetchedLabels,
)

var companionEventsDroppedMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: trendscout,
		Name:      companionEventsDrops,
		Help:      "number of companion events dropped because no observer is attached",
	},
)

func IncreaseJobsTotalMetric(status string) {
	labels := prometheus.Labels{
		jobStatusLabel: status,
	}
	jobsTotalMetric.With(labels).Inc()
}

func AddConfigsEvaluatedMetric(count int) {
	configsEvaluatedMetric.Add(float64(count))
}

func IncreaseSymbolsFetchedMetric(result string) {
	labels := prometheus.Labels{
		fetchResultLabel: result,
	}
	symbolsFetchedMetric.With(labels).Inc()
}

func IncreaseCompanionEventsDroppedMetric() {
	companionEventsDroppedMetric.Inc()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(jobsTotalMetric)
	prometheus.MustRegister(configsEvaluatedMetric)
	prometheus.MustRegister(symbolsFetchedMetric)
	prometheus.MustRegister(companionEventsDroppedMetric)
}
