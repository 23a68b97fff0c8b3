package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search orchestration Prometheus metrics.
var (
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storesearch",
			Name:      "queries_total",
			Help:      "Total number of index queries issued",
		},
		[]string{"target", "status"},
	)

	StaleResponsesDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "storesearch",
			Name:      "stale_responses_dropped_total",
			Help:      "Responses discarded because a newer request superseded them",
		},
	)

	MalformedRecordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "storesearch",
			Name:      "malformed_records_total",
			Help:      "Index hits dropped during mapping due to missing required fields",
		},
	)

	SuggestLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storesearch",
			Name:      "suggest_lookups_total",
			Help:      "Autocomplete lookups actually issued after debouncing",
		},
		[]string{"status"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(StaleResponsesDroppedTotal)
	prometheus.MustRegister(MalformedRecordsTotal)
	prometheus.MustRegister(SuggestLookupsTotal)
	searchMetricsRegistered = true
}
