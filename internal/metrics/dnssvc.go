package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DNSSvcQueriesTotal is a counter with the total number of DNS queries
	// labeled by query type.
	DNSSvcQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "queries_total",
		Namespace: namespace,
		Subsystem: subsystemDNSSvc,
		Help:      "The number of processed DNS queries.",
	}, []string{"type"})

	// DNSSvcResolveDuration is a histogram of the time spent building the DNS
	// answer, in seconds.
	DNSSvcResolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:      "resolve_duration_seconds",
		Namespace: namespace,
		Subsystem: subsystemDNSSvc,
		Help:      "Time elapsed on building the DNS answer.",
		Buckets:   []float64{0.001, 0.01, 0.1, 1, 10},
	})

	// DNSSvcUnansweredTotal is a counter with the number of queries that got
	// no answer, labeled by the reason.
	DNSSvcUnansweredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "unanswered_total",
		Namespace: namespace,
		Subsystem: subsystemDNSSvc,
		Help:      "The number of DNS queries answered with NXDOMAIN or refused.",
	}, []string{"reason"})
)
