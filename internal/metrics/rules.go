package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RulesMatchedTotal is a counter with the total number of matched rules,
	// labeled by protocol.
	RulesMatchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "matched_total",
		Namespace: namespace,
		Subsystem: subsystemRules,
		Help:      "The number of rules whose predicates all matched.",
	}, []string{"protocol"})

	// RulesUnknownComponentsTotal is a counter of rule components with names
	// that no registered implementation claims.
	RulesUnknownComponentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "unknown_components_total",
		Namespace: namespace,
		Subsystem: subsystemRules,
		Help:      "The number of skipped rule components with unknown names.",
	})
)
