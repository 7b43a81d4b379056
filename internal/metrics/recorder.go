package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecorderSavedTotal is a counter with the total number of interactions
	// written to the store, labeled by protocol.
	RecorderSavedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "saved_total",
		Namespace: namespace,
		Subsystem: subsystemRecorder,
		Help:      "The number of recorded interactions.",
	}, []string{"protocol"})

	// RecorderErrorsTotal is a counter with the total number of interactions
	// that could not be written to the store.
	RecorderErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "errors_total",
		Namespace: namespace,
		Subsystem: subsystemRecorder,
		Help:      "The number of interactions that failed to be recorded.",
	})
)
