package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebSvcRequestsTotal is a counter with the total number of HTTP requests
	// labeled by method and response code.
	WebSvcRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "requests_total",
		Namespace: namespace,
		Subsystem: subsystemWebSvc,
		Help:      "The number of processed HTTP requests.",
	}, []string{"method", "code"})

	// WebSvcRequestDuration is a histogram of the time spent handling an HTTP
	// request, in seconds.
	WebSvcRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:      "request_duration_seconds",
		Namespace: namespace,
		Subsystem: subsystemWebSvc,
		Help:      "Time elapsed on handling an HTTP request.",
		Buckets:   []float64{0.001, 0.01, 0.1, 1, 10},
	})

	// WebSvcPassthruTotal is a counter with the number of passthru proxy
	// attempts, labeled by the result.
	WebSvcPassthruTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "passthru_total",
		Namespace: namespace,
		Subsystem: subsystemWebSvc,
		Help:      "The number of passthru proxy attempts.",
	}, []string{"result"})
)
