// Package metrics contains definitions of the prometheus metrics that the
// Dusseldorf data plane exports.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// constants with the namespace and the subsystem names that we use in our
// prometheus metrics.
const (
	namespace = "dssldrf"

	subsystemApplication = "app"
	subsystemDNSSvc      = "dnssvc"
	subsystemRecorder    = "recorder"
	subsystemRules       = "rules"
	subsystemStorage     = "storage"
	subsystemWebSvc      = "websvc"
)

// SetUpGauge signals that the server has been started.  We're using a function
// here to avoid circular dependencies.
func SetUpGauge(version, buildtime, branch, revision, goversion string) {
	upGauge := promauto.NewGauge(
		prometheus.GaugeOpts{
			Name:      "up",
			Namespace: namespace,
			Subsystem: subsystemApplication,
			Help: `A metric with a constant '1' value labeled by ` +
				`version and goversion from which the program was built.`,
			ConstLabels: prometheus.Labels{
				"version":   version,
				"buildtime": buildtime,
				"branch":    branch,
				"revision":  revision,
				"goversion": goversion,
			},
		},
	)

	upGauge.Set(1)
}
