package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StorageReconnectsTotal is a counter with the total number of reconnect
	// attempts to the store.
	StorageReconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "reconnects_total",
		Namespace: namespace,
		Subsystem: subsystemStorage,
		Help:      "The number of reconnect attempts to the store.",
	})

	// StorageCacheLookups is a counter of cache lookups in the storage cache
	// layer, labeled by cache name and hit status.
	StorageCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "cache_lookups_total",
		Namespace: namespace,
		Subsystem: subsystemStorage,
		Help:      "The number of storage cache lookups.",
	}, []string{"cache", "hit"})
)
