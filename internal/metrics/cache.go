package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheWriteTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tierwatch",
		Subsystem: "cache",
		Name:      "write_total",
		Help:      "Count of resolution cache file writes.",
	}, []string{"status"})

	cacheWriteDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tierwatch",
		Subsystem: "cache",
		Name:      "write_duration_seconds",
		Help:      "Duration of rewriting the resolution cache file.",
		Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"status"})

	cacheMigratedEntries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tierwatch",
		Subsystem: "cache",
		Name:      "migrated_entries_total",
		Help:      "Count of legacy cache entries migrated on load.",
	})
)

// Cache tracks metrics for the resolution cache.
type Cache struct{}

// NewCache creates a Cache metrics collector.
func NewCache() *Cache {
	return &Cache{}
}

// ObserveWrite records a cache file rewrite.
func (m Cache) ObserveWrite(err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	cacheWriteTotal.WithLabelValues(status).Inc()
	cacheWriteDuration.WithLabelValues(status).Observe(time.Since(started).Seconds())
}

// ObserveMigrated adds n legacy entries migrated on load.
func (m Cache) ObserveMigrated(n int) {
	cacheMigratedEntries.Add(float64(n))
}
