package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolverPageTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tierwatch",
		Subsystem: "resolver",
		Name:      "page_total",
		Help:      "Count of event summary page requests.",
	}, []string{"status"})

	resolverPageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tierwatch",
		Subsystem: "resolver",
		Name:      "page_duration_seconds",
		Help:      "Duration of event summary page requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"status"})

	resolverResolutionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tierwatch",
		Subsystem: "resolver",
		Name:      "resolution_total",
		Help:      "Count of tier resolutions by tier and reason.",
	}, []string{"tier", "reason"})

	resolverResolutionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tierwatch",
		Subsystem: "resolver",
		Name:      "resolution_duration_seconds",
		Help:      "Duration of resolving a single identifier.",
		Buckets:   []float64{.001, .01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"tier"})

	resolverCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tierwatch",
		Subsystem: "resolver",
		Name:      "cache_lookup_total",
		Help:      "Count of cache lookups by result.",
	}, []string{"result"})
)

// Resolver tracks metrics for the tier resolution orchestrator.
type Resolver struct{}

// NewResolver creates a Resolver metrics collector.
func NewResolver() *Resolver {
	return &Resolver{}
}

// ObservePage records a page request outcome and duration.
func (m Resolver) ObservePage(err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	resolverPageTotal.WithLabelValues(status).Inc()
	resolverPageDuration.WithLabelValues(status).Observe(time.Since(started).Seconds())
}

// ObserveResolution records a finished resolution.
func (m Resolver) ObserveResolution(tier, reason string, started time.Time) {
	if reason == "" {
		reason = "none"
	}
	resolverResolutionTotal.WithLabelValues(tier, reason).Inc()
	resolverResolutionDuration.WithLabelValues(tier).Observe(time.Since(started).Seconds())
}

// ObserveCache records a cache lookup. result is one of hit, miss or stale.
func (m Resolver) ObserveCache(result string) {
	resolverCacheTotal.WithLabelValues(result).Inc()
}
