package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	joinerMatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tierwatch",
		Subsystem: "joiner",
		Name:      "matches_total",
		Help:      "Count of joined matches by terminal join state.",
	}, []string{"state"})

	joinerDecodeFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tierwatch",
		Subsystem: "joiner",
		Name:      "decode_failures_total",
		Help:      "Count of logs that could not be decoded.",
	}, []string{"stream"})

	joinerHintsIgnoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tierwatch",
		Subsystem: "joiner",
		Name:      "hints_ignored_total",
		Help:      "Count of winner hints dropped as unconfirmed or duplicate.",
	})
)

// Joiner tracks metrics for match and winner-hint joins.
type Joiner struct{}

// NewJoiner creates a Joiner metrics collector.
func NewJoiner() *Joiner {
	return &Joiner{}
}

// ObserveMatches adds n matches that ended in state.
func (m Joiner) ObserveMatches(state string, n int) {
	joinerMatchesTotal.WithLabelValues(state).Add(float64(n))
}

// ObserveDecodeFailures adds n undecodable logs from stream (match or hint).
func (m Joiner) ObserveDecodeFailures(stream string, n int) {
	joinerDecodeFailuresTotal.WithLabelValues(stream).Add(float64(n))
}

// ObserveHintsIgnored adds n ignored hints.
func (m Joiner) ObserveHintsIgnored(n int) {
	joinerHintsIgnoredTotal.Add(float64(n))
}
