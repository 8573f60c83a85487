// Package metrics exposes application metrics collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scannerChunkTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tierwatch",
		Subsystem: "scanner",
		Name:      "chunk_fetch_total",
		Help:      "Count of chunk fetch attempts.",
	}, []string{"status"})

	scannerChunkDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tierwatch",
		Subsystem: "scanner",
		Name:      "chunk_fetch_duration_seconds",
		Help:      "Duration of chunk fetches including retries.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"status"})

	scannerChunkLogs = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tierwatch",
		Subsystem: "scanner",
		Name:      "chunk_logs",
		Help:      "Number of logs returned per chunk.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1..2048
	})

	scannerChunkSplitTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tierwatch",
		Subsystem: "scanner",
		Name:      "chunk_split_total",
		Help:      "Count of chunks halved after persistent fetch failures.",
	})

	scannerScanTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tierwatch",
		Subsystem: "scanner",
		Name:      "scan_total",
		Help:      "Count of finished scans by outcome.",
	}, []string{"outcome"})

	scannerScanDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tierwatch",
		Subsystem: "scanner",
		Name:      "scan_duration_seconds",
		Help:      "Duration of a full windowed scan.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"outcome"})

	scannerLogsEvaluated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tierwatch",
		Subsystem: "scanner",
		Name:      "logs_evaluated_total",
		Help:      "Count of logs passed through the inference engine.",
	})
)

// Scanner tracks metrics for windowed log scans.
type Scanner struct{}

// NewScanner creates a Scanner metrics collector.
func NewScanner() *Scanner {
	return &Scanner{}
}

// ObserveChunk records a chunk fetch outcome, its duration and the number of logs returned.
func (m Scanner) ObserveChunk(err error, logs int, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	scannerChunkTotal.WithLabelValues(status).Inc()
	scannerChunkDuration.WithLabelValues(status).Observe(time.Since(started).Seconds())
	if err == nil {
		scannerChunkLogs.Observe(float64(logs))
	}
}

// ObserveSplit records a chunk being halved.
func (m Scanner) ObserveSplit() {
	scannerChunkSplitTotal.Inc()
}

// ObserveScan records a finished scan and how many logs it evaluated.
func (m Scanner) ObserveScan(outcome string, evaluated int, started time.Time) {
	if outcome == "" {
		outcome = "unknown"
	}
	scannerScanTotal.WithLabelValues(outcome).Inc()
	scannerScanDuration.WithLabelValues(outcome).Observe(time.Since(started).Seconds())
	scannerLogsEvaluated.Add(float64(evaluated))
}
