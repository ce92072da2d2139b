// Package metrics exposes the Prometheus instrumentation described in
// SPEC_FULL.md §4.11: counters and histograms over the append, verify, and
// anchor paths, registered once on the default registry via sync.Once. The
// core never starts its own HTTP listener — callers mount
// promhttp.Handler() themselves — it only owns metric registration and the
// increment/observe helpers, grounded on the wider stack's package-level
// metrics convention (package-level CounterVec/Histogram vars registered
// once in an Init guarded by sync.Once).
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	initOnce sync.Once

	eventsAppendedTotal   *prometheus.CounterVec
	appendDuration        prometheus.Histogram
	hashChainRetriesTotal prometheus.Counter
	verifyFailuresTotal   prometheus.Counter
	anchorBatchesTotal    *prometheus.CounterVec
)

// Init registers every metric on the default registry exactly once. Safe
// to call from multiple goroutines and multiple times.
func Init() {
	initOnce.Do(func() {
		eventsAppendedTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_events_appended_total",
				Help: "Total number of events appended, by event_type.",
			},
			[]string{"event_type"},
		)

		appendDuration = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ledger_append_duration_seconds",
				Help:    "Duration of the validate-hash-sign-append pipeline in seconds.",
				Buckets: prometheus.DefBuckets,
			},
		)

		hashChainRetriesTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ledger_hash_chain_retries_total",
				Help: "Total number of append retries caused by a moved tail.",
			},
		)

		verifyFailuresTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ledger_verify_failures_total",
				Help: "Total number of verify_chain runs that found a broken chain.",
			},
		)

		anchorBatchesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "anchor_batches_total",
				Help: "Total number of anchor batches, by terminal status.",
			},
			[]string{"status"},
		)

		prometheus.MustRegister(
			eventsAppendedTotal,
			appendDuration,
			hashChainRetriesTotal,
			verifyFailuresTotal,
			anchorBatchesTotal,
		)
	})
}

// Registry returns the default Prometheus registry, for an HTTP adapter
// outside the core to mount under /metrics.
func Registry() *prometheus.Registry {
	Init()
	if r, ok := prometheus.DefaultRegisterer.(*prometheus.Registry); ok {
		return r
	}
	return prometheus.NewRegistry()
}

// IncEventsAppended records one successfully appended event.
func IncEventsAppended(eventType string) {
	Init()
	eventsAppendedTotal.WithLabelValues(eventType).Inc()
}

// ObserveAppendDuration records the wall time of one append pipeline run.
func ObserveAppendDuration(d time.Duration) {
	Init()
	appendDuration.Observe(d.Seconds())
}

// IncHashChainRetry records one HashChainBroken retry.
func IncHashChainRetry() {
	Init()
	hashChainRetriesTotal.Inc()
}

// IncVerifyFailure records one verify_chain run that found corruption.
func IncVerifyFailure() {
	Init()
	verifyFailuresTotal.Inc()
}

// IncAnchorBatch records one anchor batch reaching a terminal status
// ("anchored" or "failed").
func IncAnchorBatch(status string) {
	Init()
	anchorBatchesTotal.WithLabelValues(status).Inc()
}
