// Package metrics provides Prometheus metrics for the classification service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/thosperis/logmind/internal/engine"
)

var (
	// ClassificationsTotal counts finalized classifications.
	// Labels: branch (accept, crosscheck, fallback), outcome (success, failure)
	ClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "logmind",
			Subsystem: "engine",
			Name:      "classifications_total",
			Help:      "Total finalized classifications by branch and outcome",
		},
		[]string{"branch", "outcome"},
	)

	// PersistFailures counts snapshots that could not be written.
	PersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "logmind",
			Subsystem: "engine",
			Name:      "persist_failures_total",
			Help:      "Total state snapshots that could not be written after a classification",
		},
	)

	// MemoryEntries tracks the associative memory size.
	MemoryEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "logmind",
			Subsystem: "engine",
			Name:      "memory_entries",
			Help:      "Current number of fingerprint entries in associative memory",
		},
	)

	// TraceLayers tracks the bounded trace buffer length.
	TraceLayers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "logmind",
			Subsystem: "engine",
			Name:      "trace_layers",
			Help:      "Current number of layers in the reasoning trace buffer",
		},
	)

	// TraceChunks tracks how many summaries chunking has produced.
	TraceChunks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "logmind",
			Subsystem: "engine",
			Name:      "trace_chunks",
			Help:      "Total chunk summaries produced by trace consolidation",
		},
	)

	// MetaConfidence tracks the engine's self-assessment, range [0, 2].
	MetaConfidence = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "logmind",
			Subsystem: "engine",
			Name:      "meta_confidence",
			Help:      "Current meta-confidence of the affect tracker (0 to 2)",
		},
	)

	// JournalFailures counts classifications that could not be journaled.
	JournalFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "logmind",
			Subsystem: "journal",
			Name:      "append_failures_total",
			Help:      "Total classifications that could not be appended to the journal",
		},
	)

	// Bans counts sources newly flipped to banned.
	Bans = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "logmind",
			Subsystem: "reputation",
			Name:      "bans_total",
			Help:      "Total sources banned by the strike threshold",
		},
	)

	// ReportDeliveries counts abuse report deliveries.
	// Labels: result (success, error)
	ReportDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "logmind",
			Subsystem: "report",
			Name:      "deliveries_total",
			Help:      "Total abuse report delivery attempts",
		},
		[]string{"result"},
	)

	// SkippedLines counts access-log lines the parser rejected.
	SkippedLines = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "logmind",
			Subsystem: "ingest",
			Name:      "lines_skipped_total",
			Help:      "Total malformed access-log lines skipped by the parser",
		},
	)
)

// RecordClassification folds one finalized classification into the counters
// and engine gauges.
func RecordClassification(res engine.Result, memoryLen, bufferLen, chunks int) {
	outcome := "failure"
	if res.Success {
		outcome = "success"
	}
	ClassificationsTotal.WithLabelValues(string(res.Branch), outcome).Inc()
	if !res.Persisted {
		PersistFailures.Inc()
	}
	MemoryEntries.Set(float64(memoryLen))
	TraceLayers.Set(float64(bufferLen))
	TraceChunks.Set(float64(chunks))
	MetaConfidence.Set(res.MetaConfidence)
}

// RecordReportResult records the outcome of one abuse report delivery.
func RecordReportResult(success bool) {
	if success {
		ReportDeliveries.WithLabelValues("success").Inc()
	} else {
		ReportDeliveries.WithLabelValues("error").Inc()
	}
}
