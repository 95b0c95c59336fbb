package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PipelineMetrics exposes the audit pipeline's side-channel counters.
// Pipeline failures are reported here and through zerolog, never as
// errors to the instrumented business code.
type PipelineMetrics struct {
	entriesEnqueued  *prometheus.CounterVec
	entriesFiltered  prometheus.Counter
	entriesDropped   *prometheus.CounterVec
	entriesPersisted prometheus.Counter
	flushFailures    prometheus.Counter
	flushCycles      prometheus.Counter
	queueDepth       prometheus.Gauge
}

func NewPipelineMetrics() *PipelineMetrics {
	return newPipelineMetrics(promauto.With(prometheus.DefaultRegisterer))
}

// NewPipelineMetricsWithRegistry backs the collectors with a private
// registry. Used by tests to avoid duplicate registration.
func NewPipelineMetricsWithRegistry(reg prometheus.Registerer) *PipelineMetrics {
	return newPipelineMetrics(promauto.With(reg))
}

func newPipelineMetrics(factory promauto.Factory) *PipelineMetrics {
	return &PipelineMetrics{
		entriesEnqueued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_entries_enqueued_total",
				Help: "Audit entries accepted into the write queue, by level",
			},
			[]string{"level"},
		),
		entriesFiltered: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "audit_entries_filtered_total",
				Help: "Audit entries discarded for being below the minimum level",
			},
		),
		entriesDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_entries_dropped_total",
				Help: "Audit entries lost to queue capacity pressure, by reason",
			},
			[]string{"reason"},
		),
		entriesPersisted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "audit_entries_persisted_total",
				Help: "Audit entries durably written to the store",
			},
		),
		flushFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "audit_flush_failures_total",
				Help: "Flush cycles that rolled back and requeued their batch",
			},
		),
		flushCycles: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "audit_flush_cycles_total",
				Help: "Flush cycles executed, including empty ones",
			},
		),
		queueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "audit_queue_depth",
				Help: "Entries currently waiting in the write queue",
			},
		),
	}
}

func (m *PipelineMetrics) EntryEnqueued(level string) {
	if m == nil {
		return
	}
	m.entriesEnqueued.WithLabelValues(level).Inc()
}

func (m *PipelineMetrics) EntryFiltered() {
	if m == nil {
		return
	}
	m.entriesFiltered.Inc()
}

func (m *PipelineMetrics) EntriesDropped(reason string, count int) {
	if m == nil {
		return
	}
	m.entriesDropped.WithLabelValues(reason).Add(float64(count))
}

func (m *PipelineMetrics) EntriesPersisted(count int) {
	if m == nil {
		return
	}
	m.entriesPersisted.Add(float64(count))
}

func (m *PipelineMetrics) FlushFailed() {
	if m == nil {
		return
	}
	m.flushFailures.Inc()
}

func (m *PipelineMetrics) FlushCycle() {
	if m == nil {
		return
	}
	m.flushCycles.Inc()
}

func (m *PipelineMetrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}
