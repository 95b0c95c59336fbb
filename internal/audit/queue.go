package audit

import (
	"sync"

	"github.com/rs/zerolog/log"

	"streampay-audit-backend/config"
	"streampay-audit-backend/internal/metrics"
	"streampay-audit-backend/internal/model"
)

const (
	dropReasonEnqueue = "enqueue_overflow"
	dropReasonRequeue = "requeue_overflow"
)

// Queue is the bounded FIFO holding entries awaiting durability. All
// mutation happens under one mutex; ingestion never blocks on store I/O.
type Queue struct {
	mu       sync.Mutex
	entries  []model.AuditEntry
	capacity int
	policy   string
	dropped  uint64
	metrics  *metrics.PipelineMetrics
}

func NewQueue(cfg *config.AuditConfig, m *metrics.PipelineMetrics) *Queue {
	return &Queue{
		entries:  make([]model.AuditEntry, 0, cfg.MaxQueueSize),
		capacity: cfg.MaxQueueSize,
		policy:   cfg.OverflowPolicy,
		metrics:  m,
	}
}

// Enqueue appends an entry, subject to capacity. On overflow the
// configured policy decides whether the incoming entry or the oldest
// queued entry is dropped; either way the loss is reported through the
// side channel, never to the caller.
func (q *Queue) Enqueue(entry model.AuditEntry) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) >= q.capacity {
		q.dropped++
		q.metrics.EntriesDropped(dropReasonEnqueue, 1)
		if q.policy == config.OverflowDropOldest {
			log.Warn().Int("capacity", q.capacity).Msg("Audit queue full, dropping oldest entry")
			q.entries = append(q.entries[1:], entry)
			q.metrics.EntryEnqueued(string(entry.Level))
			q.metrics.SetQueueDepth(len(q.entries))
			return true
		}
		log.Warn().Int("capacity", q.capacity).Msg("Audit queue full, dropping incoming entry")
		return false
	}

	q.entries = append(q.entries, entry)
	q.metrics.EntryEnqueued(string(entry.Level))
	q.metrics.SetQueueDepth(len(q.entries))
	return true
}

// DrainAll atomically snapshots the queue contents in arrival order and
// clears the queue, so entries arriving during a subsequent write land in
// the next flush cycle.
func (q *Queue) DrainAll() []model.AuditEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return nil
	}
	batch := q.entries
	q.entries = make([]model.AuditEntry, 0, q.capacity)
	q.metrics.SetQueueDepth(0)
	return batch
}

// RequeueFront restores a failed batch ahead of anything that arrived
// while the write was in flight, preserving the batch's relative order.
// If the result exceeds capacity, the oldest entries are dropped: those
// are the ones that have already failed the most times.
func (q *Queue) RequeueFront(batch []model.AuditEntry) {
	if len(batch) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	combined := make([]model.AuditEntry, 0, len(batch)+len(q.entries))
	combined = append(combined, batch...)
	combined = append(combined, q.entries...)

	if excess := len(combined) - q.capacity; excess > 0 {
		log.Warn().Int("excess", excess).Int("capacity", q.capacity).Msg("Requeued batch exceeds queue capacity, dropping oldest entries")
		q.dropped += uint64(excess)
		q.metrics.EntriesDropped(dropReasonRequeue, excess)
		combined = combined[excess:]
	}

	q.entries = combined
	q.metrics.SetQueueDepth(len(q.entries))
}

// Len returns the number of entries currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Dropped returns the total number of entries lost to capacity pressure.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
